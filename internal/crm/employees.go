package crm

import (
	"context"
	"net/http"
	"strings"
)

const (
	employeesPath    = "/person/employees/"
	employeeSyncPath = "/person/sync/"
)

// EmployeeInput is the create form. Zero references are omitted from the
// request; every other field is always sent.
type EmployeeInput struct {
	EmployeeNo  string  `json:"employee_no"`
	Name        string  `json:"name"`
	Position    string  `json:"position"`
	Phone       string  `json:"phone"`
	Description string  `json:"description"`
	Employment  string  `json:"employment"`
	Salary      float64 `json:"salary"`
	Fine        float64 `json:"fine"`

	Device     int `json:"device"`
	Department int `json:"department"`
	Shift      int `json:"shift"`
	Branch     int `json:"branch"`
	BreakTime  int `json:"break_time"`
	WorkDay    int `json:"work_day"`
	DayOff     int `json:"day_off"`
}

// EmployeePatch carries only the fields being changed.
type EmployeePatch struct {
	EmployeeNo  *string  `json:"employee_no,omitempty"`
	Name        *string  `json:"name,omitempty"`
	Position    *string  `json:"position,omitempty"`
	Phone       *string  `json:"phone,omitempty"`
	Description *string  `json:"description,omitempty"`
	Employment  *string  `json:"employment,omitempty"`
	Salary      *float64 `json:"salary,omitempty"`
	Fine        *float64 `json:"fine,omitempty"`

	Device     *int `json:"device,omitempty"`
	Department *int `json:"department,omitempty"`
	Shift      *int `json:"shift,omitempty"`
	Branch     *int `json:"branch,omitempty"`
	BreakTime  *int `json:"break_time,omitempty"`
	WorkDay    *int `json:"work_day,omitempty"`
	DayOff     *int `json:"day_off,omitempty"`
}

func decodeEmployee(m map[string]any) Employee {
	return Employee{
		ID:          integer(m, "id"),
		EmployeeNo:  str(m, "employee_no", "employee_id"),
		Name:        str(m, "name", "full_name"),
		Position:    str(m, "position"),
		Phone:       str(m, "phone", "phone_number"),
		PhotoURL:    str(m, "photo", "image", "photo_url"),
		Description: str(m, "description"),
		Employment:  str(m, "employment"),
		Salary:      num(m, "salary"),
		Fine:        num(m, "fine"),
		Device:      ref(m, "device", "device_id"),
		Department:  ref(m, "department", "department_id"),
		Shift:       ref(m, "shift", "shift_id"),
		Branch:      ref(m, "branch", "branch_id"),
		BreakTime:   ref(m, "break_time", "break_time_id"),
		WorkDay:     ref(m, "work_day", "work_day_id"),
		DayOff:      ref(m, "day_off", "day_off_id"),
	}
}

// EmployeeCreatePayload shapes the create request body (without user_id).
func EmployeeCreatePayload(in EmployeeInput) map[string]any {
	p := map[string]any{
		"name":        strings.TrimSpace(in.Name),
		"employee_no": in.EmployeeNo,
		"position":    in.Position,
		"phone":       in.Phone,
		"salary":      in.Salary,
		"fine":        in.Fine,
		"description": in.Description,
		"employment":  in.Employment,
	}
	putRef(p, "device", in.Device)
	putRef(p, "department", in.Department)
	putRef(p, "shift", in.Shift)
	putRef(p, "branch", in.Branch)
	putRef(p, "break_time", in.BreakTime)
	putRef(p, "work_day", in.WorkDay)
	putRef(p, "day_off", in.DayOff)
	return p
}

// EmployeeUpdatePayload shapes the update body. The backend requires the
// seven profile fields on every update, so absent ones go out as ""/0; name
// and the references are sent only when set.
func EmployeeUpdatePayload(in EmployeePatch) map[string]any {
	p := map[string]any{
		"employee_no": valueOr(in.EmployeeNo),
		"position":    valueOr(in.Position),
		"phone":       valueOr(in.Phone),
		"description": valueOr(in.Description),
		"employment":  valueOr(in.Employment),
		"salary":      valueOr(in.Salary),
		"fine":        valueOr(in.Fine),
	}
	putStr(p, "name", in.Name)
	putRefPtr(p, "device", in.Device)
	putRefPtr(p, "department", in.Department)
	putRefPtr(p, "shift", in.Shift)
	putRefPtr(p, "branch", in.Branch)
	putRefPtr(p, "break_time", in.BreakTime)
	putRefPtr(p, "work_day", in.WorkDay)
	putRefPtr(p, "day_off", in.DayOff)
	return p
}

var employeesOp = listOp[Employee]{
	name:     "employees.list",
	path:     employeesPath,
	policy:   Fallback,
	decode:   decodeEmployee,
	fixtures: fixtureEmployees,
}

// Employees lists the owner's employees, scoped to the selected branch.
func (s *Service) Employees(ctx context.Context) ([]Employee, error) {
	return runList(ctx, s, employeesOp, s.branchQuery())
}

func (s *Service) CreateEmployee(ctx context.Context, in EmployeeInput) (Employee, error) {
	if strings.TrimSpace(in.Name) == "" {
		return Employee{}, &Error{Op: "employee.create", Message: "name: " + msgValidation, Fields: map[string]string{"name": msgValidation}, Err: ErrInvalidInput}
	}
	m, err := s.create(ctx, "employee.create", employeesPath, EmployeeCreatePayload(in))
	if err != nil {
		return Employee{}, err
	}
	return decodeEmployee(m), nil
}

func (s *Service) UpdateEmployee(ctx context.Context, id int, in EmployeePatch) (Employee, error) {
	m, err := s.update(ctx, "employee.update", employeesPath, id, EmployeeUpdatePayload(in))
	if err != nil {
		return Employee{}, err
	}
	return decodeEmployee(m), nil
}

func (s *Service) DeleteEmployee(ctx context.Context, id int) error {
	return s.remove(ctx, "employee.delete", employeesPath, id)
}

// SyncEmployees asks the backend to pull employees from the devices.
func (s *Service) SyncEmployees(ctx context.Context) (SyncResult, error) {
	return s.sync(ctx, "employee.sync", employeeSyncPath, "synced_employees")
}

func (s *Service) sync(ctx context.Context, op, path, countKey string) (SyncResult, error) {
	data, err := s.client.JSON(ctx, http.MethodPost, path, s.ownerQuery(), nil)
	if err != nil {
		return SyncResult{}, translate(op, err)
	}
	res := decodeSync(asMap(data), countKey)
	s.audit(ctx, op, map[string]any{"added": res.Added, "total": res.Total})
	return res, nil
}

func decodeSync(m map[string]any, countKey string) SyncResult {
	inner := unwrap(m)
	res := SyncResult{
		Added:   integer(inner, countKey, "added", "created", "count"),
		Total:   integer(inner, "total", "total_events", "total_employees"),
		Skipped: integer(inner, "skipped", "duplicates", "existing"),
		Message: str(m, "message", "detail"),
	}
	if _, ok := lookup(m, []string{"success"}); ok {
		res.Success = boolean(m, "success")
	} else if _, ok := lookup(m, []string{"ok"}); ok {
		res.Success = boolean(m, "ok")
	} else {
		res.Success = str(m, "status") != "error"
	}
	return res
}
