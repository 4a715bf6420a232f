package crm

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"sort"
	"testing"
)

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func TestEmployeePayloadOmitsAbsentReferences(t *testing.T) {
	for _, dept := range []int{0, -3} {
		p := EmployeeCreatePayload(EmployeeInput{Name: "Ali", Department: dept})
		if _, ok := p["department"]; ok {
			t.Fatalf("department=%d must be omitted, got %v", dept, p)
		}
	}
	p := EmployeeCreatePayload(EmployeeInput{Name: "Ali", Department: 5})
	if p["department"] != 5 {
		t.Fatalf("department = %v", p["department"])
	}

	for _, patch := range []EmployeePatch{{}, {Department: Ptr(0)}} {
		if p, ok := EmployeeUpdatePayload(patch)["department"]; ok {
			t.Fatalf("absent reference produced department=%v", p)
		}
	}
	if p := EmployeeUpdatePayload(EmployeePatch{Department: Ptr(5)}); p["department"] != 5 {
		t.Fatalf("department = %v", p["department"])
	}
}

func TestEmployeeCreatePayloadAlwaysSendsRequiredFields(t *testing.T) {
	p := EmployeeCreatePayload(EmployeeInput{Name: " Ali "})
	want := []string{"description", "employee_no", "employment", "fine", "name", "phone", "position", "salary"}
	if got := keys(p); !reflect.DeepEqual(got, want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}
	if p["name"] != "Ali" || p["salary"] != 0.0 || p["phone"] != "" {
		t.Fatalf("unexpected defaults %v", p)
	}
}

func TestEmployeeUpdatePayloadAlwaysSendsRequiredFields(t *testing.T) {
	p := EmployeeUpdatePayload(EmployeePatch{Name: Ptr("Vali"), Shift: Ptr(0)})
	want := []string{"description", "employee_no", "employment", "fine", "name", "phone", "position", "salary"}
	if got := keys(p); !reflect.DeepEqual(got, want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}
	if p["phone"] != "" || p["salary"] != 0.0 || p["fine"] != 0.0 || p["employee_no"] != "" {
		t.Fatalf("unexpected defaults %v", p)
	}

	p = EmployeeUpdatePayload(EmployeePatch{Position: Ptr("Kassir"), Salary: Ptr(3500000.0), Branch: Ptr(3)})
	if p["position"] != "Kassir" || p["salary"] != 3500000.0 || p["branch"] != 3 {
		t.Fatalf("patched values lost: %v", p)
	}
	if _, ok := p["name"]; ok {
		t.Fatalf("name must be omitted when unset: %v", p)
	}
}

func TestPartialUpdateMinimality(t *testing.T) {
	cases := []struct {
		name    string
		payload map[string]any
		want    []string
	}{
		{"branch", BranchUpdatePayload(BranchPatch{Name: Ptr("")}), []string{"name"}},
		{"shift", ShiftUpdatePayload(ShiftPatch{EndTime: Ptr("18:00:00")}), []string{"end_time"}},
		{"break time", BreakTimeUpdatePayload(BreakTimePatch{StartTime: Ptr("13:00:00")}), []string{"start_time"}},
		{"work day", CalendarUpdatePayload(CalendarPatch{Name: Ptr("Besh kunlik")}), []string{"name"}},
		{"day off", CalendarUpdatePayload(CalendarPatch{Days: []string{"sun"}}), []string{"days"}},
	}
	for _, tc := range cases {
		if got := keys(tc.payload); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%s: keys = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestUpdateSendsOnlyPatchedFields(t *testing.T) {
	svc, rec, _ := newTestService(t, Actor{UserID: 7}, func(w http.ResponseWriter, c captured) {
		writeJSON(w, http.StatusOK, map[string]any{"id": 4, "name": "Kunduzgi", "start_time": "09:00:00", "end_time": "17:00:00"})
	})
	if _, err := svc.UpdateShift(context.Background(), 4, ShiftPatch{EndTime: Ptr("17:00:00")}); err != nil {
		t.Fatalf("UpdateShift: %v", err)
	}
	c := rec.last(t)
	if got := keys(c.Body); !reflect.DeepEqual(got, []string{"end_time"}) {
		t.Fatalf("body keys = %v", got)
	}
	if c.Query["user_id"][0] != "7" {
		t.Fatalf("user_id query = %v", c.Query)
	}
}

func TestDecodeEmployeeDefaults(t *testing.T) {
	e := decodeEmployee(map[string]any{"id": 9.0, "name": "Ali"})
	want := Employee{ID: 9, Name: "Ali"}
	if !reflect.DeepEqual(e, want) {
		t.Fatalf("got %+v want %+v", e, want)
	}

	e = decodeEmployee(map[string]any{
		"id":         "12",
		"full_name":  "Vali",
		"salary":     "4500000.50",
		"shift":      map[string]any{"id": 2.0, "name": "Kunduzgi"},
		"department": 0.0,
		"branch":     nil,
	})
	if e.ID != 12 || e.Name != "Vali" || e.Salary != 4500000.5 {
		t.Fatalf("unexpected employee %+v", e)
	}
	if e.Shift == nil || *e.Shift != 2 {
		t.Fatalf("shift = %v", e.Shift)
	}
	if e.Department != nil || e.Branch != nil {
		t.Fatalf("expected nil references, got %+v", e)
	}
}

func TestEmployeesListEnvelopesAndBranchScope(t *testing.T) {
	bodies := []any{
		[]any{map[string]any{"id": 1.0, "name": "A"}},
		map[string]any{"results": []any{map[string]any{"id": 1.0, "name": "A"}}},
		map[string]any{"success": true, "data": []any{map[string]any{"id": 1.0, "name": "A"}}},
	}
	for i, body := range bodies {
		svc, rec, _ := newTestService(t, Actor{UserID: 7, BranchID: 3}, func(w http.ResponseWriter, c captured) {
			writeJSON(w, http.StatusOK, body)
		})
		emps, err := svc.Employees(context.Background())
		if err != nil || len(emps) != 1 || emps[0].Name != "A" {
			t.Fatalf("body %d: %v %+v", i, err, emps)
		}
		q := rec.last(t).Query
		if q["user_id"][0] != "7" || q["branch_id"][0] != "3" {
			t.Fatalf("query = %v", q)
		}
	}
}

func TestCreateEmployeeRequiresName(t *testing.T) {
	svc, _, _ := newTestService(t, Actor{UserID: 7}, func(w http.ResponseWriter, c captured) {
		t.Error("no request expected")
	})
	_, err := svc.CreateEmployee(context.Background(), EmployeeInput{Name: "  "})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCreateBranchAsAdminSetsOwner(t *testing.T) {
	svc, rec, _ := newTestService(t, Actor{UserID: 7, Role: RoleAdmin}, func(w http.ResponseWriter, c captured) {
		writeJSON(w, http.StatusCreated, map[string]any{"id": 1, "name": "Bosh ofis", "user_id": 7})
	})
	b, err := svc.CreateBranch(context.Background(), "Bosh ofis")
	if err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	c := rec.last(t)
	if c.Method != http.MethodPost || c.Path != "/utils/branches/" {
		t.Fatalf("unexpected request %+v", c)
	}
	if c.Body["user_id"] != 7.0 || c.Body["name"] != "Bosh ofis" {
		t.Fatalf("unexpected body %v", c.Body)
	}
	if b.ID != 1 || b.UserID != 7 {
		t.Fatalf("unexpected branch %+v", b)
	}
}

func TestCreateAsImpersonatedOwner(t *testing.T) {
	svc, rec, _ := newTestService(t, Actor{UserID: 1, Role: RoleSuperadmin, Target: 42}, func(w http.ResponseWriter, c captured) {
		writeJSON(w, http.StatusCreated, map[string]any{"id": 5})
	})
	if _, err := svc.CreateBreakTime(context.Background(), BreakTimeInput{Name: "Tushlik", StartTime: "13:00", EndTime: "14:00"}); err != nil {
		t.Fatalf("CreateBreakTime: %v", err)
	}
	if got := rec.last(t).Body["user_id"]; got != 42.0 {
		t.Fatalf("user_id = %v", got)
	}
}

func TestSyncNormalizesCounts(t *testing.T) {
	cases := []struct {
		name string
		body map[string]any
		want SyncResult
	}{
		{"synced_events", map[string]any{"success": true, "synced_events": 4.0, "total": 10.0}, SyncResult{Success: true, Added: 4, Total: 10}},
		{"added", map[string]any{"success": true, "added": "2"}, SyncResult{Success: true, Added: 2}},
		{"nested", map[string]any{"status": "ok", "data": map[string]any{"created": 3.0, "skipped": 1.0}}, SyncResult{Success: true, Added: 3, Skipped: 1}},
		{"failed", map[string]any{"success": false, "message": "Qurilma javob bermadi"}, SyncResult{Message: "Qurilma javob bermadi"}},
		{"status error", map[string]any{"status": "error"}, SyncResult{}},
	}
	for _, tc := range cases {
		if got := decodeSync(tc.body, "synced_events"); got != tc.want {
			t.Fatalf("%s: got %+v want %+v", tc.name, got, tc.want)
		}
	}
}

func TestSyncEventsPostsEmptyBody(t *testing.T) {
	svc, rec, _ := newTestService(t, Actor{UserID: 7}, func(w http.ResponseWriter, c captured) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "synced_events": 12.0})
	})
	res, err := svc.SyncEvents(context.Background())
	if err != nil || res.Added != 12 || !res.Success {
		t.Fatalf("SyncEvents: %v %+v", err, res)
	}
	c := rec.last(t)
	if c.Method != http.MethodPost || c.Path != "/event/sync/" || c.Body != nil {
		t.Fatalf("unexpected request %+v", c)
	}
}
