package crm

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"timepay.uz/crm/internal/backend"
)

const (
	dailyPath      = "/attendance/daily/"
	absentPath     = "/attendance/absent/"
	monthlyPath    = "/attendance/monthly/"
	dailyExcelPath = "/attendance/daily/excel/"

	DateLayout = "2006-01-02"
	XLSXMIME   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ReportDate returns date, or today's date when it is empty.
func ReportDate(date string) string {
	if date == "" {
		return time.Now().Format(DateLayout)
	}
	return date
}

func checkDate(date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return fmt.Errorf("%w: date %q", ErrInvalidInput, date)
	}
	return nil
}

func (s *Service) dateQuery(date string) url.Values {
	q := s.branchQuery()
	q.Set("date", date)
	return q
}

func decodeRecord(m map[string]any) AttendanceRecord {
	id := 0
	if p := ref(m, "employee_id", "employee"); p != nil {
		id = *p
	}
	name := str(m, "employee_name", "name", "full_name")
	if name == "" {
		name = refName(m, "employee")
	}
	lateMinutes := integer(m, "late_minutes", "kechikish")
	return AttendanceRecord{
		EmployeeID:   id,
		EmployeeName: name,
		In:           str(m, "kirish", "in_time", "check_in"),
		Out:          str(m, "chiqish", "out_time", "check_out"),
		Late:         boolean(m, "late", "is_late") || lateMinutes > 0,
		LateMinutes:  lateMinutes,
		Face:         str(m, "face", "photo"),
	}
}

// statsFrom prefers the server's aggregate and derives it from records when
// the reply has none.
func statsFrom(m map[string]any, records []AttendanceRecord) AttendanceStats {
	src := asMap(m["stats"])
	if src == nil {
		src = m
	}
	st := AttendanceStats{
		Total:  integer(src, "total", "total_employees"),
		Came:   integer(src, "came", "present"),
		Late:   integer(src, "late", "late_count"),
		Absent: integer(src, "absent", "absent_count"),
	}
	if st != (AttendanceStats{}) || len(records) == 0 {
		return st
	}
	st.Total = len(records)
	for _, r := range records {
		if r.In == "" {
			st.Absent++
			continue
		}
		st.Came++
		if r.Late {
			st.Late++
		}
	}
	return st
}

// DailyAttendance fetches the snapshot for date (YYYY-MM-DD, empty for today).
func (s *Service) DailyAttendance(ctx context.Context, date string) (DailyAttendance, error) {
	date = ReportDate(date)
	if err := checkDate(date); err != nil {
		return DailyAttendance{}, err
	}
	data, err := s.client.JSON(ctx, http.MethodGet, dailyPath, s.dateQuery(date), nil)
	if err != nil {
		return DailyAttendance{}, translate("attendance.daily", err)
	}
	m := asMap(data)
	if inner := asMap(m["data"]); inner != nil {
		m = inner
	}
	items := listOf(data)
	if rs, ok := m["records"].([]any); ok {
		items = rs
	}
	out := DailyAttendance{Date: date, Records: make([]AttendanceRecord, 0, len(items))}
	if d := str(m, "date"); d != "" {
		out.Date = d
	}
	for _, item := range items {
		if r := asMap(item); r != nil {
			out.Records = append(out.Records, decodeRecord(r))
		}
	}
	out.Stats = statsFrom(m, out.Records)
	return out, nil
}

func decodeAbsent(m map[string]any) AbsentEmployee {
	return AbsentEmployee{
		ID:       integer(m, "id", "employee_id"),
		Name:     str(m, "name", "full_name", "employee_name"),
		Position: str(m, "position"),
		Phone:    str(m, "phone", "phone_number"),
	}
}

var absentOp = listOp[AbsentEmployee]{
	name:   "attendance.absent",
	path:   absentPath,
	policy: Propagate,
	decode: decodeAbsent,
}

func (s *Service) AbsentEmployees(ctx context.Context, date string) ([]AbsentEmployee, error) {
	date = ReportDate(date)
	if err := checkDate(date); err != nil {
		return nil, err
	}
	return runList(ctx, s, absentOp, s.dateQuery(date))
}

func decodeMonthlyRow(m map[string]any) MonthlyRow {
	id := 0
	if p := ref(m, "employee_id", "employee"); p != nil {
		id = *p
	}
	name := str(m, "name", "employee_name", "full_name")
	if name == "" {
		name = refName(m, "employee")
	}
	return MonthlyRow{
		EmployeeID:  id,
		Name:        name,
		WorkedDays:  integer(m, "worked_days", "present_days"),
		LateDays:    integer(m, "late_days"),
		AbsentDays:  integer(m, "absent_days"),
		WorkedHours: num(m, "worked_hours", "hours"),
		Fine:        num(m, "fine", "total_fine"),
		Salary:      num(m, "salary", "total_salary"),
	}
}

// MonthlyReport fetches per-employee totals for the month.
func (s *Service) MonthlyReport(ctx context.Context, year, month int) (MonthlyReport, error) {
	if year < 2000 || month < 1 || month > 12 {
		return MonthlyReport{}, fmt.Errorf("%w: month %d-%02d", ErrInvalidInput, year, month)
	}
	q := s.branchQuery()
	q.Set("year", strconv.Itoa(year))
	q.Set("month", strconv.Itoa(month))
	data, err := s.client.JSON(ctx, http.MethodGet, monthlyPath, q, nil)
	if err != nil {
		return MonthlyReport{}, translate("attendance.monthly", err)
	}
	out := MonthlyReport{Year: year, Month: month, Rows: []MonthlyRow{}}
	items := listOf(data)
	if rows, ok := unwrap(data)["rows"].([]any); ok {
		items = rows
	}
	for _, item := range items {
		if r := asMap(item); r != nil {
			out.Rows = append(out.Rows, decodeMonthlyRow(r))
		}
	}
	return out, nil
}

// DailyExcelReport downloads the server generated workbook for date.
func (s *Service) DailyExcelReport(ctx context.Context, date string) (ExcelFile, error) {
	date = ReportDate(date)
	if err := checkDate(date); err != nil {
		return ExcelFile{}, err
	}
	resp, err := s.client.Do(ctx, backend.Request{
		Method: http.MethodGet,
		Path:   dailyExcelPath,
		Query:  s.dateQuery(date),
		Header: http.Header{"Accept": {XLSXMIME + ", application/octet-stream"}},
	})
	if err != nil {
		return ExcelFile{}, translate("attendance.excel", err)
	}
	if len(resp.Body) == 0 {
		return ExcelFile{}, &Error{Op: "attendance.excel", Status: resp.Status, Message: msgServerError, Err: ErrEmptyFile}
	}
	return ExcelFile{
		Name: AttachmentName(resp.Header.Get("Content-Disposition"), "davomat_"+date+".xlsx"),
		Data: resp.Body,
	}, nil
}

// AttachmentName extracts the filename from a Content-Disposition header.
func AttachmentName(disposition, fallback string) string {
	if disposition == "" {
		return fallback
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil || params["filename"] == "" {
		return fallback
	}
	return params["filename"]
}
