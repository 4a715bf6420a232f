package crm

import (
	"context"
	"strings"
)

const (
	workDaysPath = "/day/work-days/"
	dayOffsPath  = "/day/day-offs/"
)

// Weekdays in display order.
var Weekdays = []Weekday{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// NormalizeDays lower-cases, drops unknown codes and duplicates, and orders
// the result mon..sun.
func NormalizeDays(in []string) []Weekday {
	seen := map[Weekday]bool{}
	for _, d := range in {
		code := Weekday(strings.ToLower(strings.TrimSpace(d)))
		if len(code) > 3 {
			code = code[:3]
		}
		seen[code] = true
	}
	out := []Weekday{}
	for _, d := range Weekdays {
		if seen[d] {
			out = append(out, d)
		}
	}
	return out
}

type CalendarInput struct {
	Name string   `json:"name"`
	Days []string `json:"days,omitempty"`
}

type CalendarPatch struct {
	Name *string  `json:"name,omitempty"`
	Days []string `json:"days,omitempty"`
}

// CalendarUpdatePayload sends days only when the patch lists some.
func CalendarUpdatePayload(in CalendarPatch) map[string]any {
	p := map[string]any{}
	putStr(p, "name", in.Name)
	if in.Days != nil {
		p["days"] = NormalizeDays(in.Days)
	}
	return p
}

func decodeCalendar(m map[string]any) Calendar {
	return Calendar{
		ID:     integer(m, "id"),
		Name:   str(m, "name"),
		Days:   NormalizeDays(strList(m, "days", "weekdays")),
		UserID: integer(m, "user_id", "user"),
	}
}

// calendarKind binds one of the two structurally identical resources.
type calendarKind struct {
	list   listOp[Calendar]
	prefix string
}

var (
	workDays = calendarKind{
		list:   listOp[Calendar]{name: "work_days.list", path: workDaysPath, policy: Fallback, decode: decodeCalendar, fixtures: fixtureWorkDays},
		prefix: "work_day",
	}
	dayOffs = calendarKind{
		list:   listOp[Calendar]{name: "day_offs.list", path: dayOffsPath, policy: Fallback, decode: decodeCalendar, fixtures: fixtureDayOffs},
		prefix: "day_off",
	}
)

func (s *Service) listCalendar(ctx context.Context, k calendarKind) ([]Calendar, error) {
	return runList(ctx, s, k.list, s.ownerQuery())
}

func (s *Service) createCalendar(ctx context.Context, k calendarKind, in CalendarInput) (Calendar, error) {
	p := map[string]any{"name": in.Name, "days": NormalizeDays(in.Days)}
	m, err := s.create(ctx, k.prefix+".create", k.list.path, p)
	if err != nil {
		return Calendar{}, err
	}
	return decodeCalendar(m), nil
}

func (s *Service) updateCalendar(ctx context.Context, k calendarKind, id int, in CalendarPatch) (Calendar, error) {
	m, err := s.update(ctx, k.prefix+".update", k.list.path, id, CalendarUpdatePayload(in))
	if err != nil {
		return Calendar{}, err
	}
	return decodeCalendar(m), nil
}

func (s *Service) WorkDays(ctx context.Context) ([]Calendar, error) {
	return s.listCalendar(ctx, workDays)
}

func (s *Service) CreateWorkDay(ctx context.Context, in CalendarInput) (Calendar, error) {
	return s.createCalendar(ctx, workDays, in)
}

func (s *Service) UpdateWorkDay(ctx context.Context, id int, in CalendarPatch) (Calendar, error) {
	return s.updateCalendar(ctx, workDays, id, in)
}

func (s *Service) DeleteWorkDay(ctx context.Context, id int) error {
	return s.remove(ctx, "work_day.delete", workDaysPath, id)
}

func (s *Service) DayOffs(ctx context.Context) ([]Calendar, error) {
	return s.listCalendar(ctx, dayOffs)
}

func (s *Service) CreateDayOff(ctx context.Context, in CalendarInput) (Calendar, error) {
	return s.createCalendar(ctx, dayOffs, in)
}

func (s *Service) UpdateDayOff(ctx context.Context, id int, in CalendarPatch) (Calendar, error) {
	return s.updateCalendar(ctx, dayOffs, id, in)
}

func (s *Service) DeleteDayOff(ctx context.Context, id int) error {
	return s.remove(ctx, "day_off.delete", dayOffsPath, id)
}
