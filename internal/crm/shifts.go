package crm

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	shiftsPath     = "/day/shifts/"
	breakTimesPath = "/day/break-times/"
)

type ShiftInput struct {
	Name      string `json:"name"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	BreakTime int    `json:"break_time"`
}

type ShiftPatch struct {
	Name      *string `json:"name,omitempty"`
	StartTime *string `json:"start_time,omitempty"`
	EndTime   *string `json:"end_time,omitempty"`
	BreakTime *int    `json:"break_time,omitempty"`
}

type BreakTimeInput struct {
	Name      string `json:"name"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type BreakTimePatch struct {
	Name      *string `json:"name,omitempty"`
	StartTime *string `json:"start_time,omitempty"`
	EndTime   *string `json:"end_time,omitempty"`
}

// ParseClock parses HH:MM or HH:MM:SS into seconds since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: time %q", ErrInvalidInput, s)
	}
	limits := []int{24, 60, 60}
	total := 0
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n >= limits[i] {
			return 0, fmt.Errorf("%w: time %q", ErrInvalidInput, s)
		}
		total = total*60 + n
	}
	if len(parts) == 2 {
		total *= 60
	}
	return total, nil
}

// ShiftDuration returns the span from start to end, wrapping past midnight
// when end is not after start.
func ShiftDuration(start, end string) (time.Duration, error) {
	a, err := ParseClock(start)
	if err != nil {
		return 0, err
	}
	b, err := ParseClock(end)
	if err != nil {
		return 0, err
	}
	diff := b - a
	if diff <= 0 {
		diff += 24 * 60 * 60
	}
	return time.Duration(diff) * time.Second, nil
}

// HoursMinutes splits d into whole hours and remaining minutes.
func HoursMinutes(d time.Duration) (int, int) {
	mins := int(d / time.Minute)
	return mins / 60, mins % 60
}

// Duration of the shift; see ShiftDuration.
func (s Shift) Duration() (time.Duration, error) {
	return ShiftDuration(s.StartTime, s.EndTime)
}

func decodeShift(m map[string]any) Shift {
	return Shift{
		ID:        integer(m, "id"),
		Name:      str(m, "name"),
		StartTime: str(m, "start_time"),
		EndTime:   str(m, "end_time"),
		BreakTime: ref(m, "break_time", "break_time_id"),
		UserID:    integer(m, "user_id", "user"),
	}
}

func decodeBreakTime(m map[string]any) BreakTime {
	return BreakTime{
		ID:        integer(m, "id"),
		Name:      str(m, "name"),
		StartTime: str(m, "start_time"),
		EndTime:   str(m, "end_time"),
		UserID:    integer(m, "user_id", "user"),
	}
}

var shiftsOp = listOp[Shift]{
	name:     "shifts.list",
	path:     shiftsPath,
	policy:   Fallback,
	decode:   decodeShift,
	fixtures: fixtureShifts,
}

var breakTimesOp = listOp[BreakTime]{
	name:     "break_times.list",
	path:     breakTimesPath,
	policy:   Fallback,
	decode:   decodeBreakTime,
	fixtures: fixtureBreakTimes,
}

func (s *Service) Shifts(ctx context.Context) ([]Shift, error) {
	return runList(ctx, s, shiftsOp, s.ownerQuery())
}

func (s *Service) CreateShift(ctx context.Context, in ShiftInput) (Shift, error) {
	p := map[string]any{
		"name":       in.Name,
		"start_time": in.StartTime,
		"end_time":   in.EndTime,
	}
	putRef(p, "break_time", in.BreakTime)
	m, err := s.create(ctx, "shift.create", shiftsPath, p)
	if err != nil {
		return Shift{}, err
	}
	return decodeShift(m), nil
}

// ShiftUpdatePayload contains exactly the fields set in the patch.
func ShiftUpdatePayload(in ShiftPatch) map[string]any {
	p := map[string]any{}
	putStr(p, "name", in.Name)
	putStr(p, "start_time", in.StartTime)
	putStr(p, "end_time", in.EndTime)
	putRefPtr(p, "break_time", in.BreakTime)
	return p
}

func (s *Service) UpdateShift(ctx context.Context, id int, in ShiftPatch) (Shift, error) {
	m, err := s.update(ctx, "shift.update", shiftsPath, id, ShiftUpdatePayload(in))
	if err != nil {
		return Shift{}, err
	}
	return decodeShift(m), nil
}

func (s *Service) DeleteShift(ctx context.Context, id int) error {
	return s.remove(ctx, "shift.delete", shiftsPath, id)
}

func (s *Service) BreakTimes(ctx context.Context) ([]BreakTime, error) {
	return runList(ctx, s, breakTimesOp, s.ownerQuery())
}

func (s *Service) CreateBreakTime(ctx context.Context, in BreakTimeInput) (BreakTime, error) {
	p := map[string]any{
		"name":       in.Name,
		"start_time": in.StartTime,
		"end_time":   in.EndTime,
	}
	m, err := s.create(ctx, "break_time.create", breakTimesPath, p)
	if err != nil {
		return BreakTime{}, err
	}
	return decodeBreakTime(m), nil
}

// BreakTimeUpdatePayload contains exactly the fields set in the patch.
func BreakTimeUpdatePayload(in BreakTimePatch) map[string]any {
	p := map[string]any{}
	putStr(p, "name", in.Name)
	putStr(p, "start_time", in.StartTime)
	putStr(p, "end_time", in.EndTime)
	return p
}

func (s *Service) UpdateBreakTime(ctx context.Context, id int, in BreakTimePatch) (BreakTime, error) {
	m, err := s.update(ctx, "break_time.update", breakTimesPath, id, BreakTimeUpdatePayload(in))
	if err != nil {
		return BreakTime{}, err
	}
	return decodeBreakTime(m), nil
}

func (s *Service) DeleteBreakTime(ctx context.Context, id int) error {
	return s.remove(ctx, "break_time.delete", breakTimesPath, id)
}
