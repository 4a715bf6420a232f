package crm

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestShiftDuration(t *testing.T) {
	cases := []struct {
		start, end string
		hours, min int
	}{
		{"09:00:00", "18:00:00", 9, 0},
		{"22:00:00", "06:00:00", 8, 0},
		{"08:30", "17:15", 8, 45},
		{"00:00", "00:00", 24, 0},
		{"23:45:00", "00:15:00", 0, 30},
	}
	for _, tc := range cases {
		d, err := ShiftDuration(tc.start, tc.end)
		if err != nil {
			t.Fatalf("ShiftDuration(%q, %q): %v", tc.start, tc.end, err)
		}
		h, m := HoursMinutes(d)
		if h != tc.hours || m != tc.min {
			t.Fatalf("ShiftDuration(%q, %q) = %dh%dm, want %dh%dm", tc.start, tc.end, h, m, tc.hours, tc.min)
		}
	}
}

func TestShiftDurationRejectsBadInput(t *testing.T) {
	for _, in := range []string{"", "9", "25:00", "10:60", "ab:cd", "10:00:00:00"} {
		if _, err := ShiftDuration(in, "10:00"); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("ShiftDuration(%q) expected ErrInvalidInput, got %v", in, err)
		}
	}
}

func TestShiftMethodDuration(t *testing.T) {
	d, err := Shift{StartTime: "09:00:00", EndTime: "18:00:00"}.Duration()
	if err != nil || d != 9*time.Hour {
		t.Fatalf("Duration = %v, %v", d, err)
	}
}

func TestNormalizeDays(t *testing.T) {
	got := NormalizeDays([]string{"Sunday", "mon", "MON", "xyz", " fri "})
	want := []Weekday{"mon", "fri", "sun"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("NormalizeDays = %v, want %v", got, want)
	}
	if got := NormalizeDays(nil); len(got) != 0 || got == nil {
		t.Fatalf("NormalizeDays(nil) = %#v", got)
	}
}

func TestDecodeCalendarAcceptsCommaList(t *testing.T) {
	c := decodeCalendar(map[string]any{"id": 1.0, "name": "Dam olish", "days": "sat, sun"})
	if !reflect.DeepEqual(c.Days, []Weekday{"sat", "sun"}) {
		t.Fatalf("days = %v", c.Days)
	}
}

func TestNormalizeDeviceStatus(t *testing.T) {
	cases := map[string]DeviceStatus{
		"active":   DeviceActive,
		"Online":   DeviceActive,
		"error":    DeviceError,
		"":         DeviceInactive,
		"offline":  DeviceInactive,
		"inactive": DeviceInactive,
	}
	for in, want := range cases {
		if got := normalizeStatus(in); got != want {
			t.Fatalf("normalizeStatus(%q) = %q, want %q", in, got, want)
		}
	}
}
