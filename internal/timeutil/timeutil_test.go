package timeutil

import (
	"testing"
	"time"
)

func at(h, m int) time.Time {
	return time.Date(2024, 3, 4, h, m, 0, 0, time.UTC)
}

func TestNormalizeIntervalOvernight(t *testing.T) {
	start, end := NormalizeInterval(at(22, 0), at(6, 0))
	if !end.After(start) {
		t.Fatalf("end not advanced: %v %v", start, end)
	}
	if got := end.Day(); got != 5 {
		t.Fatalf("expected next-day end, got day %d", got)
	}
}

func TestNormalizeIntervalSameInstant(t *testing.T) {
	_, end := NormalizeInterval(at(9, 0), at(9, 0))
	if end.Day() != 5 {
		t.Fatalf("equal instants must normalize to next day")
	}
}

func TestNormalizeIntervalDoesNotMutate(t *testing.T) {
	in := at(6, 0)
	NormalizeInterval(at(22, 0), in)
	if in.Day() != 4 {
		t.Fatalf("input mutated")
	}
}

func TestDurationMinutes(t *testing.T) {
	cases := []struct {
		name       string
		start, end time.Time
		want       int
	}{
		{"same day", at(9, 0), at(17, 30), 510},
		{"overnight", at(22, 0), at(6, 0), 480},
		{"overnight with minutes", at(22, 5), at(6, 10), 485},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DurationMinutes(tc.start, tc.end); got != tc.want {
				t.Fatalf("got %d want %d", got, tc.want)
			}
		})
	}
}

func TestAlarmTime(t *testing.T) {
	now := at(8, 0)
	if _, ok := AlarmTime(at(8, 20), 30, now); ok {
		t.Fatalf("alarm in the past must report no alarm")
	}
	got, ok := AlarmTime(at(9, 0), 30, now)
	if !ok {
		t.Fatalf("expected alarm")
	}
	if !got.Equal(at(8, 30)) {
		t.Fatalf("got %v want 08:30", got)
	}
	// exactly now is not strictly after now
	if _, ok := AlarmTime(at(8, 30), 30, now); ok {
		t.Fatalf("alarm at now must report no alarm")
	}
}

func TestParseClock(t *testing.T) {
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	got, err := ParseClock(day, "08:30")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(at(8, 30)) {
		t.Fatalf("got %v", got)
	}
	if _, err := ParseClock(day, "25:99"); err == nil {
		t.Fatalf("expected error for malformed clock")
	}
}

func TestRoundUpMinutes(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, 0}, {-10, 0}, {1, 30}, {5, 30}, {17, 30}, {29, 30}, {30, 30}, {31, 60}, {60, 60}, {61, 90},
	}
	for _, tc := range cases {
		if got := RoundUpMinutes(tc.in, 30); got != tc.want {
			t.Fatalf("RoundUpMinutes(%d)=%d want %d", tc.in, got, tc.want)
		}
	}
}

func TestRound2(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{0.375, 0.38}, {1.004, 1.0}, {9.0, 9.0}, {0.125, 0.13}, {8.4999, 8.5},
	}
	for _, tc := range cases {
		if got := Round2(tc.in); got != tc.want {
			t.Fatalf("Round2(%v)=%v want %v", tc.in, got, tc.want)
		}
	}
}
