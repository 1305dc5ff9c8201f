package timeutil

import (
	"fmt"
	"time"
)

// NormalizeInterval returns (start, end) with end advanced by one
// calendar day when end is not after start. This is how a checkout
// after midnight is attributed to the previous day's shift. Inputs
// are never mutated.
func NormalizeInterval(start, end time.Time) (time.Time, time.Time) {
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}
	return start, end
}

// DurationMinutes returns the whole minutes between start and the
// normalized end. Non-negative by construction.
func DurationMinutes(start, end time.Time) int {
	start, end = NormalizeInterval(start, end)
	return int(end.Sub(start).Minutes())
}

// AlarmTime returns target minus lead minutes, or ok=false when that
// instant is not strictly after now. The caller decides whether to
// reschedule for a later occurrence.
func AlarmTime(target time.Time, leadMinutes int, now time.Time) (time.Time, bool) {
	at := target.Add(-time.Duration(leadMinutes) * time.Minute)
	if !at.After(now) {
		return time.Time{}, false
	}
	return at, true
}

// ParseClock parses an "HH:mm" wall-clock string onto the given day,
// in the day's location.
func ParseClock(day time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("clock time %q: %w", hhmm, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), nil
}

// RoundUpMinutes rounds n up to the next multiple of step. Exact
// multiples are kept as-is; non-positive n yields 0.
func RoundUpMinutes(n, step int) int {
	if n <= 0 {
		return 0
	}
	if rem := n % step; rem != 0 {
		n += step - rem
	}
	return n
}

// Round2 rounds hours to two decimals, half up. Applied only at the
// formatting boundary so remarks always match the reported figure.
func Round2(hours float64) float64 {
	if hours >= 0 {
		return float64(int64(hours*100+0.5)) / 100
	}
	return -float64(int64(-hours*100+0.5)) / 100
}
