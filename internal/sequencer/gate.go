package sequencer

import (
	"fmt"
	"time"

	"timecard/internal/domain"
	"timecard/internal/timeutil"
)

// Gate is the optional affordance layer on top of the state machine.
// It answers "should the button be enabled right now"; the underlying
// transition stays valid either way, so Apply never consults it.
type Gate struct {
	Now func() time.Time
	// CheckInLead is how long before shift start the check-in
	// affordance opens.
	CheckInLead time.Duration
	// AutoResetAfter expires a stale session; zero disables.
	AutoResetAfter time.Duration
}

// DefaultGate matches the historical gating policy: check-in opens
// 30 minutes before shift start, sessions never auto-expire.
func DefaultGate() Gate {
	return Gate{Now: time.Now, CheckInLead: 30 * time.Minute}
}

func (g Gate) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

// Allowed reports whether the next action's affordance is open, with
// a human reason when it is not.
func (g Gate) Allowed(s domain.Session, next domain.ActionType, shift domain.ShiftConfig) (bool, string) {
	now := g.now()
	switch next {
	case domain.ActionCheckIn:
		start, err := timeutil.ParseClock(now, shift.StartTime)
		if err != nil {
			return true, ""
		}
		open := start.Add(-g.CheckInLead)
		if now.Before(open) {
			return false, fmt.Sprintf("check-in opens at %s", open.Format("15:04"))
		}
	case domain.ActionCheckOut:
		if shift.MinWorkHours == nil || s.CheckInAt == nil {
			return true, ""
		}
		need := time.Duration(*shift.MinWorkHours * float64(time.Hour))
		if elapsed := now.Sub(*s.CheckInAt); elapsed < need {
			return false, fmt.Sprintf("check-out opens after %.1fh of work", *shift.MinWorkHours)
		}
	}
	return true, ""
}

// ShouldReset reports whether the session is old enough to expire
// under the auto-reset policy.
func (g Gate) ShouldReset(s domain.Session) bool {
	if g.AutoResetAfter <= 0 {
		return false
	}
	first := firstStamp(s)
	if first == nil {
		return false
	}
	return g.now().Sub(*first) >= g.AutoResetAfter
}

func firstStamp(s domain.Session) *time.Time {
	for _, t := range []*time.Time{s.GoWorkAt, s.CheckInAt, s.PunchAt, s.CheckOutAt, s.CompleteAt} {
		if t != nil {
			return t
		}
	}
	return nil
}
