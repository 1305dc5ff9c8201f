// Package sequencer owns the per-day attendance state machine:
// idle -> go_work -> check_in -> [punch] -> check_out -> complete.
// The punch step only appears when the shift enables it and never
// gates the transition to check_out. Reduced (only-go-work) mode
// short-circuits the whole sequence to a single action.
package sequencer

import (
	"time"

	"timecard/internal/domain"
)

// NextAction returns the action permitted from the current status
// under the given shift flags. Complete is terminal.
func NextAction(status domain.ActionType, shift domain.ShiftConfig) domain.ActionType {
	if shift.OnlyGoWorkMode && status != domain.ActionGoWork {
		return domain.ActionGoWork
	}
	switch status {
	case domain.SessionIdle:
		return domain.ActionGoWork
	case domain.ActionGoWork:
		return domain.ActionCheckIn
	case domain.ActionCheckIn:
		if shift.ShowPunch {
			return domain.ActionPunch
		}
		return domain.ActionCheckOut
	case domain.ActionPunch:
		return domain.ActionCheckOut
	case domain.ActionCheckOut:
		return domain.ActionComplete
	default:
		return domain.ActionComplete
	}
}

// Apply records one action on the session. A completed session is
// left unchanged and applied=false is returned; duplicate actions
// keep the first timestamp, matching the accounting engine's
// first-occurrence semantics.
func Apply(s domain.Session, action domain.ActionType, ts time.Time) (domain.Session, bool) {
	if s.Status == domain.ActionComplete {
		return s, false
	}
	if !action.Valid() {
		return s, false
	}
	if stampFor(s, action) != nil {
		return s, false
	}
	switch action {
	case domain.ActionGoWork:
		s.GoWorkAt = &ts
	case domain.ActionCheckIn:
		s.CheckInAt = &ts
	case domain.ActionPunch:
		s.PunchAt = &ts
	case domain.ActionCheckOut:
		s.CheckOutAt = &ts
	case domain.ActionComplete:
		s.CompleteAt = &ts
	}
	s.Status = action
	return s, true
}

// Reset returns a fresh idle session for the day. Clearing the
// persisted event log is the caller's job; any previously computed
// daily status must be recomputed afterwards.
func Reset(day string) domain.Session {
	return domain.Session{Day: day, Status: domain.SessionIdle}
}

// Replay rebuilds a session from the persisted event log. The log is
// the source of truth: replaying the same log always reproduces the
// same session.
func Replay(day string, events []domain.Event) domain.Session {
	s := Reset(day)
	for _, e := range events {
		s, _ = Apply(s, e.Type, e.TS)
	}
	return s
}

func stampFor(s domain.Session, action domain.ActionType) *time.Time {
	switch action {
	case domain.ActionGoWork:
		return s.GoWorkAt
	case domain.ActionCheckIn:
		return s.CheckInAt
	case domain.ActionPunch:
		return s.PunchAt
	case domain.ActionCheckOut:
		return s.CheckOutAt
	case domain.ActionComplete:
		return s.CompleteAt
	}
	return nil
}
