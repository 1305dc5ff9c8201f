// Package notify is the reminder collaborator. It exposes the narrow
// Schedule/Cancel interface the engine talks to; actual delivery to
// an OS notification service is out of scope, so the default
// implementation runs in-process timers and hands firing reminders to
// a callback.
package notify

import (
	"fmt"
	"sync"
	"time"

	"timecard/internal/domain"
	"timecard/internal/timeutil"
)

// Scheduler schedules and cancels per-action reminders. Failures are
// reported to the caller, which logs and swallows them; a reminder
// problem never blocks a state transition.
type Scheduler interface {
	Schedule(action domain.ActionType, day string, shift domain.ShiftConfig) error
	Cancel(action domain.ActionType, day string) error
}

// Nop ignores every request. Used by the CLI one-shot commands where
// no process outlives the call.
type Nop struct{}

func (Nop) Schedule(domain.ActionType, string, domain.ShiftConfig) error { return nil }
func (Nop) Cancel(domain.ActionType, string) error                      { return nil }

// Timers keeps one in-process timer per (action, day).
type Timers struct {
	Now         func() time.Time
	LeadMinutes int
	// Fire receives reminders that come due.
	Fire func(action domain.ActionType, day string)

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewTimers(leadMinutes int, fire func(domain.ActionType, string)) *Timers {
	return &Timers{
		Now:         time.Now,
		LeadMinutes: leadMinutes,
		Fire:        fire,
		timers:      make(map[string]*time.Timer),
	}
}

// Schedule arms a reminder ahead of the action's target instant. A
// target already in the past yields no alarm; rescheduling for a
// future occurrence is the caller's decision.
func (t *Timers) Schedule(action domain.ActionType, day string, shift domain.ShiftConfig) error {
	now := t.Now()
	target, err := targetInstant(now, action, shift)
	if err != nil {
		return err
	}
	at, ok := timeutil.AlarmTime(target, t.LeadMinutes, now)
	if !ok {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	k := key(action, day)
	if old, exists := t.timers[k]; exists {
		old.Stop()
	}
	t.timers[k] = time.AfterFunc(at.Sub(now), func() {
		if t.Fire != nil {
			t.Fire(action, day)
		}
	})
	return nil
}

// Cancel stops a pending reminder, if any.
func (t *Timers) Cancel(action domain.ActionType, day string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := key(action, day)
	if timer, ok := t.timers[k]; ok {
		timer.Stop()
		delete(t.timers, k)
	}
	return nil
}

func key(action domain.ActionType, day string) string {
	return day + "/" + string(action)
}

// targetInstant maps an action to the shift instant it reminds about.
func targetInstant(now time.Time, action domain.ActionType, shift domain.ShiftConfig) (time.Time, error) {
	var clock string
	switch action {
	case domain.ActionGoWork, domain.ActionCheckIn:
		clock = shift.StartTime
	case domain.ActionCheckOut, domain.ActionComplete:
		clock = shift.EndTime
	case domain.ActionPunch:
		clock = shift.OfficeEndTime
	default:
		return time.Time{}, fmt.Errorf("no reminder target for action %s", action)
	}
	target, err := timeutil.ParseClock(now, clock)
	if err != nil {
		return time.Time{}, err
	}
	// overnight shifts end on the following day
	if action == domain.ActionCheckOut || action == domain.ActionComplete || action == domain.ActionPunch {
		if shift.Overnight() {
			start, serr := timeutil.ParseClock(now, shift.StartTime)
			if serr == nil {
				_, target = timeutil.NormalizeInterval(start, target)
			}
		}
	}
	return target, nil
}
