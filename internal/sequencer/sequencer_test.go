package sequencer_test

import (
	"testing"
	"time"

	"timecard/internal/domain"
	"timecard/internal/sequencer"
)

func ts(h, m int) time.Time {
	return time.Date(2024, 3, 4, h, m, 0, 0, time.UTC)
}

func TestFullSequenceWithoutPunch(t *testing.T) {
	shift := domain.ShiftConfig{ShowPunch: false}
	s := sequencer.Reset("2024-03-04")
	want := []domain.ActionType{
		domain.ActionGoWork,
		domain.ActionCheckIn,
		domain.ActionCheckOut,
		domain.ActionComplete,
	}
	for i, a := range want {
		if next := sequencer.NextAction(s.Status, shift); next != a {
			t.Fatalf("step %d: next %s want %s", i, next, a)
		}
		var ok bool
		s, ok = sequencer.Apply(s, a, ts(8+i, 0))
		if !ok {
			t.Fatalf("step %d: apply refused", i)
		}
	}
	if s.Status != domain.ActionComplete {
		t.Fatalf("status %s", s.Status)
	}
}

func TestPunchStepOnlyWhenEnabled(t *testing.T) {
	s := sequencer.Reset("2024-03-04")
	s, _ = sequencer.Apply(s, domain.ActionGoWork, ts(8, 0))
	s, _ = sequencer.Apply(s, domain.ActionCheckIn, ts(8, 30))

	if next := sequencer.NextAction(s.Status, domain.ShiftConfig{ShowPunch: true}); next != domain.ActionPunch {
		t.Fatalf("next %s want punch", next)
	}
	if next := sequencer.NextAction(s.Status, domain.ShiftConfig{ShowPunch: false}); next != domain.ActionCheckOut {
		t.Fatalf("next %s want check_out", next)
	}

	// punch is optional: check_out applies directly from check_in
	out, ok := sequencer.Apply(s, domain.ActionCheckOut, ts(17, 30))
	if !ok || out.Status != domain.ActionCheckOut {
		t.Fatalf("check_out from check_in refused")
	}
}

func TestCompleteIsTerminalNoOp(t *testing.T) {
	s := sequencer.Reset("2024-03-04")
	s, _ = sequencer.Apply(s, domain.ActionComplete, ts(18, 0))
	before := s
	for _, a := range []domain.ActionType{domain.ActionGoWork, domain.ActionCheckIn, domain.ActionCheckOut, domain.ActionComplete} {
		got, ok := sequencer.Apply(s, a, ts(19, 0))
		if ok {
			t.Fatalf("action %s applied on completed session", a)
		}
		if got != before {
			t.Fatalf("completed session mutated by %s", a)
		}
	}
	if next := sequencer.NextAction(s.Status, domain.ShiftConfig{}); next != domain.ActionComplete {
		t.Fatalf("next %s want complete", next)
	}
}

func TestReducedModeShortCircuits(t *testing.T) {
	shift := domain.ShiftConfig{OnlyGoWorkMode: true}
	if next := sequencer.NextAction(domain.SessionIdle, shift); next != domain.ActionGoWork {
		t.Fatalf("next %s", next)
	}
	// even a mid-sequence status yields go_work in reduced mode
	if next := sequencer.NextAction(domain.ActionCheckIn, shift); next != domain.ActionGoWork {
		t.Fatalf("next %s", next)
	}
}

func TestDuplicateActionKeepsFirstTimestamp(t *testing.T) {
	s := sequencer.Reset("2024-03-04")
	s, _ = sequencer.Apply(s, domain.ActionCheckIn, ts(8, 30))
	s, ok := sequencer.Apply(s, domain.ActionCheckIn, ts(9, 30))
	if ok {
		t.Fatalf("duplicate applied")
	}
	if !s.CheckInAt.Equal(ts(8, 30)) {
		t.Fatalf("first timestamp lost: %v", s.CheckInAt)
	}
}

func TestReplayReproducesSession(t *testing.T) {
	events := []domain.Event{
		{Day: "2024-03-04", Type: domain.ActionGoWork, TS: ts(8, 0)},
		{Day: "2024-03-04", Type: domain.ActionCheckIn, TS: ts(8, 30)},
		{Day: "2024-03-04", Type: domain.ActionCheckOut, TS: ts(17, 30)},
	}
	s := sequencer.Replay("2024-03-04", events)
	if s.Status != domain.ActionCheckOut {
		t.Fatalf("status %s", s.Status)
	}
	if s.CheckInAt == nil || !s.CheckInAt.Equal(ts(8, 30)) {
		t.Fatalf("check-in %v", s.CheckInAt)
	}
	again := sequencer.Replay("2024-03-04", events)
	if s.Status != again.Status || !s.CheckOutAt.Equal(*again.CheckOutAt) {
		t.Fatalf("replay not deterministic")
	}
}

func TestResetClearsSession(t *testing.T) {
	s := sequencer.Replay("2024-03-04", []domain.Event{
		{Type: domain.ActionCheckIn, TS: ts(8, 30)},
	})
	s = sequencer.Reset(s.Day)
	if s.Status != domain.SessionIdle || s.CheckInAt != nil {
		t.Fatalf("reset incomplete: %+v", s)
	}
}

func TestGateCheckInLead(t *testing.T) {
	shift := domain.ShiftConfig{StartTime: "08:30", OfficeEndTime: "17:30", EndTime: "17:30"}
	g := sequencer.DefaultGate()

	g.Now = func() time.Time { return ts(7, 30) }
	if ok, reason := g.Allowed(domain.Session{}, domain.ActionCheckIn, shift); ok || reason == "" {
		t.Fatalf("check-in should be gated at 07:30")
	}
	g.Now = func() time.Time { return ts(8, 0) }
	if ok, _ := g.Allowed(domain.Session{}, domain.ActionCheckIn, shift); !ok {
		t.Fatalf("check-in should open 30m before start")
	}
}

func TestGateMinWorkHours(t *testing.T) {
	min := 8.0
	shift := domain.ShiftConfig{StartTime: "08:30", OfficeEndTime: "17:30", EndTime: "17:30", MinWorkHours: &min}
	in := ts(8, 30)
	s := domain.Session{Status: domain.ActionCheckIn, CheckInAt: &in}
	g := sequencer.DefaultGate()

	g.Now = func() time.Time { return ts(15, 0) }
	if ok, _ := g.Allowed(s, domain.ActionCheckOut, shift); ok {
		t.Fatalf("check-out should be gated before min work hours")
	}
	g.Now = func() time.Time { return ts(16, 30) }
	if ok, _ := g.Allowed(s, domain.ActionCheckOut, shift); !ok {
		t.Fatalf("check-out should open after min work hours")
	}
}

func TestGateAutoReset(t *testing.T) {
	in := ts(8, 30)
	s := domain.Session{Status: domain.ActionCheckIn, CheckInAt: &in}
	g := sequencer.Gate{AutoResetAfter: 20 * time.Hour}

	g.Now = func() time.Time { return ts(23, 0) }
	if g.ShouldReset(s) {
		t.Fatalf("session expired too early")
	}
	g.Now = func() time.Time { return ts(8, 30).Add(21 * time.Hour) }
	if !g.ShouldReset(s) {
		t.Fatalf("session should expire")
	}
	if g.ShouldReset(domain.Session{}) {
		t.Fatalf("idle session must not expire")
	}
}
