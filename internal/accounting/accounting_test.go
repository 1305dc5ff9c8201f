package accounting_test

import (
	"reflect"
	"testing"
	"time"

	"timecard/internal/accounting"
	"timecard/internal/domain"
)

var dayShift = &domain.ShiftConfig{
	ID:            "day",
	StartTime:     "08:30",
	OfficeEndTime: "17:30",
	EndTime:       "19:00",
}

func ts(day, h, m int) time.Time {
	return time.Date(2024, 3, day, h, m, 0, 0, time.UTC)
}

func ev(t domain.ActionType, at time.Time) domain.Event {
	return domain.Event{Day: "2024-03-04", Type: t, TS: at}
}

func TestEmptyLogIsUnknown(t *testing.T) {
	got := accounting.ComputeDailyStatus(nil, dayShift)
	if got.Status != domain.StatusUnknown {
		t.Fatalf("status %s", got.Status)
	}
	if got.TotalWorkHours != 0 || got.OvertimeHours != 0 {
		t.Fatalf("expected zeroed metrics: %+v", got)
	}
}

func TestMissingShiftIsUnknown(t *testing.T) {
	events := []domain.Event{ev(domain.ActionCheckIn, ts(4, 8, 30))}
	if got := accounting.ComputeDailyStatus(events, nil); got.Status != domain.StatusUnknown {
		t.Fatalf("status %s", got.Status)
	}
}

func TestOnTimeDayIsComplete(t *testing.T) {
	events := []domain.Event{
		ev(domain.ActionCheckIn, ts(4, 8, 30)),
		ev(domain.ActionCheckOut, ts(4, 17, 30)),
	}
	got := accounting.ComputeDailyStatus(events, dayShift)
	if got.Status != domain.StatusComplete {
		t.Fatalf("status %s: %+v", got.Status, got)
	}
	if got.TotalWorkHours != 9.0 {
		t.Fatalf("total %v", got.TotalWorkHours)
	}
	if got.Remarks != "" {
		t.Fatalf("remarks %q", got.Remarks)
	}
}

func TestLateRoundsUpToHalfHour(t *testing.T) {
	cases := []struct {
		name     string
		in       time.Time
		wantRem  string
		wantStat domain.DerivedStatus
	}{
		{"17 minutes late", ts(4, 8, 47), "Late 30m.", domain.StatusRV},
		{"exactly 30 late", ts(4, 9, 0), "Late 30m.", domain.StatusRV},
		{"31 minutes late", ts(4, 9, 1), "Late 60m.", domain.StatusRV},
		{"on time", ts(4, 8, 30), "", domain.StatusComplete},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events := []domain.Event{
				ev(domain.ActionCheckIn, tc.in),
				ev(domain.ActionCheckOut, ts(4, 17, 30)),
			}
			got := accounting.ComputeDailyStatus(events, dayShift)
			if got.Status != tc.wantStat {
				t.Fatalf("status %s", got.Status)
			}
			if got.Remarks != tc.wantRem {
				t.Fatalf("remarks %q want %q", got.Remarks, tc.wantRem)
			}
		})
	}
}

func TestPenaltyMinutesReduceCreditedTime(t *testing.T) {
	// 17 minutes late: raw span 523m, minus 30m penalty = 493m.
	events := []domain.Event{
		ev(domain.ActionCheckIn, ts(4, 8, 47)),
		ev(domain.ActionCheckOut, ts(4, 17, 30)),
	}
	got := accounting.ComputeDailyStatus(events, dayShift)
	if got.TotalWorkHours != 8.22 {
		t.Fatalf("total %v", got.TotalWorkHours)
	}
}

func TestEarlyLeave(t *testing.T) {
	events := []domain.Event{
		ev(domain.ActionCheckIn, ts(4, 8, 30)),
		ev(domain.ActionCheckOut, ts(4, 17, 0)),
	}
	got := accounting.ComputeDailyStatus(events, dayShift)
	if got.Status != domain.StatusRV {
		t.Fatalf("status %s", got.Status)
	}
	if got.Remarks != "Early leave 30m." {
		t.Fatalf("remarks %q", got.Remarks)
	}
}

func TestOvertimeClampedAtShiftEnd(t *testing.T) {
	events := []domain.Event{
		ev(domain.ActionCheckIn, ts(4, 8, 30)),
		ev(domain.ActionCheckOut, ts(4, 19, 45)),
	}
	got := accounting.ComputeDailyStatus(events, dayShift)
	if got.Status != domain.StatusComplete {
		t.Fatalf("status %s", got.Status)
	}
	// office end 17:30, shift end 19:00: checkout 19:45 credits 1.5h only.
	if got.OvertimeHours != 1.5 {
		t.Fatalf("overtime %v", got.OvertimeHours)
	}
	if got.Remarks != "OT 1.50h." {
		t.Fatalf("remarks %q", got.Remarks)
	}
}

func TestOvernightShift(t *testing.T) {
	night := &domain.ShiftConfig{
		ID:            "night",
		StartTime:     "22:00",
		OfficeEndTime: "06:00",
		EndTime:       "06:00",
	}
	events := []domain.Event{
		ev(domain.ActionCheckIn, ts(4, 22, 5)),
		ev(domain.ActionCheckOut, ts(5, 6, 10)),
	}
	got := accounting.ComputeDailyStatus(events, night)
	if got.Status != domain.StatusRV {
		t.Fatalf("status %s: %+v", got.Status, got)
	}
	if got.Remarks != "Late 30m." {
		t.Fatalf("remarks %q", got.Remarks)
	}
	// 485 raw minutes minus 30 late.
	if got.TotalWorkHours != 7.58 {
		t.Fatalf("total %v", got.TotalWorkHours)
	}
	if got.OvertimeHours != 0 {
		t.Fatalf("overtime %v", got.OvertimeHours)
	}
}

func TestOnlyGoWorkModeCreditsScheduledSpan(t *testing.T) {
	shift := &domain.ShiftConfig{
		ID:             "reduced",
		StartTime:      "08:30",
		OfficeEndTime:  "17:30",
		EndTime:        "17:30",
		OnlyGoWorkMode: true,
	}
	events := []domain.Event{ev(domain.ActionGoWork, ts(4, 8, 0))}
	got := accounting.ComputeDailyStatus(events, shift)
	if got.Status != domain.StatusComplete {
		t.Fatalf("status %s", got.Status)
	}
	if got.TotalWorkHours != 9.0 {
		t.Fatalf("total %v, want scheduled span not elapsed time", got.TotalWorkHours)
	}
	if got.CheckInTime != "08:30:00" || got.CheckOutTime != "17:30:00" {
		t.Fatalf("effective pair %s-%s", got.CheckInTime, got.CheckOutTime)
	}
}

func TestGoWorkWithoutReducedModeIsIncomplete(t *testing.T) {
	events := []domain.Event{ev(domain.ActionGoWork, ts(4, 8, 0))}
	got := accounting.ComputeDailyStatus(events, dayShift)
	if got.Status != domain.StatusIncomplete {
		t.Fatalf("status %s", got.Status)
	}
	if got.Remarks != "missing punch" {
		t.Fatalf("remarks %q", got.Remarks)
	}
}

func TestMissingCheckOutIsIncomplete(t *testing.T) {
	events := []domain.Event{ev(domain.ActionCheckIn, ts(4, 8, 30))}
	got := accounting.ComputeDailyStatus(events, dayShift)
	if got.Status != domain.StatusIncomplete {
		t.Fatalf("status %s", got.Status)
	}
	if got.CheckInTime != "08:30:00" || got.CheckOutTime != "" {
		t.Fatalf("times %q %q", got.CheckInTime, got.CheckOutTime)
	}
	if got.TotalWorkHours != 0 {
		t.Fatalf("metrics not zeroed: %+v", got)
	}
}

func TestLonePunchIsIncomplete(t *testing.T) {
	events := []domain.Event{ev(domain.ActionPunch, ts(4, 12, 0))}
	if got := accounting.ComputeDailyStatus(events, dayShift); got.Status != domain.StatusIncomplete {
		t.Fatalf("status %s", got.Status)
	}
}

func TestCompleteEventCreditsScheduledSpan(t *testing.T) {
	events := []domain.Event{ev(domain.ActionComplete, ts(4, 18, 0))}
	got := accounting.ComputeDailyStatus(events, dayShift)
	if got.Status != domain.StatusComplete {
		t.Fatalf("status %s", got.Status)
	}
	// scheduled span 08:30-19:00
	if got.TotalWorkHours != 10.5 {
		t.Fatalf("total %v", got.TotalWorkHours)
	}
	// effective checkout is the scheduled end, past office end 17:30
	if got.OvertimeHours != 1.5 || got.Remarks != "OT 1.50h." {
		t.Fatalf("overtime %v remarks %q", got.OvertimeHours, got.Remarks)
	}
}

func TestFirstDuplicateWins(t *testing.T) {
	events := []domain.Event{
		ev(domain.ActionCheckIn, ts(4, 8, 30)),
		ev(domain.ActionCheckIn, ts(4, 9, 30)),
		ev(domain.ActionCheckOut, ts(4, 17, 30)),
	}
	got := accounting.ComputeDailyStatus(events, dayShift)
	if got.Status != domain.StatusComplete {
		t.Fatalf("later duplicate must be ignored, got %s (%q)", got.Status, got.Remarks)
	}
	if got.CheckInTime != "08:30:00" {
		t.Fatalf("check-in %s", got.CheckInTime)
	}
}

func TestUnsortedInputTolerated(t *testing.T) {
	events := []domain.Event{
		ev(domain.ActionCheckOut, ts(4, 17, 30)),
		ev(domain.ActionCheckIn, ts(4, 8, 30)),
	}
	got := accounting.ComputeDailyStatus(events, dayShift)
	if got.Status != domain.StatusComplete {
		t.Fatalf("status %s", got.Status)
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	events := []domain.Event{
		ev(domain.ActionCheckIn, ts(4, 8, 47)),
		ev(domain.ActionCheckOut, ts(4, 19, 45)),
	}
	a := accounting.ComputeDailyStatus(events, dayShift)
	b := accounting.ComputeDailyStatus(events, dayShift)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("outputs differ:\n%+v\n%+v", a, b)
	}
}

func TestMalformedShiftYieldsUnknown(t *testing.T) {
	bad := &domain.ShiftConfig{StartTime: "8h30", OfficeEndTime: "17:30", EndTime: "19:00"}
	events := []domain.Event{
		ev(domain.ActionCheckIn, ts(4, 8, 30)),
		ev(domain.ActionCheckOut, ts(4, 17, 30)),
	}
	got := accounting.ComputeDailyStatus(events, bad)
	if got.Status != domain.StatusUnknown {
		t.Fatalf("status %s", got.Status)
	}
}
