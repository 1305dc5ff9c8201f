// Package accounting classifies one day's attendance from its event
// log and shift configuration. ComputeDailyStatus is pure: identical
// input always yields identical output, no clock, no I/O.
package accounting

import (
	"fmt"
	"strings"
	"time"

	"timecard/internal/domain"
	"timecard/internal/timeutil"
)

// penaltyStep is the block size late and early-leave minutes are
// rounded up to.
const penaltyStep = 30

const clockFormat = "15:04:05"

// ComputeDailyStatus derives the daily classification and work-time
// metrics from the day's events and the shift configuration.
//
// Events are scanned in log order and only the first occurrence of
// each action type counts; later duplicates are ignored. This mirrors
// the historical behavior, so a corrective re-punch does not replace
// the original. See DESIGN.md before changing it.
func ComputeDailyStatus(events []domain.Event, shift *domain.ShiftConfig) domain.DailyStatus {
	out := domain.DailyStatus{Status: domain.StatusUnknown}
	if len(events) == 0 || shift == nil {
		return out
	}
	out.Day = events[0].Day

	goWork := firstOfType(events, domain.ActionGoWork)
	checkIn := firstOfType(events, domain.ActionCheckIn)
	checkOut := firstOfType(events, domain.ActionCheckOut)
	punch := firstOfType(events, domain.ActionPunch)
	complete := firstOfType(events, domain.ActionComplete)

	onlyGoWork := shift.OnlyGoWorkMode && goWork != nil &&
		checkIn == nil && checkOut == nil && punch == nil && complete == nil

	// Explicitly completed days are credited the scheduled span; days
	// with both punches are measured against the clock in the normal
	// branch below.
	if complete == nil && !onlyGoWork && (checkIn == nil || checkOut == nil) {
		return incompleteStatus(out, checkIn, checkOut)
	}

	anchor := anchorTime(goWork, checkIn, events)
	refs, err := shiftRefs(anchor, shift)
	if err != nil {
		out.Remarks = "invalid shift config"
		return out
	}

	if complete != nil || onlyGoWork {
		return completedStatus(out, refs, checkIn, checkOut)
	}
	return normalStatus(out, refs, checkIn.TS, checkOut.TS)
}

// shiftTimes are the shift's reference instants anchored on one day.
// End and OfficeEnd are already advanced past midnight for overnight
// shifts.
type shiftTimes struct {
	Start, OfficeEnd, End time.Time
}

func shiftRefs(day time.Time, shift *domain.ShiftConfig) (shiftTimes, error) {
	start, err := timeutil.ParseClock(day, shift.StartTime)
	if err != nil {
		return shiftTimes{}, err
	}
	officeEnd, err := timeutil.ParseClock(day, shift.OfficeEndTime)
	if err != nil {
		return shiftTimes{}, err
	}
	end, err := timeutil.ParseClock(day, shift.EndTime)
	if err != nil {
		return shiftTimes{}, err
	}
	_, officeEnd = timeutil.NormalizeInterval(start, officeEnd)
	_, end = timeutil.NormalizeInterval(start, end)
	return shiftTimes{Start: start, OfficeEnd: officeEnd, End: end}, nil
}

func firstOfType(events []domain.Event, t domain.ActionType) *domain.Event {
	for i := range events {
		if events[i].Type == t {
			return &events[i]
		}
	}
	return nil
}

// anchorTime picks the instant whose calendar day the shift's HH:mm
// references are resolved against.
func anchorTime(goWork, checkIn *domain.Event, events []domain.Event) time.Time {
	if checkIn != nil {
		return checkIn.TS
	}
	if goWork != nil {
		return goWork.TS
	}
	return events[0].TS
}

func incompleteStatus(out domain.DailyStatus, checkIn, checkOut *domain.Event) domain.DailyStatus {
	out.Status = domain.StatusIncomplete
	if checkIn != nil {
		out.CheckInTime = checkIn.TS.Format(clockFormat)
	}
	if checkOut != nil {
		out.CheckOutTime = checkOut.TS.Format(clockFormat)
	}
	out.Remarks = "missing punch"
	return out
}

// completedStatus credits the full scheduled span. Real punches, when
// both exist, only influence the displayed times and overtime.
func completedStatus(out domain.DailyStatus, refs shiftTimes, checkIn, checkOut *domain.Event) domain.DailyStatus {
	effIn, effOut := refs.Start, refs.End
	if checkIn != nil && checkOut != nil {
		effIn = checkIn.TS
		effIn, effOut = timeutil.NormalizeInterval(effIn, checkOut.TS)
	}
	var overtimeMin int
	if effOut.After(refs.OfficeEnd) {
		overtimeMin = timeutil.DurationMinutes(refs.OfficeEnd, effOut)
	}
	out.Status = domain.StatusComplete
	out.CheckInTime = effIn.Format(clockFormat)
	out.CheckOutTime = effOut.Format(clockFormat)
	out.TotalWorkHours = timeutil.Round2(float64(timeutil.DurationMinutes(refs.Start, refs.End)) / 60)
	out.OvertimeHours = timeutil.Round2(float64(overtimeMin) / 60)
	if overtimeMin > 0 {
		out.Remarks = fmt.Sprintf("OT %.2fh.", out.OvertimeHours)
	}
	return out
}

func normalStatus(out domain.DailyStatus, refs shiftTimes, in, rawOut time.Time) domain.DailyStatus {
	in, checkOut := timeutil.NormalizeInterval(in, rawOut)

	lateMin := 0
	if in.After(refs.Start) {
		lateMin = timeutil.RoundUpMinutes(int(in.Sub(refs.Start).Minutes()), penaltyStep)
	}
	earlyMin := 0
	if checkOut.Before(refs.OfficeEnd) {
		earlyMin = timeutil.RoundUpMinutes(int(refs.OfficeEnd.Sub(checkOut).Minutes()), penaltyStep)
	}
	overtimeMin := 0
	if checkOut.After(refs.OfficeEnd) {
		lateEnd := checkOut
		if lateEnd.After(refs.End) {
			lateEnd = refs.End
		}
		if m := int(lateEnd.Sub(refs.OfficeEnd).Minutes()); m > 0 {
			overtimeMin = m
		}
	}

	workedMin := timeutil.DurationMinutes(in, checkOut) - lateMin - earlyMin
	if workedMin < 0 {
		workedMin = 0
	}

	out.Status = domain.StatusComplete
	if lateMin > 0 || earlyMin > 0 {
		out.Status = domain.StatusRV
	}
	out.CheckInTime = in.Format(clockFormat)
	out.CheckOutTime = checkOut.Format(clockFormat)
	out.TotalWorkHours = timeutil.Round2(float64(workedMin) / 60)
	out.OvertimeHours = timeutil.Round2(float64(overtimeMin) / 60)

	var notes []string
	if lateMin > 0 {
		notes = append(notes, fmt.Sprintf("Late %dm.", lateMin))
	}
	if earlyMin > 0 {
		notes = append(notes, fmt.Sprintf("Early leave %dm.", earlyMin))
	}
	if overtimeMin > 0 {
		notes = append(notes, fmt.Sprintf("OT %.2fh.", out.OvertimeHours))
	}
	out.Remarks = strings.Join(notes, " ")
	return out
}
