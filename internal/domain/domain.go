package domain

import "time"

// ActionType is one of the recordable attendance actions.
type ActionType string

const (
	ActionGoWork   ActionType = "go_work"
	ActionCheckIn  ActionType = "check_in"
	ActionPunch    ActionType = "punch"
	ActionCheckOut ActionType = "check_out"
	ActionComplete ActionType = "complete"
)

// SessionIdle is the session status before any action is recorded.
// It is not a recordable action and never appears in the event log.
const SessionIdle ActionType = "idle"

// Valid reports whether t is a recordable action.
func (t ActionType) Valid() bool {
	switch t {
	case ActionGoWork, ActionCheckIn, ActionPunch, ActionCheckOut, ActionComplete:
		return true
	}
	return false
}

// Event is one recorded attendance action. Immutable once stored.
type Event struct {
	ID      string     `json:"id"`
	Day     string     `json:"day"`
	Type    ActionType `json:"type" enum:"go_work,check_in,punch,check_out,complete"`
	TS      time.Time  `json:"ts" format:"date-time"`
	ShiftID *string    `json:"shift_id,omitempty"`
}

// ShiftConfig describes one configured work period. Times are naive
// "HH:mm" wall-clock strings; EndTime before StartTime marks an
// overnight shift whose end is implicitly next-day.
type ShiftConfig struct {
	ID             string   `json:"id"`
	StartTime      string   `json:"start_time"`
	OfficeEndTime  string   `json:"office_end_time"`
	EndTime        string   `json:"end_time"`
	OnlyGoWorkMode bool     `json:"only_go_work_mode"`
	ShowPunch      bool     `json:"show_punch"`
	MinWorkHours   *float64 `json:"min_work_hours,omitempty"`
}

// Overnight reports whether the shift crosses midnight.
func (s ShiftConfig) Overnight() bool {
	return s.EndTime < s.StartTime
}

// DerivedStatus is a classification the accounting engine produces.
type DerivedStatus string

const (
	StatusUnknown    DerivedStatus = "unknown"
	StatusIncomplete DerivedStatus = "incomplete"
	StatusComplete   DerivedStatus = "complete"
	// StatusRV marks a day completed with late arrival and/or early leave.
	StatusRV DerivedStatus = "rv"
)

// OverrideStatus is a manual classification set by direct user edit.
// It is a distinct type from DerivedStatus so the engine can never
// produce one and callers cannot confuse the two.
type OverrideStatus string

const (
	OverrideLeave   OverrideStatus = "leave"
	OverrideSick    OverrideStatus = "sick"
	OverrideHoliday OverrideStatus = "holiday"
	OverrideAbsent  OverrideStatus = "absent"
)

// Valid reports whether o is a known override status.
func (o OverrideStatus) Valid() bool {
	switch o {
	case OverrideLeave, OverrideSick, OverrideHoliday, OverrideAbsent:
		return true
	}
	return false
}

// DailyStatus is the accounting engine's output for one day.
type DailyStatus struct {
	Day            string        `json:"day"`
	Status         DerivedStatus `json:"status" enum:"unknown,incomplete,complete,rv"`
	CheckInTime    string        `json:"check_in_time,omitempty"`
	CheckOutTime   string        `json:"check_out_time,omitempty"`
	TotalWorkHours float64       `json:"total_work_hours"`
	OvertimeHours  float64       `json:"overtime_hours"`
	Remarks        string        `json:"remarks,omitempty"`
}

// DayReport is DailyStatus plus the orthogonal manual override, if any.
type DayReport struct {
	DailyStatus
	Override *OverrideStatus `json:"override,omitempty"`
}

// Session is the live per-day state of the action sequencer. It is a
// recomputable projection of the day's event log.
type Session struct {
	Day        string     `json:"day"`
	Status     ActionType `json:"status"`
	GoWorkAt   *time.Time `json:"go_work_at,omitempty"`
	CheckInAt  *time.Time `json:"check_in_at,omitempty"`
	PunchAt    *time.Time `json:"punch_at,omitempty"`
	CheckOutAt *time.Time `json:"check_out_at,omitempty"`
	CompleteAt *time.Time `json:"complete_at,omitempty"`
}
