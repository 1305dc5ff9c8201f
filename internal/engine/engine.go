package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"timecard/internal/accounting"
	"timecard/internal/config"
	"timecard/internal/domain"
	"timecard/internal/events"
	"timecard/internal/notify"
	"timecard/internal/repo"
	"timecard/internal/sequencer"
)

const dayFormat = "2006-01-02"

// Engine orchestrates the sequencer, the accounting engine and the
// collaborators around one event log.
type Engine struct {
	DB       *sql.DB
	Repo     repo.Repo
	Events   events.Writer
	Config   *config.Config
	Shift    domain.ShiftConfig
	Notifier notify.Scheduler
	Now      func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	e := Engine{
		DB:       db,
		Repo:     repo.Repo{DB: db},
		Events:   events.Writer{DB: db},
		Config:   cfg,
		Notifier: notify.Nop{},
		Now:      time.Now,
	}
	if cfg != nil {
		e.Shift = cfg.ShiftConfig()
	}
	return e
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Day returns the given day or today when empty.
func (e Engine) Day(day string) string {
	if day != "" {
		return day
	}
	return e.now().Format(dayFormat)
}

// Gate builds the configured affordance gate.
func (e Engine) Gate() sequencer.Gate {
	g := sequencer.DefaultGate()
	g.Now = e.now
	if e.Config != nil {
		if m := e.Config.Gating.CheckInLeadMinutes; m > 0 {
			g.CheckInLead = time.Duration(m) * time.Minute
		}
		if h := e.Config.Gating.AutoResetHours; h > 0 {
			g.AutoResetAfter = time.Duration(h) * time.Hour
		}
	}
	return g
}

// NextStep is what the user may do next, with the optional gating
// verdict on the affordance.
type NextStep struct {
	Day     string            `json:"day"`
	Status  domain.ActionType `json:"status"`
	Action  domain.ActionType `json:"action"`
	Allowed bool              `json:"allowed"`
	Reason  string            `json:"reason,omitempty"`
}

// NextAction rebuilds the session from the log and reports the
// permitted next action.
func (e Engine) NextAction(ctx context.Context, day string) (NextStep, error) {
	day = e.Day(day)
	evs, err := e.Repo.ListEventsForDay(ctx, day)
	if err != nil {
		return NextStep{}, err
	}
	session := sequencer.Replay(day, evs)
	step := NextStep{
		Day:     day,
		Status:  session.Status,
		Action:  sequencer.NextAction(session.Status, e.Shift),
		Allowed: true,
	}
	if e.Config != nil && e.Config.Gating.Enabled {
		step.Allowed, step.Reason = e.Gate().Allowed(session, step.Action, e.Shift)
	}
	return step, nil
}

// RecordAction appends one action event and returns the new session
// and recomputed daily status. Recording on a completed day is a
// silent no-op; duplicates of an already recorded action are ignored.
func (e Engine) RecordAction(ctx context.Context, day string, action domain.ActionType, ts time.Time) (domain.Session, domain.DailyStatus, error) {
	if !action.Valid() {
		return domain.Session{}, domain.DailyStatus{}, domain.ValidationError{Field: "action", Reason: fmt.Sprintf("unknown action %q", action)}
	}
	day = e.Day(day)
	if ts.IsZero() {
		ts = e.now()
	}
	evs, err := e.Repo.ListEventsForDay(ctx, day)
	if err != nil {
		return domain.Session{}, domain.DailyStatus{}, err
	}
	session := sequencer.Replay(day, evs)
	next, applied := sequencer.Apply(session, action, ts)
	if !applied {
		return session, accounting.ComputeDailyStatus(evs, &e.Shift), nil
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return session, domain.DailyStatus{}, err
	}
	defer tx.Rollback()

	shiftID := e.Shift.ID
	ev := domain.Event{Day: day, Type: action, TS: ts}
	if shiftID != "" {
		ev.ShiftID = &shiftID
	}
	if _, err := e.Events.Append(ctx, tx, ev); err != nil {
		return session, domain.DailyStatus{}, err
	}
	evs = append(evs, ev)
	status := accounting.ComputeDailyStatus(evs, &e.Shift)
	if err := e.Repo.SaveDailyStatus(ctx, tx, status); err != nil {
		return session, domain.DailyStatus{}, err
	}
	if err := tx.Commit(); err != nil {
		return session, domain.DailyStatus{}, err
	}

	// reminder bookkeeping never blocks a transition
	if err := e.Notifier.Cancel(action, day); err != nil {
		log.Printf("WARNING: cancel reminder %s/%s: %v", day, action, err)
	}

	return next, status, nil
}

// DayStatus recomputes the day's report from the event log. A manual
// override, when present, rides along without replacing the derived
// classification.
func (e Engine) DayStatus(ctx context.Context, day string) (domain.DayReport, error) {
	day = e.Day(day)
	evs, err := e.Repo.ListEventsForDay(ctx, day)
	if err != nil {
		return domain.DayReport{}, err
	}
	status := accounting.ComputeDailyStatus(evs, &e.Shift)
	status.Day = day
	report := domain.DayReport{DailyStatus: status}
	override, err := e.Repo.GetOverride(ctx, day)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return domain.DayReport{}, err
	}
	if err == nil {
		report.Override = &override
	}
	return report, nil
}

// WeekStatus builds the 7-day view starting at from (a day string),
// one independent recompute per day.
func (e Engine) WeekStatus(ctx context.Context, from string) ([]domain.DayReport, error) {
	start, err := time.Parse(dayFormat, e.Day(from))
	if err != nil {
		return nil, domain.ValidationError{Field: "from", Reason: "must be YYYY-MM-DD"}
	}
	reports := make([]domain.DayReport, 0, 7)
	for i := 0; i < 7; i++ {
		day := start.AddDate(0, 0, i).Format(dayFormat)
		report, err := e.DayStatus(ctx, day)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// SetOverride records a manual status for the day. Overrides live in
// a sidecar keyed by date and never touch the event log.
func (e Engine) SetOverride(ctx context.Context, day string, status domain.OverrideStatus) error {
	if !status.Valid() {
		return domain.ValidationError{Field: "override", Reason: fmt.Sprintf("unknown status %q", status)}
	}
	return e.Repo.SetOverride(ctx, e.Day(day), status)
}

func (e Engine) ClearOverride(ctx context.Context, day string) error {
	return e.Repo.ClearOverride(ctx, e.Day(day))
}

// ResetDay clears the day's event log and cached status. Consumers
// must recompute, not reuse, any daily status they held for the day.
func (e Engine) ResetDay(ctx context.Context, day string) (domain.Session, error) {
	day = e.Day(day)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Session{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteEventsForDay(ctx, tx, day); err != nil {
		return domain.Session{}, err
	}
	if err := e.Repo.DeleteDailyStatus(ctx, tx, day); err != nil {
		return domain.Session{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Session{}, err
	}
	for _, action := range []domain.ActionType{domain.ActionGoWork, domain.ActionCheckIn, domain.ActionPunch, domain.ActionCheckOut, domain.ActionComplete} {
		if err := e.Notifier.Cancel(action, day); err != nil {
			log.Printf("WARNING: cancel reminder %s/%s: %v", day, action, err)
		}
	}
	return sequencer.Reset(day), nil
}

// RebuildSession replays the persisted log into a session. The log is
// always the source of truth; this is the stale-state recovery path.
func (e Engine) RebuildSession(ctx context.Context, day string) (domain.Session, error) {
	day = e.Day(day)
	evs, err := e.Repo.ListEventsForDay(ctx, day)
	if err != nil {
		return domain.Session{}, err
	}
	return sequencer.Replay(day, evs), nil
}

// ScheduleReminders arms reminders for the remaining actions of the
// day. Failures are logged and swallowed.
func (e Engine) ScheduleReminders(ctx context.Context, day string) error {
	if e.Config == nil || !e.Config.Reminders.Enabled {
		return nil
	}
	step, err := e.NextAction(ctx, day)
	if err != nil {
		return err
	}
	if step.Status == domain.ActionComplete {
		return nil
	}
	if err := e.Notifier.Schedule(step.Action, step.Day, e.Shift); err != nil {
		log.Printf("WARNING: schedule reminder %s/%s: %v", step.Day, step.Action, err)
	}
	return nil
}

// SetShift validates, persists and activates a new shift
// configuration. Already recorded days keep their stored status until
// something triggers a recompute.
func (e *Engine) SetShift(ctx context.Context, shift domain.ShiftConfig) error {
	if shift.ID == "" {
		return domain.ValidationError{Field: "id", Reason: "shift id is required"}
	}
	for field, value := range map[string]string{
		"start_time":      shift.StartTime,
		"office_end_time": shift.OfficeEndTime,
		"end_time":        shift.EndTime,
	} {
		if _, err := time.Parse("15:04", value); err != nil {
			return domain.ValidationError{Field: field, Reason: fmt.Sprintf("%q is not HH:mm", value)}
		}
	}
	if h := shift.MinWorkHours; h != nil && (*h <= 0 || *h > 24) {
		return domain.ValidationError{Field: "min_work_hours", Reason: "must be in (0, 24]"}
	}
	if err := e.Repo.UpsertShiftConfig(ctx, shift); err != nil {
		return err
	}
	e.Shift = shift
	return nil
}
