package engine

import (
	"context"
	"time"

	"timecard/internal/domain"
)

// Backup is the portable snapshot of everything the tracker owns:
// the event log, manual overrides and shift configurations. Cached
// daily statuses are derived data and deliberately excluded.
type Backup struct {
	ExportedAt time.Time                        `json:"exported_at" format:"date-time"`
	Events     []domain.Event                   `json:"events"`
	Overrides  map[string]domain.OverrideStatus `json:"overrides,omitempty"`
	Shifts     []domain.ShiftConfig             `json:"shifts,omitempty"`
}

// Export snapshots the full state for backup.
func (e Engine) Export(ctx context.Context) (Backup, error) {
	evs, err := e.Repo.ListAllEvents(ctx)
	if err != nil {
		return Backup{}, err
	}
	overrides, err := e.Repo.ListOverrides(ctx)
	if err != nil {
		return Backup{}, err
	}
	shifts, err := e.Repo.ListShiftConfigs(ctx)
	if err != nil {
		return Backup{}, err
	}
	return Backup{
		ExportedAt: e.now().UTC(),
		Events:     evs,
		Overrides:  overrides,
		Shifts:     shifts,
	}, nil
}

// Import restores a backup. Events already present (same day, type
// and timestamp) are skipped, so importing the same snapshot twice
// changes nothing.
func (e Engine) Import(ctx context.Context, b Backup) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, ev := range b.Events {
		if !ev.Type.Valid() || ev.Day == "" {
			return domain.ValidationError{Field: "events", Reason: "event missing day or type"}
		}
		if _, err := e.Events.Append(ctx, tx, ev); err != nil {
			return err
		}
	}
	for _, shift := range b.Shifts {
		if err := e.Repo.UpsertShiftConfigTx(ctx, tx, shift); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	for day, status := range b.Overrides {
		if !status.Valid() {
			return domain.ValidationError{Field: "overrides", Reason: "unknown override status"}
		}
		if err := e.Repo.SetOverride(ctx, day, status); err != nil {
			return err
		}
	}
	return nil
}
