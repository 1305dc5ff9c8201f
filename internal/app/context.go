package app

import (
	"context"
	"errors"
	"fmt"

	"timecard/internal/config"
	"timecard/internal/domain"
	"timecard/internal/repo"
)

// ResolveConfig picks the active configuration and ensures the shift
// exists in the DB, seeding it if missing. timecard.yml wins over a
// previously stored shift; with neither, the built-in default is
// seeded for shiftOverride (or "day").
func ResolveConfig(ctx context.Context, workspace, shiftOverride string, r repo.Repo) (*config.Config, error) {
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		if shiftOverride != "" {
			cfg.Shift.ID = shiftOverride
		}
		if cfg.Shift.ID == "" {
			cfg.Shift.ID = "day"
		}
		if err := seedShift(ctx, r, cfg.ShiftConfig()); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	shiftID := shiftOverride
	if shiftID == "" {
		shiftID = "day"
	}
	cfg = config.Default(shiftID)
	stored, err := r.GetShiftConfig(ctx, shiftID)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
		if err := seedShift(ctx, r, cfg.ShiftConfig()); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	applyStored(cfg, stored)
	return cfg, nil
}

func seedShift(ctx context.Context, r repo.Repo, shift domain.ShiftConfig) error {
	if err := r.UpsertShiftConfig(ctx, shift); err != nil {
		return fmt.Errorf("seed shift config: %w", err)
	}
	return nil
}

func applyStored(cfg *config.Config, shift domain.ShiftConfig) {
	cfg.Shift.ID = shift.ID
	cfg.Shift.StartTime = shift.StartTime
	cfg.Shift.OfficeEndTime = shift.OfficeEndTime
	cfg.Shift.EndTime = shift.EndTime
	cfg.Shift.OnlyGoWorkMode = shift.OnlyGoWorkMode
	cfg.Shift.ShowPunch = shift.ShowPunch
	cfg.Shift.MinWorkHours = shift.MinWorkHours
}
