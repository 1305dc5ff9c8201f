package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"timecard/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// ListEventsForDay returns the day's events in append order.
func (r Repo) ListEventsForDay(ctx context.Context, day string) ([]domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id,day,type,ts,shift_id FROM events WHERE day=? ORDER BY rowid`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// LatestEvents returns up to n most recent events, optionally
// filtered by day and action type.
func (r Repo) LatestEvents(ctx context.Context, n int, day string, actionType string) ([]domain.Event, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if day != "" {
		clauses = append(clauses, "day=?")
		args = append(args, day)
	}
	if actionType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, actionType)
	}
	if n <= 0 {
		n = 20
	}
	args = append(args, n)
	query := `SELECT id,day,type,ts,shift_id FROM events WHERE ` + strings.Join(clauses, " AND ") +
		` ORDER BY rowid DESC LIMIT ?`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]domain.Event, error) {
	var res []domain.Event
	for rows.Next() {
		var (
			e       domain.Event
			rawTS   string
			shiftID sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Day, &e.Type, &rawTS, &shiftID); err != nil {
			return nil, err
		}
		ts, err := time.Parse(time.RFC3339, rawTS)
		if err != nil {
			return nil, fmt.Errorf("event %s: parse ts: %w", e.ID, err)
		}
		e.TS = ts
		if shiftID.Valid {
			s := shiftID.String
			e.ShiftID = &s
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// DeleteEventsForDay clears the day's log inside tx. Used by reset.
func (r Repo) DeleteEventsForDay(ctx context.Context, tx *sql.Tx, day string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM events WHERE day=?`, day)
	return err
}

// --- shift configs ---

func (r Repo) UpsertShiftConfig(ctx context.Context, shift domain.ShiftConfig) error {
	return upsertShiftConfig(ctx, r.DB, nil, shift)
}

func (r Repo) UpsertShiftConfigTx(ctx context.Context, tx *sql.Tx, shift domain.ShiftConfig) error {
	return upsertShiftConfig(ctx, nil, tx, shift)
}

func upsertShiftConfig(ctx context.Context, db *sql.DB, tx *sql.Tx, shift domain.ShiftConfig) error {
	if shift.ID == "" {
		return fmt.Errorf("shift id required")
	}
	payload, err := json.Marshal(shift)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	exec := func(query string, args ...any) (sql.Result, error) {
		if tx != nil {
			return tx.ExecContext(ctx, query, args...)
		}
		return db.ExecContext(ctx, query, args...)
	}
	_, err = exec(`INSERT INTO shift_configs(id,config_json,created_at,updated_at) VALUES (?,?,?,?)
ON CONFLICT(id) DO UPDATE SET config_json=excluded.config_json, updated_at=excluded.updated_at`,
		shift.ID, string(payload), now, now)
	return err
}

func (r Repo) GetShiftConfig(ctx context.Context, id string) (domain.ShiftConfig, error) {
	var payload string
	err := r.DB.QueryRowContext(ctx, `SELECT config_json FROM shift_configs WHERE id=?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return domain.ShiftConfig{}, ErrNotFound
	}
	if err != nil {
		return domain.ShiftConfig{}, err
	}
	var shift domain.ShiftConfig
	if err := json.Unmarshal([]byte(payload), &shift); err != nil {
		return domain.ShiftConfig{}, err
	}
	if shift.ID == "" {
		shift.ID = id
	}
	return shift, nil
}

func (r Repo) ListShiftConfigs(ctx context.Context) ([]domain.ShiftConfig, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT config_json FROM shift_configs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ShiftConfig
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var shift domain.ShiftConfig
		if err := json.Unmarshal([]byte(payload), &shift); err != nil {
			return nil, err
		}
		res = append(res, shift)
	}
	return res, rows.Err()
}

// --- daily status cache ---

// SaveDailyStatus caches a computed status. The cache is a
// convenience only: the event log stays the source of truth and
// reset invalidates the row.
func (r Repo) SaveDailyStatus(ctx context.Context, tx *sql.Tx, status domain.DailyStatus) error {
	payload, err := json.Marshal(status)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = tx.ExecContext(ctx, `INSERT INTO daily_status(day,status_json,updated_at) VALUES (?,?,?)
ON CONFLICT(day) DO UPDATE SET status_json=excluded.status_json, updated_at=excluded.updated_at`,
		status.Day, string(payload), now)
	return err
}

func (r Repo) GetDailyStatus(ctx context.Context, day string) (domain.DailyStatus, error) {
	var payload string
	err := r.DB.QueryRowContext(ctx, `SELECT status_json FROM daily_status WHERE day=?`, day).Scan(&payload)
	if err == sql.ErrNoRows {
		return domain.DailyStatus{}, ErrNotFound
	}
	if err != nil {
		return domain.DailyStatus{}, err
	}
	var status domain.DailyStatus
	if err := json.Unmarshal([]byte(payload), &status); err != nil {
		return domain.DailyStatus{}, err
	}
	return status, nil
}

func (r Repo) DeleteDailyStatus(ctx context.Context, tx *sql.Tx, day string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM daily_status WHERE day=?`, day)
	return err
}

// --- manual overrides ---

func (r Repo) SetOverride(ctx context.Context, day string, status domain.OverrideStatus) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := r.DB.ExecContext(ctx, `INSERT INTO overrides(day,status,updated_at) VALUES (?,?,?)
ON CONFLICT(day) DO UPDATE SET status=excluded.status, updated_at=excluded.updated_at`,
		day, string(status), now)
	return err
}

func (r Repo) GetOverride(ctx context.Context, day string) (domain.OverrideStatus, error) {
	var status string
	err := r.DB.QueryRowContext(ctx, `SELECT status FROM overrides WHERE day=?`, day).Scan(&status)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return domain.OverrideStatus(status), nil
}

func (r Repo) ClearOverride(ctx context.Context, day string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM overrides WHERE day=?`, day)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) ListOverrides(ctx context.Context) (map[string]domain.OverrideStatus, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT day,status FROM overrides ORDER BY day`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]domain.OverrideStatus{}
	for rows.Next() {
		var day, status string
		if err := rows.Scan(&day, &status); err != nil {
			return nil, err
		}
		res[day] = domain.OverrideStatus(status)
	}
	return res, rows.Err()
}

// ListAllEvents returns the whole log in append order. Used by export.
func (r Repo) ListAllEvents(ctx context.Context) ([]domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id,day,type,ts,shift_id FROM events ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}
