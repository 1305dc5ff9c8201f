package events

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"timecard/internal/domain"
)

// Writer appends attendance events inside the caller's transaction.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

// Append records one action event. Appends are idempotent under
// retry: a (day, type, ts) triple already present is left untouched,
// so a partial-failure replay cannot duplicate the log.
func (w Writer) Append(ctx context.Context, tx *sql.Tx, e domain.Event) (domain.Event, error) {
	if w.Now == nil {
		w.Now = time.Now
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	createdAt := w.Now().UTC().Format(time.RFC3339)
	_, err := tx.ExecContext(ctx,
		`INSERT INTO events(id,day,type,ts,shift_id,created_at) VALUES (?,?,?,?,?,?)
ON CONFLICT(day,type,ts) DO NOTHING`,
		e.ID, e.Day, string(e.Type), e.TS.Format(time.RFC3339), nullable(e.ShiftID), createdAt)
	return e, err
}

func nullable(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}
