package server

import (
	"time"

	"timecard/internal/domain"
)

type RecordActionRequest struct {
	Action string     `json:"action" enum:"go_work,check_in,punch,check_out,complete"`
	At     *time.Time `json:"at,omitempty" format:"date-time"`
}

type OverrideRequest struct {
	Status string `json:"status" enum:"leave,sick,holiday,absent"`
}

// ActionResponse pairs the updated session with the recomputed
// daily status.
type ActionResponse struct {
	Session domain.Session     `json:"session"`
	Status  domain.DailyStatus `json:"status"`
}
