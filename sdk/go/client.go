package timecardsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Timecard HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Session is the live per-day sequencer state.
type Session struct {
	Day        string     `json:"day"`
	Status     string     `json:"status"`
	GoWorkAt   *time.Time `json:"go_work_at,omitempty"`
	CheckInAt  *time.Time `json:"check_in_at,omitempty"`
	PunchAt    *time.Time `json:"punch_at,omitempty"`
	CheckOutAt *time.Time `json:"check_out_at,omitempty"`
	CompleteAt *time.Time `json:"complete_at,omitempty"`
}

// DayReport is the computed daily status plus any manual override.
type DayReport struct {
	Day            string  `json:"day"`
	Status         string  `json:"status"`
	CheckInTime    string  `json:"check_in_time,omitempty"`
	CheckOutTime   string  `json:"check_out_time,omitempty"`
	TotalWorkHours float64 `json:"total_work_hours"`
	OvertimeHours  float64 `json:"overtime_hours"`
	Remarks        string  `json:"remarks,omitempty"`
	Override       *string `json:"override,omitempty"`
}

// NextStep is the permitted next action with the gating verdict.
type NextStep struct {
	Day     string `json:"day"`
	Status  string `json:"status"`
	Action  string `json:"action"`
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// ActionResult pairs the updated session with the recomputed status.
type ActionResult struct {
	Session Session `json:"session"`
	Status  struct {
		Day            string  `json:"day"`
		Status         string  `json:"status"`
		TotalWorkHours float64 `json:"total_work_hours"`
		OvertimeHours  float64 `json:"overtime_hours"`
		Remarks        string  `json:"remarks,omitempty"`
	} `json:"status"`
}

// Event is one record of the append-only log.
type Event struct {
	ID      string    `json:"id"`
	Day     string    `json:"day"`
	Type    string    `json:"type"`
	TS      time.Time `json:"ts"`
	ShiftID *string   `json:"shift_id,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// RecordAction appends one attendance action for the day. An empty
// day means today; a nil at means now.
func (c *Client) RecordAction(ctx context.Context, day, action string, at *time.Time) (ActionResult, error) {
	body := map[string]any{"action": action}
	if at != nil {
		body["at"] = at.Format(time.RFC3339)
	}
	var resp ActionResult
	err := c.do(ctx, http.MethodPost, c.dayPath(day, "actions"), body, &resp)
	return resp, err
}

// Day returns one day's report.
func (c *Client) Day(ctx context.Context, day string) (DayReport, error) {
	var resp DayReport
	err := c.do(ctx, http.MethodGet, c.dayPath(day, ""), nil, &resp)
	return resp, err
}

// NextAction returns the permitted next action for the day.
func (c *Client) NextAction(ctx context.Context, day string) (NextStep, error) {
	var resp NextStep
	err := c.do(ctx, http.MethodGet, c.dayPath(day, "next-action"), nil, &resp)
	return resp, err
}

// Events returns the day's event log.
func (c *Client) Events(ctx context.Context, day string) ([]Event, error) {
	var resp []Event
	err := c.do(ctx, http.MethodGet, c.dayPath(day, "events"), nil, &resp)
	return resp, err
}

// Week returns seven day reports starting at from.
func (c *Client) Week(ctx context.Context, from string) ([]DayReport, error) {
	endpoint := "v0/week"
	if from != "" {
		endpoint += "?from=" + url.QueryEscape(from)
	}
	var resp []DayReport
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// SetOverride sets the manual override for a day.
func (c *Client) SetOverride(ctx context.Context, day, status string) (DayReport, error) {
	var resp DayReport
	err := c.do(ctx, http.MethodPut, c.dayPath(day, "override"), map[string]any{"status": status}, &resp)
	return resp, err
}

// ClearOverride removes the manual override for a day.
func (c *Client) ClearOverride(ctx context.Context, day string) (DayReport, error) {
	var resp DayReport
	err := c.do(ctx, http.MethodDelete, c.dayPath(day, "override"), nil, &resp)
	return resp, err
}

// ResetDay deletes the day's events and returns the fresh session.
func (c *Client) ResetDay(ctx context.Context, day string) (Session, error) {
	var resp Session
	err := c.do(ctx, http.MethodDelete, c.dayPath(day, ""), nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) dayPath(day, p string) string {
	endpoint := fmt.Sprintf("v0/days/%s", url.PathEscape(day))
	if p != "" {
		endpoint += "/" + strings.TrimLeft(p, "/")
	}
	return endpoint
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
