package domain

import "fmt"

// ValidationError marks a malformed shift configuration or request.
// A caller contract violation, never fatal to the engine.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StaleStateError marks a session that disagrees with the persisted
// event log. Recovery is a full replay of the log.
type StaleStateError struct {
	Day string
}

func (e StaleStateError) Error() string {
	return fmt.Sprintf("session state for %s is stale; rebuild from event log", e.Day)
}
