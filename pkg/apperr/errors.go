package apperr

import (
	"errors"
	"fmt"
)

// NetworkError is a transport-level failure against an upstream source:
// connection errors and any non-success HTTP status that is not a 429.
// The client does not retry these.
type NetworkError struct {
	Source     string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status code %d", e.Source, e.StatusCode)
	}
	return fmt.Sprintf("%s: request failed: %v", e.Source, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RateLimitedError means the upstream throttled us and the retry budget is
// exhausted.
type RateLimitedError struct {
	Source   string
	Attempts int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s: rate limited after %d attempts", e.Source, e.Attempts)
}

// APIError is an application-level error reported inside a well-formed
// response envelope.
type APIError struct {
	Source  string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: api error: %s", e.Source, e.Message)
}

// InvalidRecordError marks an upstream record that cannot be canonicalized.
// Callers skip and log these, they never abort a batch.
type InvalidRecordError struct {
	Reason string
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("invalid record: %s", e.Reason)
}

// ValidationError rejects bad operator input before any mutation happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

func IsRateLimited(err error) bool {
	var rl *RateLimitedError
	return errors.As(err, &rl)
}

func IsInvalidRecord(err error) bool {
	var ir *InvalidRecordError
	return errors.As(err, &ir)
}
