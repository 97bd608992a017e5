// Package arise provides a Go client for the Arise progression API.
package arise

import "fmt"

// Error represents an error from the Arise API with the HTTP status code
// and the server's error message.
type Error struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("arise: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// IsNotFound returns true if the error is a 404.
func IsNotFound(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.StatusCode == 404
	}
	return false
}

// IsUnauthorized returns true if the error is a 401.
func IsUnauthorized(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.StatusCode == 401
	}
	return false
}

// IsConflict returns true if the error is a 409, e.g. activating a
// territory that is already captured.
func IsConflict(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.StatusCode == 409
	}
	return false
}

// IsRateLimited returns true if the error is a 429.
func IsRateLimited(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.StatusCode == 429
	}
	return false
}

// AllocationError is returned by AllocateSkill when the server refuses
// the allocation. It carries the structured refusal rather than a plain
// HTTP error so callers can react to the specific reason.
type AllocationError struct {
	Reason       string
	Prerequisite string
}

func (e *AllocationError) Error() string {
	if e.Prerequisite != "" {
		return fmt.Sprintf("arise: allocation refused: %s (requires %s)", e.Reason, e.Prerequisite)
	}
	return fmt.Sprintf("arise: allocation refused: %s", e.Reason)
}
