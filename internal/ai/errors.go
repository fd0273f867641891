package ai

import (
	"errors"
	"fmt"
)

var (
	// ErrServiceUnavailable marks a turn that could not be completed against
	// the external service: retries exhausted, a fatal response, or a client
	// that never initialized. Callers map it to a user-visible failure.
	ErrServiceUnavailable = errors.New("external service unavailable")

	// ErrClientNotInitialized is returned when completion is attempted but no
	// client was constructed at startup.
	ErrClientNotInitialized = errors.New("completion client not initialized")
)

// ServiceError classifies a failed call against an external service.
// Transient failures are eligible for retry; everything else fails the turn
// immediately.
type ServiceError struct {
	Op         string
	StatusCode int
	Transient  bool
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a retryable service failure.
func IsTransient(err error) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Transient
}

// classifyStatus treats rate limiting and server-side errors as transient;
// any other non-2xx status is a fatal request problem.
func classifyStatus(status int) bool {
	return status == 429 || status >= 500
}
