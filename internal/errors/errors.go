package errors

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnauthorized = errors.New("user is not authorized")
var ErrForbidden = errors.New("operation is forbidden for user")

// ErrNotFound covers lookups for movies, showtimes, bookings and sessions
// that reference entities that do not exist.
var ErrNotFound = errors.New("not found")

// ErrNoActiveLocks is returned by Commit when the session holds no ACTIVE
// locks: the hold already expired, was released or was committed before.
// Callers must not charge payment after seeing it.
var ErrNoActiveLocks = errors.New("session holds no active locks")

// ErrHoldExpired is the finalize-time flavor of ErrNoActiveLocks: payment
// succeeded but the hold lapsed first. The payment must be voided.
var ErrHoldExpired = errors.New("hold expired before finalize")

// ErrPaymentFailed is returned by finalize when the payment result reports
// failure. The seats are released before the error is surfaced.
var ErrPaymentFailed = errors.New("payment failed")

// ConflictError reports the requested seats that are currently under a
// live, non-expired hold or already sold. The seat list is returned
// verbatim to the client so it can re-render and retry with a reduced set.
type ConflictError struct {
	Seats []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("seats already held: %s", strings.Join(e.Seats, ", "))
}

// ValidationError reports a request referencing seats that do not exist for
// the showtime or are marked broken. Not retryable.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func NewValidation(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
