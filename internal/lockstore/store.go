// Package lockstore defines the seat-lock state machine shared by the
// in-memory backend and the Postgres-backed repository implementation.
package lockstore

import (
	"context"
	"time"

	"cineseat/internal/models"
)

// AcquireRequest carries everything needed to take a hold on a seat set.
// HoldDuration is fixed per session at acquisition time and never extended.
type AcquireRequest struct {
	ShowtimeID   string
	SeatCodes    []string
	SessionID    string
	OwnerID      string
	HoldDuration time.Duration
	Payload      models.BookingPayload
}

// Store holds the current seat locks keyed by (showtime_id, seat_code) plus
// a session index. All mutating operations are serialized per seat key; the
// sweeper takes the same serialization as request handlers.
type Store interface {
	// TryAcquire is atomic across the whole seat set: either every
	// requested seat transitions from free-or-expired to a new ACTIVE lock
	// owned by the session, or none do and a *errors.ConflictError lists
	// exactly the requested seats under a live hold or already sold. A
	// session never re-acquires seats it already holds; holds are fixed at
	// acquisition and never renewed. Partial acquisition is never
	// observable.
	TryAcquire(ctx context.Context, req AcquireRequest) (*models.ReservationAttempt, error)

	// Release transitions all ACTIVE locks of the session to RELEASED and
	// returns the freed seat codes. Idempotent: an unknown or already
	// finalized session yields an empty slice, never an error.
	Release(ctx context.Context, sessionID string) ([]string, error)

	// ReleaseCommitted transitions the COMMITTED locks of a session back to
	// RELEASED, returning the seats to inventory after a booking is
	// cancelled. Idempotent like Release.
	ReleaseCommitted(ctx context.Context, sessionID string) ([]string, error)

	// Commit transitions all ACTIVE locks of the session to COMMITTED.
	// Returns errors.ErrNoActiveLocks when nothing is ACTIVE anymore, in
	// which case the caller must not charge payment.
	Commit(ctx context.Context, sessionID string) (*models.ReservationAttempt, error)

	// SweepExpired transitions ACTIVE locks with expires_at <= now to
	// EXPIRED and returns the freed keys. Locks with expires_at > now are
	// never evicted.
	SweepExpired(ctx context.Context, now time.Time) ([]models.SeatKey, error)

	// ActiveSeats lists the seat codes currently under a live hold for the
	// showtime, sorted.
	ActiveSeats(ctx context.Context, showtimeID string) ([]string, error)

	// Attempt returns the reservation attempt for a session, or
	// errors.ErrNotFound.
	Attempt(ctx context.Context, sessionID string) (*models.ReservationAttempt, error)
}
