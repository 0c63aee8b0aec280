package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/lib/pq"

	"cineseat/internal/clock"
	"cineseat/internal/database"
	apperr "cineseat/internal/errors"
	"cineseat/internal/lockstore"
	"cineseat/internal/models"
)

// LockRepository is the Postgres-backed lock store. The at-most-one-ACTIVE
// invariant per (showtime_id, seat_code) is enforced by a partial unique
// index; acquisition is all-or-nothing within a single transaction.
type LockRepository struct {
	db    *database.DB
	clock clock.Clock
}

func NewLockRepository(db *database.DB, clk clock.Clock) *LockRepository {
	return &LockRepository{db: db, clock: clk}
}

var _ lockstore.Store = (*LockRepository)(nil)

func (r *LockRepository) TryAcquire(ctx context.Context, req lockstore.AcquireRequest) (*models.ReservationAttempt, error) {
	now := r.clock.Now()
	expiresAt := now.Add(req.HoldDuration)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Serialize against concurrent acquirers and the sweeper on the same
	// seat rows, then list the requested seats that are genuinely taken.
	// Live holds conflict regardless of session: re-acquiring would renew
	// the window, and holds are fixed at acquisition.
	conflictQuery := `
		SELECT DISTINCT seat_code FROM seat_locks
		WHERE showtime_id = $1 AND seat_code = ANY($2)
		  AND (state = 'COMMITTED' OR (state = 'ACTIVE' AND expires_at > $3))
		FOR UPDATE`

	rows, err := tx.QueryContext(ctx, conflictQuery, req.ShowtimeID, pq.Array(req.SeatCodes), now)
	if err != nil {
		return nil, fmt.Errorf("failed to check seat conflicts: %w", err)
	}
	taken := make(map[string]bool)
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan conflict row: %w", err)
		}
		taken[code] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read conflict rows: %w", err)
	}

	if len(taken) > 0 {
		// Report conflicts in request order.
		var conflicts []string
		for _, code := range req.SeatCodes {
			if taken[code] {
				conflicts = append(conflicts, code)
			}
		}
		return nil, &apperr.ConflictError{Seats: conflicts}
	}

	// Lapsed holds on these seats finish their lifecycle here instead of
	// waiting for the sweeper, so the partial unique index stays clear.
	expireQuery := `
		UPDATE seat_locks SET state = 'EXPIRED'
		WHERE showtime_id = $1 AND seat_code = ANY($2)
		  AND state = 'ACTIVE' AND expires_at <= $3`
	if _, err := tx.ExecContext(ctx, expireQuery, req.ShowtimeID, pq.Array(req.SeatCodes), now); err != nil {
		return nil, fmt.Errorf("failed to expire stale locks: %w", err)
	}

	insertLock := `
		INSERT INTO seat_locks (showtime_id, seat_code, session_id, owner_id, state, created_at, expires_at)
		VALUES ($1, $2, $3, $4, 'ACTIVE', $5, $6)`
	for _, code := range req.SeatCodes {
		if _, err := tx.ExecContext(ctx, insertLock, req.ShowtimeID, code, req.SessionID, req.OwnerID, now, expiresAt); err != nil {
			if isUniqueViolation(err) {
				// Lost the insert race to a first-ever lock on this seat.
				return nil, r.conflictAfterRace(ctx, req, now)
			}
			return nil, fmt.Errorf("failed to insert seat lock: %w", err)
		}
	}

	payload, err := json.Marshal(req.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal booking payload: %w", err)
	}

	insertAttempt := `
		INSERT INTO reservation_attempts (session_id, showtime_id, owner_id, seat_codes, payload, state, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, 'HELD', $6, $7)`
	if _, err := tx.ExecContext(ctx, insertAttempt, req.SessionID, req.ShowtimeID, req.OwnerID,
		pq.Array(req.SeatCodes), payload, now, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to insert reservation attempt: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit acquisition: %w", err)
	}

	return &models.ReservationAttempt{
		SessionID:  req.SessionID,
		ShowtimeID: req.ShowtimeID,
		OwnerID:    req.OwnerID,
		SeatCodes:  append([]string(nil), req.SeatCodes...),
		Payload:    req.Payload,
		State:      models.AttemptHeld,
		CreatedAt:  now,
		ExpiresAt:  expiresAt,
	}, nil
}

// conflictAfterRace re-reads the current holders so the caller still gets
// the exact conflicting seat list after a unique-index race.
func (r *LockRepository) conflictAfterRace(ctx context.Context, req lockstore.AcquireRequest, now time.Time) error {
	query := `
		SELECT DISTINCT seat_code FROM seat_locks
		WHERE showtime_id = $1 AND seat_code = ANY($2)
		  AND (state = 'COMMITTED' OR (state = 'ACTIVE' AND expires_at > $3))`

	rows, err := r.db.QueryContext(ctx, query, req.ShowtimeID, pq.Array(req.SeatCodes), now)
	if err != nil {
		return &apperr.ConflictError{Seats: req.SeatCodes}
	}
	defer rows.Close()

	taken := make(map[string]bool)
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return &apperr.ConflictError{Seats: req.SeatCodes}
		}
		taken[code] = true
	}

	var conflicts []string
	for _, code := range req.SeatCodes {
		if taken[code] {
			conflicts = append(conflicts, code)
		}
	}
	if len(conflicts) == 0 {
		conflicts = req.SeatCodes
	}
	return &apperr.ConflictError{Seats: conflicts}
}

func (r *LockRepository) Release(ctx context.Context, sessionID string) ([]string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE seat_locks SET state = 'RELEASED'
		WHERE session_id = $1 AND state = 'ACTIVE'
		RETURNING seat_code`

	rows, err := tx.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to release locks: %w", err)
	}
	released := []string{}
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan released seat: %w", err)
		}
		released = append(released, code)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read released seats: %w", err)
	}

	if len(released) > 0 {
		attemptQuery := `
			UPDATE reservation_attempts SET state = 'RELEASED'
			WHERE session_id = $1 AND state = 'HELD'`
		if _, err := tx.ExecContext(ctx, attemptQuery, sessionID); err != nil {
			return nil, fmt.Errorf("failed to update reservation attempt: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit release: %w", err)
	}

	return released, nil
}

func (r *LockRepository) ReleaseCommitted(ctx context.Context, sessionID string) ([]string, error) {
	query := `
		UPDATE seat_locks SET state = 'RELEASED'
		WHERE session_id = $1 AND state = 'COMMITTED'
		RETURNING seat_code`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to release committed locks: %w", err)
	}
	defer rows.Close()

	released := []string{}
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan released seat: %w", err)
		}
		released = append(released, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read released seats: %w", err)
	}

	sort.Strings(released)
	return released, nil
}

func (r *LockRepository) Commit(ctx context.Context, sessionID string) (*models.ReservationAttempt, error) {
	now := r.clock.Now()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE seat_locks SET state = 'COMMITTED'
		WHERE session_id = $1 AND state = 'ACTIVE' AND expires_at > $2`

	res, err := tx.ExecContext(ctx, query, sessionID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to commit locks: %w", err)
	}
	committed, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to count committed locks: %w", err)
	}
	if committed == 0 {
		return nil, apperr.ErrNoActiveLocks
	}

	attemptQuery := `
		UPDATE reservation_attempts SET state = 'COMMITTED'
		WHERE session_id = $1 AND state = 'HELD'`
	if _, err := tx.ExecContext(ctx, attemptQuery, sessionID); err != nil {
		return nil, fmt.Errorf("failed to update reservation attempt: %w", err)
	}

	attempt, err := scanAttempt(tx.QueryRowContext(ctx, attemptSelect+` WHERE session_id = $1`, sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to load reservation attempt: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return attempt, nil
}

func (r *LockRepository) SweepExpired(ctx context.Context, now time.Time) ([]models.SeatKey, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE seat_locks SET state = 'EXPIRED'
		WHERE state = 'ACTIVE' AND expires_at <= $1
		RETURNING showtime_id, seat_code`

	rows, err := tx.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to sweep expired locks: %w", err)
	}
	var expired []models.SeatKey
	for rows.Next() {
		var key models.SeatKey
		if err := rows.Scan(&key.ShowtimeID, &key.SeatCode); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan expired lock: %w", err)
		}
		expired = append(expired, key)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read expired locks: %w", err)
	}

	if len(expired) > 0 {
		attemptQuery := `
			UPDATE reservation_attempts SET state = 'EXPIRED'
			WHERE state = 'HELD' AND expires_at <= $1`
		if _, err := tx.ExecContext(ctx, attemptQuery, now); err != nil {
			return nil, fmt.Errorf("failed to expire reservation attempts: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit sweep: %w", err)
	}

	return expired, nil
}

func (r *LockRepository) ActiveSeats(ctx context.Context, showtimeID string) ([]string, error) {
	query := `
		SELECT seat_code FROM seat_locks
		WHERE showtime_id = $1 AND state = 'ACTIVE' AND expires_at > $2
		ORDER BY seat_code`

	rows, err := r.db.QueryContext(ctx, query, showtimeID, r.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to list active seats: %w", err)
	}
	defer rows.Close()

	seats := []string{}
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan active seat: %w", err)
		}
		seats = append(seats, code)
	}
	return seats, rows.Err()
}

const attemptSelect = `
	SELECT session_id, showtime_id, owner_id, seat_codes, payload, state, created_at, expires_at
	FROM reservation_attempts`

func (r *LockRepository) Attempt(ctx context.Context, sessionID string) (*models.ReservationAttempt, error) {
	attempt, err := scanAttempt(r.db.QueryRowContext(ctx, attemptSelect+` WHERE session_id = $1`, sessionID))
	if err == sql.ErrNoRows {
		return nil, apperr.ErrNotFound
	}
	return attempt, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (*models.ReservationAttempt, error) {
	attempt := &models.ReservationAttempt{}
	var payload []byte
	err := row.Scan(
		&attempt.SessionID,
		&attempt.ShowtimeID,
		&attempt.OwnerID,
		pq.Array(&attempt.SeatCodes),
		&payload,
		&attempt.State,
		&attempt.CreatedAt,
		&attempt.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &attempt.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal booking payload: %w", err)
		}
	}
	return attempt, nil
}

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}
