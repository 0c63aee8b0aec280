package lockstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"cineseat/internal/clock"
	apperr "cineseat/internal/errors"
	"cineseat/internal/models"
)

// MemoryStore is a process-wide, mutex-serialized lock store. It is the
// default backend for tests and is usable for single-node deployments.
type MemoryStore struct {
	mu    sync.Mutex
	clock clock.Clock

	// occupied holds the ACTIVE and COMMITTED lock per seat key. ACTIVE
	// locks past their expiry count as free until swept or overwritten.
	occupied map[models.SeatKey]*models.SeatLock
	attempts map[string]*models.ReservationAttempt
	sessions map[string][]models.SeatKey
	nextID   int64
}

func NewMemoryStore(clk clock.Clock) *MemoryStore {
	return &MemoryStore{
		clock:    clk,
		occupied: make(map[models.SeatKey]*models.SeatLock),
		attempts: make(map[string]*models.ReservationAttempt),
		sessions: make(map[string][]models.SeatKey),
	}
}

func (s *MemoryStore) TryAcquire(_ context.Context, req AcquireRequest) (*models.ReservationAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()

	// Conflict check first, in request order, so either all seats flip to
	// ACTIVE or none do.
	var conflicts []string
	for _, code := range req.SeatCodes {
		key := models.SeatKey{ShowtimeID: req.ShowtimeID, SeatCode: code}
		existing := s.occupied[key]
		if existing == nil {
			continue
		}
		if existing.State == models.LockCommitted {
			conflicts = append(conflicts, code)
			continue
		}
		// Live holds conflict regardless of owner: a session cannot
		// re-acquire its own seats, since that would renew the window.
		if existing.ExpiresAt.After(now) {
			conflicts = append(conflicts, code)
		}
	}
	if len(conflicts) > 0 {
		return nil, &apperr.ConflictError{Seats: conflicts}
	}

	expiresAt := now.Add(req.HoldDuration)

	for _, code := range req.SeatCodes {
		key := models.SeatKey{ShowtimeID: req.ShowtimeID, SeatCode: code}
		if stale := s.occupied[key]; stale != nil && stale.State == models.LockActive && !stale.ExpiresAt.After(now) {
			// Expired but not yet swept. Finish its lifecycle here.
			s.expireLocked(stale, key)
		}
		s.nextID++
		lock := &models.SeatLock{
			ID:         s.nextID,
			ShowtimeID: req.ShowtimeID,
			SeatCode:   code,
			SessionID:  req.SessionID,
			OwnerID:    req.OwnerID,
			State:      models.LockActive,
			CreatedAt:  now,
			ExpiresAt:  expiresAt,
		}
		s.occupied[key] = lock
		s.sessions[req.SessionID] = append(s.sessions[req.SessionID], key)
	}

	attempt := &models.ReservationAttempt{
		SessionID:  req.SessionID,
		ShowtimeID: req.ShowtimeID,
		OwnerID:    req.OwnerID,
		SeatCodes:  append([]string(nil), req.SeatCodes...),
		Payload:    req.Payload,
		State:      models.AttemptHeld,
		CreatedAt:  now,
		ExpiresAt:  expiresAt,
	}
	s.attempts[req.SessionID] = attempt

	out := *attempt
	return &out, nil
}

func (s *MemoryStore) Release(_ context.Context, sessionID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	released := []string{}
	for _, key := range s.sessions[sessionID] {
		lock := s.occupied[key]
		if lock == nil || lock.SessionID != sessionID || lock.State != models.LockActive {
			continue
		}
		lock.State = models.LockReleased
		delete(s.occupied, key)
		released = append(released, key.SeatCode)
	}
	delete(s.sessions, sessionID)

	if attempt := s.attempts[sessionID]; attempt != nil && attempt.State == models.AttemptHeld && len(released) > 0 {
		attempt.State = models.AttemptReleased
	}

	sort.Strings(released)
	return released, nil
}

func (s *MemoryStore) ReleaseCommitted(_ context.Context, sessionID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Commit drops the session index, so committed locks are found by
	// scanning the occupancy map.
	released := []string{}
	for key, lock := range s.occupied {
		if lock.SessionID != sessionID || lock.State != models.LockCommitted {
			continue
		}
		lock.State = models.LockReleased
		delete(s.occupied, key)
		released = append(released, key.SeatCode)
	}

	sort.Strings(released)
	return released, nil
}

func (s *MemoryStore) Commit(_ context.Context, sessionID string) (*models.ReservationAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()

	var committed int
	for _, key := range s.sessions[sessionID] {
		lock := s.occupied[key]
		if lock == nil || lock.SessionID != sessionID || lock.State != models.LockActive {
			continue
		}
		if !lock.ExpiresAt.After(now) {
			// Lapsed under us. Leave it for the sweeper rather than
			// committing a dead hold.
			continue
		}
		lock.State = models.LockCommitted
		committed++
	}

	if committed == 0 {
		return nil, apperr.ErrNoActiveLocks
	}

	delete(s.sessions, sessionID)

	attempt := s.attempts[sessionID]
	if attempt != nil && attempt.State == models.AttemptHeld {
		attempt.State = models.AttemptCommitted
	}
	if attempt == nil {
		return nil, apperr.ErrNoActiveLocks
	}

	out := *attempt
	return &out, nil
}

func (s *MemoryStore) SweepExpired(_ context.Context, now time.Time) ([]models.SeatKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []models.SeatKey
	for key, lock := range s.occupied {
		if lock.State != models.LockActive || lock.ExpiresAt.After(now) {
			continue
		}
		s.expireLocked(lock, key)
		expired = append(expired, key)
	}

	sort.Slice(expired, func(i, j int) bool {
		if expired[i].ShowtimeID != expired[j].ShowtimeID {
			return expired[i].ShowtimeID < expired[j].ShowtimeID
		}
		return expired[i].SeatCode < expired[j].SeatCode
	})
	return expired, nil
}

func (s *MemoryStore) ActiveSeats(_ context.Context, showtimeID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	seats := []string{}
	for key, lock := range s.occupied {
		if key.ShowtimeID != showtimeID {
			continue
		}
		if lock.State == models.LockActive && lock.ExpiresAt.After(now) {
			seats = append(seats, key.SeatCode)
		}
	}
	sort.Strings(seats)
	return seats, nil
}

func (s *MemoryStore) Attempt(_ context.Context, sessionID string) (*models.ReservationAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempt := s.attempts[sessionID]
	if attempt == nil {
		return nil, apperr.ErrNotFound
	}
	out := *attempt
	return &out, nil
}

// expireLocked finishes the lifecycle of a lapsed ACTIVE lock. Caller holds mu.
func (s *MemoryStore) expireLocked(lock *models.SeatLock, key models.SeatKey) {
	lock.State = models.LockExpired
	delete(s.occupied, key)

	keys := s.sessions[lock.SessionID]
	for i, k := range keys {
		if k == key {
			s.sessions[lock.SessionID] = append(keys[:i], keys[i+1:]...)
			break
		}
	}
	if len(s.sessions[lock.SessionID]) == 0 {
		delete(s.sessions, lock.SessionID)
		if attempt := s.attempts[lock.SessionID]; attempt != nil && attempt.State == models.AttemptHeld {
			attempt.State = models.AttemptExpired
		}
	}
}
