package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"cineseat/internal/cache"
	"cineseat/internal/clock"
	apperrors "cineseat/internal/errors"
	"cineseat/internal/lockstore"
	"cineseat/internal/messaging"
	"cineseat/internal/metrics"
	"cineseat/internal/models"
)

// VIP seats carry a flat surcharge over the showtime base price, in cents.
const vipSurcharge = 3000

// Catalog is the slice of the catalog repository the reservation flow needs.
type Catalog interface {
	GetShowtime(ctx context.Context, id string) (*models.Showtime, error)
	GetSeat(ctx context.Context, showtimeID, seatCode string) (*models.Seat, error)
	SeatsForShowtime(ctx context.Context, showtimeID string) ([]models.Seat, error)
}

// SoldSeats lists seats already attached to a confirmed booking.
type SoldSeats interface {
	BookedSeats(ctx context.Context, showtimeID string) ([]string, error)
}

type ReservationService struct {
	locks        lockstore.Store
	catalog      Catalog
	sold         SoldSeats
	clock        clock.Clock
	holdDuration time.Duration
	publisher    messaging.Publisher
	redisClient  *cache.RedisClient
}

func NewReservationService(locks lockstore.Store, catalog Catalog, sold SoldSeats, clk clock.Clock, holdDuration time.Duration, publisher messaging.Publisher, redisClient *cache.RedisClient) *ReservationService {
	return &ReservationService{
		locks:        locks,
		catalog:      catalog,
		sold:         sold,
		clock:        clk,
		holdDuration: holdDuration,
		publisher:    publisher,
		redisClient:  redisClient,
	}
}

// Acquire takes a hold on the whole requested seat set or none of it. The
// pricing snapshot is captured here; finalize never trusts client-side prices.
func (s *ReservationService) Acquire(ctx context.Context, req *models.CreateLockRequest) (*models.CreateLockResponse, error) {
	showtime, err := s.catalog.GetShowtime(ctx, req.ShowtimeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get showtime: %w", err)
	}
	if showtime == nil {
		return nil, apperrors.ErrNotFound
	}

	seatCodes := dedupe(req.Seats)

	payload := models.BookingPayload{
		Seats: make([]models.PricedSeat, 0, len(seatCodes)),
	}
	for _, code := range seatCodes {
		seat, err := s.catalog.GetSeat(ctx, req.ShowtimeID, code)
		if err != nil {
			return nil, fmt.Errorf("failed to get seat: %w", err)
		}
		if seat == nil {
			return nil, apperrors.NewValidation("seat %s does not exist for showtime %s", code, req.ShowtimeID)
		}
		if seat.IsBroken {
			return nil, apperrors.NewValidation("seat %s is out of service", code)
		}

		price := showtime.BasePrice
		if seat.SeatType == models.SeatVIP {
			price += vipSurcharge
		}
		payload.Seats = append(payload.Seats, models.PricedSeat{
			SeatCode: code,
			SeatType: seat.SeatType,
			Price:    price,
		})
		payload.TotalAmount += price
	}

	sessionID := "lock_" + uuid.New().String()

	attempt, err := s.locks.TryAcquire(ctx, lockstore.AcquireRequest{
		ShowtimeID:   req.ShowtimeID,
		SeatCodes:    seatCodes,
		SessionID:    sessionID,
		OwnerID:      req.OwnerID,
		HoldDuration: s.holdDuration,
		Payload:      payload,
	})
	if err != nil {
		if _, ok := err.(*apperrors.ConflictError); ok {
			metrics.LockConflicts.Inc()
		}
		return nil, err
	}

	metrics.LocksAcquired.Add(float64(len(attempt.SeatCodes)))
	metrics.ActiveHolds.Add(float64(len(attempt.SeatCodes)))

	event := models.LockAcquiredEvent{
		SessionID:  sessionID,
		ShowtimeID: req.ShowtimeID,
		Seats:      attempt.SeatCodes,
		OwnerID:    req.OwnerID,
		ExpiresAt:  attempt.ExpiresAt,
		Timestamp:  s.clock.Now(),
	}
	if err := s.publisher.Publish(models.EventLockAcquired, event); err != nil {
		// Log error but don't fail the operation
		slog.Warn("Failed to publish lock acquired event", "error", err, "session_id", sessionID)
	}

	s.invalidateSeatMap(ctx, req.ShowtimeID)

	return &models.CreateLockResponse{
		SessionID:   sessionID,
		ExpiresAt:   attempt.ExpiresAt,
		LockedSeats: attempt.SeatCodes,
	}, nil
}

// Release frees every active lock of the session. Safe to call for unknown,
// expired or already finalized sessions.
func (s *ReservationService) Release(ctx context.Context, sessionID string) (*models.ReleaseLockResponse, error) {
	attempt, err := s.locks.Attempt(ctx, sessionID)
	if err != nil && err != apperrors.ErrNotFound {
		return nil, fmt.Errorf("failed to get reservation attempt: %w", err)
	}

	seats, err := s.locks.Release(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to release locks: %w", err)
	}

	if len(seats) > 0 && attempt != nil {
		metrics.LocksReleased.Add(float64(len(seats)))
		metrics.ActiveHolds.Sub(float64(len(seats)))

		event := models.LockReleasedEvent{
			SessionID:  sessionID,
			ShowtimeID: attempt.ShowtimeID,
			Seats:      seats,
			Reason:     "user_release",
			Timestamp:  s.clock.Now(),
		}
		if err := s.publisher.Publish(models.EventLockReleased, event); err != nil {
			slog.Warn("Failed to publish lock released event", "error", err, "session_id", sessionID)
		}

		s.invalidateSeatMap(ctx, attempt.ShowtimeID)
	}

	return &models.ReleaseLockResponse{ReleasedSeats: seats}, nil
}

// LockedSeats returns the seats under a live hold for the showtime.
func (s *ReservationService) LockedSeats(ctx context.Context, showtimeID string) (*models.LockedSeatsResponse, error) {
	showtime, err := s.catalog.GetShowtime(ctx, showtimeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get showtime: %w", err)
	}
	if showtime == nil {
		return nil, apperrors.ErrNotFound
	}

	seats, err := s.locks.ActiveSeats(ctx, showtimeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active seats: %w", err)
	}

	return &models.LockedSeatsResponse{
		ShowtimeID:  showtimeID,
		LockedSeats: seats,
	}, nil
}

// SeatMap renders the full hall layout with per-seat status and price.
// Broken wins over locked, locked wins over booked.
func (s *ReservationService) SeatMap(ctx context.Context, showtimeID string) (*models.SeatMapResponse, error) {
	showtime, err := s.catalog.GetShowtime(ctx, showtimeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get showtime: %w", err)
	}
	if showtime == nil {
		return nil, apperrors.ErrNotFound
	}

	seats, err := s.catalog.SeatsForShowtime(ctx, showtimeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get seats: %w", err)
	}

	locked, err := s.locks.ActiveSeats(ctx, showtimeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active seats: %w", err)
	}
	lockedSet := toSet(locked)

	booked, err := s.sold.BookedSeats(ctx, showtimeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list booked seats: %w", err)
	}
	bookedSet := toSet(booked)

	items := make([]models.SeatMapItem, 0, len(seats))
	for _, seat := range seats {
		price := showtime.BasePrice
		if seat.SeatType == models.SeatVIP {
			price += vipSurcharge
		}

		status := models.SeatStatusAvailable
		switch {
		case seat.IsBroken:
			status = models.SeatStatusBroken
		case lockedSet[seat.SeatCode]:
			status = models.SeatStatusLocked
		case bookedSet[seat.SeatCode]:
			status = models.SeatStatusBooked
		}

		items = append(items, models.SeatMapItem{
			SeatCode: seat.SeatCode,
			SeatType: seat.SeatType,
			Status:   status,
			Price:    price,
		})
	}

	return &models.SeatMapResponse{
		ShowtimeID: showtimeID,
		Seats:      items,
	}, nil
}

func (s *ReservationService) invalidateSeatMap(ctx context.Context, showtimeID string) {
	if s.redisClient == nil {
		return
	}
	if err := s.redisClient.InvalidateSeatMap(ctx, showtimeID); err != nil {
		slog.Warn("Failed to invalidate seat map cache", "error", err, "showtime_id", showtimeID)
	}
}

func dedupe(codes []string) []string {
	seen := make(map[string]bool, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func toSet(codes []string) map[string]bool {
	set := make(map[string]bool, len(codes))
	for _, c := range codes {
		set[c] = true
	}
	return set
}
