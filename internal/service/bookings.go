package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"cineseat/internal/cache"
	"cineseat/internal/clock"
	apperrors "cineseat/internal/errors"
	"cineseat/internal/lockstore"
	"cineseat/internal/messaging"
	"cineseat/internal/metrics"
	"cineseat/internal/models"
)

// BookingStore is the slice of the booking repository the finalize flow needs.
type BookingStore interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	GetBySessionID(ctx context.Context, sessionID string) (*models.Booking, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Booking, error)
	UpdateStatus(ctx context.Context, id, status string) error
	GetTickets(ctx context.Context, bookingID string) ([]models.Ticket, error)
}

// PaymentGateway covers the two gateway operations finalize can trigger.
// Payments are initiated elsewhere; this service only unwinds them.
type PaymentGateway interface {
	VoidPayment(paymentID string, reason string) error
	RefundPayment(paymentID string, amount int64, reason string) error
}

// ShowtimeGetter resolves showtimes for ticket barcodes.
type ShowtimeGetter interface {
	GetShowtime(ctx context.Context, id string) (*models.Showtime, error)
}

type BookingService struct {
	locks       lockstore.Store
	bookings    BookingStore
	catalog     ShowtimeGetter
	payments    PaymentGateway
	publisher   messaging.Publisher
	redisClient *cache.RedisClient
	clock       clock.Clock
}

func NewBookingService(locks lockstore.Store, bookings BookingStore, catalog ShowtimeGetter, payments PaymentGateway, publisher messaging.Publisher, redisClient *cache.RedisClient, clk clock.Clock) *BookingService {
	return &BookingService{
		locks:       locks,
		bookings:    bookings,
		catalog:     catalog,
		payments:    payments,
		publisher:   publisher,
		redisClient: redisClient,
		clock:       clk,
	}
}

// Finalize bridges a payment outcome to lock commitment. Retrying with the
// same session id returns the already-confirmed booking unchanged.
func (s *BookingService) Finalize(ctx context.Context, req *models.FinalizeBookingRequest) (*models.Booking, error) {
	existing, err := s.bookings.GetBySessionID(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up booking: %w", err)
	}
	if existing != nil {
		return s.withTickets(ctx, existing)
	}

	switch req.PaymentResult.Status {
	case models.PaymentSucceeded:
		return s.finalizeSucceeded(ctx, req)
	case models.PaymentFailed, models.PaymentCancelled:
		return nil, s.finalizeFailed(ctx, req)
	default:
		return nil, apperrors.NewValidation("unknown payment status %q", req.PaymentResult.Status)
	}
}

func (s *BookingService) finalizeSucceeded(ctx context.Context, req *models.FinalizeBookingRequest) (*models.Booking, error) {
	attempt, err := s.locks.Commit(ctx, req.SessionID)
	if err == apperrors.ErrNoActiveLocks {
		return s.voidLapsedPayment(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	showtime, err := s.catalog.GetShowtime(ctx, attempt.ShowtimeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get showtime: %w", err)
	}

	booking := &models.Booking{
		SessionID:   req.SessionID,
		ShowtimeID:  attempt.ShowtimeID,
		OwnerID:     attempt.OwnerID,
		SeatCodes:   attempt.SeatCodes,
		TotalAmount: attempt.Payload.TotalAmount,
		Status:      models.BookingConfirmed,
	}
	if req.PaymentResult.PaymentID != "" {
		paymentID := req.PaymentResult.PaymentID
		booking.PaymentID = &paymentID
	}
	for _, code := range attempt.SeatCodes {
		booking.Tickets = append(booking.Tickets, models.Ticket{
			ID:       uuid.New().String(),
			SeatCode: code,
			Barcode:  buildBarcode(showtime, code),
			Status:   "valid",
		})
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		// A concurrent retry may have won the session_id unique race.
		if existing, lookupErr := s.bookings.GetBySessionID(ctx, req.SessionID); lookupErr == nil && existing != nil {
			return s.withTickets(ctx, existing)
		}
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	metrics.ActiveHolds.Sub(float64(len(attempt.SeatCodes)))
	metrics.FinalizeOutcomes.WithLabelValues(metrics.OutcomeConfirmed).Inc()

	event := models.BookingConfirmedEvent{
		BookingID:   booking.ID,
		SessionID:   req.SessionID,
		ShowtimeID:  attempt.ShowtimeID,
		Seats:       attempt.SeatCodes,
		TotalAmount: booking.TotalAmount,
		Timestamp:   s.clock.Now(),
	}
	if err := s.publisher.Publish(models.EventBookingConfirmed, event); err != nil {
		slog.Warn("Failed to publish booking confirmed event", "error", err, "booking_id", booking.ID)
	}

	s.invalidateSeatMap(ctx, attempt.ShowtimeID)

	return booking, nil
}

// voidLapsedPayment handles the worst ordering: money was received but the
// hold lapsed before finalize reached the lock store. The payment is voided
// and the client told to restart seat selection.
func (s *BookingService) voidLapsedPayment(ctx context.Context, req *models.FinalizeBookingRequest) (*models.Booking, error) {
	// One more idempotency check: a concurrent finalize may just have
	// committed this session.
	if existing, err := s.bookings.GetBySessionID(ctx, req.SessionID); err == nil && existing != nil {
		return s.withTickets(ctx, existing)
	}

	slog.Error("Payment received for lapsed hold, voiding",
		"session_id", req.SessionID,
		"payment_id", req.PaymentResult.PaymentID,
	)

	if req.PaymentResult.PaymentID != "" && s.payments != nil {
		if err := s.payments.VoidPayment(req.PaymentResult.PaymentID, "hold expired before finalize"); err != nil {
			slog.Error("Failed to void payment for lapsed hold", "error", err, "payment_id", req.PaymentResult.PaymentID)
		}
	}

	metrics.FinalizeOutcomes.WithLabelValues(metrics.OutcomeExpired).Inc()

	event := models.PaymentVoidedEvent{
		SessionID: req.SessionID,
		PaymentID: req.PaymentResult.PaymentID,
		Reason:    "hold expired before finalize",
		Timestamp: s.clock.Now(),
	}
	if err := s.publisher.Publish(models.EventPaymentVoided, event); err != nil {
		slog.Warn("Failed to publish payment voided event", "error", err, "session_id", req.SessionID)
	}

	return nil, apperrors.ErrHoldExpired
}

func (s *BookingService) finalizeFailed(ctx context.Context, req *models.FinalizeBookingRequest) error {
	attempt, err := s.locks.Attempt(ctx, req.SessionID)
	if err != nil && err != apperrors.ErrNotFound {
		return fmt.Errorf("failed to get reservation attempt: %w", err)
	}

	seats, err := s.locks.Release(ctx, req.SessionID)
	if err != nil {
		return fmt.Errorf("failed to release locks: %w", err)
	}

	metrics.FinalizeOutcomes.WithLabelValues(metrics.OutcomePaymentFailed).Inc()

	if len(seats) > 0 && attempt != nil {
		metrics.ActiveHolds.Sub(float64(len(seats)))

		event := models.LockReleasedEvent{
			SessionID:  req.SessionID,
			ShowtimeID: attempt.ShowtimeID,
			Seats:      seats,
			Reason:     "payment_" + req.PaymentResult.Status,
			Timestamp:  s.clock.Now(),
		}
		if err := s.publisher.Publish(models.EventLockReleased, event); err != nil {
			slog.Warn("Failed to publish lock released event", "error", err, "session_id", req.SessionID)
		}

		s.invalidateSeatMap(ctx, attempt.ShowtimeID)
	}

	return apperrors.ErrPaymentFailed
}

// List returns the booking history of an owner, newest first.
func (s *BookingService) List(ctx context.Context, ownerID string) (models.ListBookingsResponse, error) {
	bookings, err := s.bookings.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	result := make(models.ListBookingsResponse, len(bookings))
	for i, b := range bookings {
		result[i] = models.ListBookingsResponseItem{
			ID:          b.ID,
			ShowtimeID:  b.ShowtimeID,
			SeatCodes:   b.SeatCodes,
			TotalAmount: b.TotalAmount,
			Status:      b.Status,
			CreatedAt:   b.CreatedAt,
		}
	}
	return result, nil
}

// Get returns a single booking with its tickets, scoped to the owner.
func (s *BookingService) Get(ctx context.Context, bookingID, ownerID string) (*models.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		return nil, apperrors.ErrNotFound
	}
	if booking.OwnerID != ownerID {
		return nil, apperrors.ErrForbidden
	}
	return s.withTickets(ctx, booking)
}

// Cancel voids a confirmed booking and refunds its payment. Idempotent.
func (s *BookingService) Cancel(ctx context.Context, bookingID, ownerID string) (*models.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		return nil, apperrors.ErrNotFound
	}
	if booking.OwnerID != ownerID {
		return nil, apperrors.ErrForbidden
	}
	if booking.Status == models.BookingCancelled {
		return s.withTickets(ctx, booking)
	}

	if err := s.bookings.UpdateStatus(ctx, bookingID, models.BookingCancelled); err != nil {
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}
	booking.Status = models.BookingCancelled

	// Sold seats go back to inventory so the seat map and the lock store
	// agree on availability.
	released, err := s.locks.ReleaseCommitted(ctx, booking.SessionID)
	if err != nil {
		slog.Error("Failed to release committed locks for cancelled booking", "error", err, "booking_id", bookingID, "session_id", booking.SessionID)
	} else if len(released) > 0 {
		metrics.LocksReleased.Add(float64(len(released)))
	}

	if booking.PaymentID != nil && s.payments != nil {
		if err := s.payments.RefundPayment(*booking.PaymentID, booking.TotalAmount, "booking cancelled"); err != nil {
			slog.Error("Failed to refund cancelled booking", "error", err, "booking_id", bookingID, "payment_id", *booking.PaymentID)
		}
	}

	event := models.BookingCancelledEvent{
		BookingID:  bookingID,
		ShowtimeID: booking.ShowtimeID,
		Seats:      released,
		Reason:     "user_cancel",
		Timestamp:  s.clock.Now(),
	}
	if err := s.publisher.Publish(models.EventBookingCancelled, event); err != nil {
		slog.Warn("Failed to publish booking cancelled event", "error", err, "booking_id", bookingID)
	}

	s.invalidateSeatMap(ctx, booking.ShowtimeID)

	return s.withTickets(ctx, booking)
}

func (s *BookingService) withTickets(ctx context.Context, booking *models.Booking) (*models.Booking, error) {
	if len(booking.Tickets) > 0 {
		return booking, nil
	}
	tickets, err := s.bookings.GetTickets(ctx, booking.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tickets: %w", err)
	}
	booking.Tickets = tickets
	return booking, nil
}

func (s *BookingService) invalidateSeatMap(ctx context.Context, showtimeID string) {
	if s.redisClient == nil {
		return
	}
	if err := s.redisClient.InvalidateSeatMap(ctx, showtimeID); err != nil {
		slog.Warn("Failed to invalidate seat map cache", "error", err, "showtime_id", showtimeID)
	}
}

func buildBarcode(showtime *models.Showtime, seatCode string) string {
	hall := "NA"
	date := "00000000"
	if showtime != nil {
		hall = strings.ToUpper(strings.ReplaceAll(showtime.Hall, " ", ""))
		date = showtime.StartsAt.Format("20060102")
	}
	fragment := strings.SplitN(uuid.New().String(), "-", 2)[0]
	return fmt.Sprintf("%s-%s-%s-%s", hall, seatCode, date, fragment)
}
