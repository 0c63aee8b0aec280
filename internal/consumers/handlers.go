package consumers

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/stan.go"

	"cineseat/internal/cache"
	"cineseat/internal/models"
)

// Handlers process seat-status events downstream of the API: they keep the
// cached seat maps fresh and surface audit trails for reconciliation.
type Handlers struct {
	redisClient *cache.RedisClient
}

func NewHandlers(redisClient *cache.RedisClient) *Handlers {
	return &Handlers{
		redisClient: redisClient,
	}
}

func (h *Handlers) invalidateSeatMap(showtimeID string) {
	if h.redisClient == nil {
		return
	}
	if err := h.redisClient.InvalidateSeatMap(context.Background(), showtimeID); err != nil {
		slog.Error("Failed to invalidate seat map", "showtime_id", showtimeID, "error", err)
	}
}

func (h *Handlers) HandleLockAcquired(m *stan.Msg) {
	var event models.LockAcquiredEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal lock acquired event", "error", err)
		return
	}

	slog.Info("Processing lock acquired event",
		"session_id", event.SessionID,
		"showtime_id", event.ShowtimeID,
		"seats", event.Seats)

	h.invalidateSeatMap(event.ShowtimeID)

	m.Ack()
}

func (h *Handlers) HandleLockReleased(m *stan.Msg) {
	var event models.LockReleasedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal lock released event", "error", err)
		return
	}

	slog.Info("Processing lock released event",
		"session_id", event.SessionID,
		"showtime_id", event.ShowtimeID,
		"reason", event.Reason)

	h.invalidateSeatMap(event.ShowtimeID)

	m.Ack()
}

func (h *Handlers) HandleLockExpired(m *stan.Msg) {
	var event models.LockExpiredEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal lock expired event", "error", err)
		return
	}

	slog.Info("Processing lock expired event",
		"showtime_id", event.ShowtimeID,
		"seats", event.Seats)

	h.invalidateSeatMap(event.ShowtimeID)

	m.Ack()
}

func (h *Handlers) HandleBookingConfirmed(m *stan.Msg) {
	var event models.BookingConfirmedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal booking confirmed event", "error", err)
		return
	}

	slog.Info("Processing booking confirmed event",
		"booking_id", event.BookingID,
		"showtime_id", event.ShowtimeID,
		"total_amount", event.TotalAmount)

	// In a real deployment we might:
	// - Send ticket emails
	// - Update analytics
	h.invalidateSeatMap(event.ShowtimeID)

	m.Ack()
}

func (h *Handlers) HandleBookingCancelled(m *stan.Msg) {
	var event models.BookingCancelledEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal booking cancelled event", "error", err)
		return
	}

	slog.Info("Processing booking cancelled event",
		"booking_id", event.BookingID,
		"reason", event.Reason)

	h.invalidateSeatMap(event.ShowtimeID)

	m.Ack()
}

// HandlePaymentVoided logs the money-received-but-hold-lapsed case loudly so
// operators spot it during reconciliation.
func (h *Handlers) HandlePaymentVoided(m *stan.Msg) {
	var event models.PaymentVoidedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal payment voided event", "error", err)
		return
	}

	slog.Error("Payment voided: money received for lapsed hold",
		"session_id", event.SessionID,
		"payment_id", event.PaymentID,
		"reason", event.Reason)

	m.Ack()
}
