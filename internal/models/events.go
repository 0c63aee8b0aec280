package models

import "time"

// NATS Event Types
const (
	EventLockAcquired     = "lock.acquired"
	EventLockReleased     = "lock.released"
	EventLockExpired      = "lock.expired"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventPaymentVoided    = "payment.voided"
)

// LockAcquiredEvent is published when a session takes a hold on a seat set
type LockAcquiredEvent struct {
	SessionID  string    `json:"session_id"`
	ShowtimeID string    `json:"showtime_id"`
	Seats      []string  `json:"seats"`
	OwnerID    string    `json:"owner_id"`
	ExpiresAt  time.Time `json:"expires_at"`
	Timestamp  time.Time `json:"timestamp"`
}

// LockReleasedEvent is published when a hold is released before expiry
type LockReleasedEvent struct {
	SessionID  string    `json:"session_id"`
	ShowtimeID string    `json:"showtime_id"`
	Seats      []string  `json:"seats"`
	Reason     string    `json:"reason"`
	Timestamp  time.Time `json:"timestamp"`
}

// LockExpiredEvent is published by the sweeper, one event per showtime whose
// seats were reclaimed in a sweep cycle
type LockExpiredEvent struct {
	ShowtimeID string    `json:"showtime_id"`
	Seats      []string  `json:"seats"`
	Timestamp  time.Time `json:"timestamp"`
}

// BookingConfirmedEvent is published when finalize commits a hold
type BookingConfirmedEvent struct {
	BookingID   string    `json:"booking_id"`
	SessionID   string    `json:"session_id"`
	ShowtimeID  string    `json:"showtime_id"`
	Seats       []string  `json:"seats"`
	TotalAmount int64     `json:"total_amount"`
	Timestamp   time.Time `json:"timestamp"`
}

// BookingCancelledEvent is published when a confirmed booking is cancelled.
// Seats lists the seat codes returned to inventory.
type BookingCancelledEvent struct {
	BookingID  string    `json:"booking_id"`
	ShowtimeID string    `json:"showtime_id"`
	Seats      []string  `json:"seats"`
	Reason     string    `json:"reason"`
	Timestamp  time.Time `json:"timestamp"`
}

// PaymentVoidedEvent is published when money was received but the hold had
// already lapsed. Downstream consumers treat it as a priority alert.
type PaymentVoidedEvent struct {
	SessionID string    `json:"session_id"`
	PaymentID string    `json:"payment_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}
