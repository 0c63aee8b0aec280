package models

import (
	"time"
)

// LockState is the lifecycle state of a single seat lock.
type LockState string

const (
	LockActive    LockState = "ACTIVE"
	LockReleased  LockState = "RELEASED"
	LockCommitted LockState = "COMMITTED"
	LockExpired   LockState = "EXPIRED"
)

// AttemptState is the lifecycle state of a reservation attempt. HELD is
// entered only on full acquisition; the three terminal states are final.
type AttemptState string

const (
	AttemptPending   AttemptState = "PENDING"
	AttemptHeld      AttemptState = "HELD"
	AttemptCommitted AttemptState = "COMMITTED"
	AttemptReleased  AttemptState = "RELEASED"
	AttemptExpired   AttemptState = "EXPIRED"
)

// SeatKey identifies a physical seat within a scheduled screening.
type SeatKey struct {
	ShowtimeID string `json:"showtime_id"`
	SeatCode   string `json:"seat_code"`
}

// SeatLock is a time-boxed exclusive claim on one seat. For a given
// (showtime_id, seat_code) at most one lock is ACTIVE at any time.
type SeatLock struct {
	ID         int64     `json:"id" db:"id"`
	ShowtimeID string    `json:"showtime_id" db:"showtime_id"`
	SeatCode   string    `json:"seat_code" db:"seat_code"`
	SessionID  string    `json:"session_id" db:"session_id"`
	OwnerID    string    `json:"owner_id" db:"owner_id"`
	State      LockState `json:"state" db:"state"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	ExpiresAt  time.Time `json:"expires_at" db:"expires_at"`
}

// ReservationAttempt groups the seat locks created by one hold request and
// carries the booking payload captured at request time.
type ReservationAttempt struct {
	SessionID  string         `json:"session_id" db:"session_id"`
	ShowtimeID string         `json:"showtime_id" db:"showtime_id"`
	OwnerID    string         `json:"owner_id" db:"owner_id"`
	SeatCodes  []string       `json:"seat_codes"`
	Payload    BookingPayload `json:"payload"`
	State      AttemptState   `json:"state" db:"state"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
	ExpiresAt  time.Time      `json:"expires_at" db:"expires_at"`
}

// BookingPayload is the pricing snapshot taken when the hold is created.
// The finalized booking is built from it, never from client-resupplied data.
type BookingPayload struct {
	Seats       []PricedSeat `json:"seats"`
	TotalAmount int64        `json:"total_amount"`
}

type PricedSeat struct {
	SeatCode string `json:"seat_code"`
	SeatType string `json:"seat_type"`
	Price    int64  `json:"price"`
}

// Booking is produced only when a reservation attempt is finalized after a
// successful payment. Immutable once confirmed, except for cancellation.
type Booking struct {
	ID          string    `json:"id" db:"id"`
	SessionID   string    `json:"session_id" db:"session_id"`
	ShowtimeID  string    `json:"showtime_id" db:"showtime_id"`
	OwnerID     string    `json:"owner_id" db:"owner_id"`
	SeatCodes   []string  `json:"seat_codes"`
	TotalAmount int64     `json:"total_amount" db:"total_amount"`
	Status      string    `json:"status" db:"status"`
	PaymentID   *string   `json:"payment_id,omitempty" db:"payment_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
	Tickets     []Ticket  `json:"tickets,omitempty"` // Not from DB, filled separately
}

const (
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
)

// Ticket is one admission document per booked seat.
type Ticket struct {
	ID        string    `json:"id" db:"id"`
	BookingID string    `json:"booking_id" db:"booking_id"`
	SeatCode  string    `json:"seat_code" db:"seat_code"`
	Barcode   string    `json:"barcode" db:"barcode"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Movie is a catalog entry.
type Movie struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Genre       string    `json:"genre" db:"genre"`
	DurationMin int       `json:"duration_min" db:"duration_min"`
	Status      string    `json:"status" db:"status"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

const (
	MovieShowing    = "showing"
	MovieComingSoon = "coming_soon"
)

// Showtime is one scheduled screening of a movie in a hall.
type Showtime struct {
	ID        string    `json:"id" db:"id"`
	MovieID   string    `json:"movie_id" db:"movie_id"`
	Hall      string    `json:"hall" db:"hall"`
	StartsAt  time.Time `json:"starts_at" db:"starts_at"`
	BasePrice int64     `json:"base_price" db:"base_price"`
}

// Seat is a physical seat within a showtime's hall layout.
type Seat struct {
	ID         string `json:"id" db:"id"`
	ShowtimeID string `json:"showtime_id" db:"showtime_id"`
	SeatCode   string `json:"seat_code" db:"seat_code"`
	SeatType   string `json:"seat_type" db:"seat_type"`
	IsBroken   bool   `json:"is_broken" db:"is_broken"`
}

const (
	SeatNormal = "NORMAL"
	SeatVIP    = "VIP"
)

// User represents an authenticated account. Authentication itself is an
// external concern; this service only resolves credentials to an owner id.
type User struct {
	UserID       int64     `json:"user_id" db:"user_id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FirstName    string    `json:"first_name" db:"first_name"`
	Surname      string    `json:"surname" db:"surname"`
	RegisteredAt time.Time `json:"registered_at" db:"registered_at"`
	IsActive     bool      `json:"is_active" db:"is_active"`
}
