package models

import (
	"time"
)

// CreateLockRequest - hold request for a seat set within one showtime
type CreateLockRequest struct {
	ShowtimeID string   `json:"showtime_id" binding:"required"`
	Seats      []string `json:"seats" binding:"required,min=1"`
	OwnerID    string   `json:"owner_id"`
}

// CreateLockResponse - returned on full acquisition; expires_at is
// authoritative, client countdowns are display mirrors of it
type CreateLockResponse struct {
	SessionID   string    `json:"session_id"`
	ExpiresAt   time.Time `json:"expires_at"`
	LockedSeats []string  `json:"locked_seats"`
}

// ConflictResponse - 409 body listing exactly the requested seats that are
// under a live hold or already sold
type ConflictResponse struct {
	ConflictingSeats []string `json:"conflicting_seats"`
}

// ReleaseLockResponse - always 200, empty list for unknown sessions
type ReleaseLockResponse struct {
	ReleasedSeats []string `json:"released_seats"`
}

// PaymentResult is the opaque payment outcome passed through from the
// payment collaborator. Only the status and payment id are read here;
// provider specifics stay in Details.
type PaymentResult struct {
	PaymentID string         `json:"payment_id"`
	Status    string         `json:"status" binding:"required"`
	Method    string         `json:"method,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

const (
	PaymentSucceeded = "succeeded"
	PaymentFailed    = "failed"
	PaymentCancelled = "cancelled"
)

// FinalizeBookingRequest - bridges a payment outcome to lock commitment
type FinalizeBookingRequest struct {
	SessionID     string        `json:"session_id" binding:"required"`
	PaymentResult PaymentResult `json:"payment_result" binding:"required"`
}

// FinalizeBookingResponse wraps the confirmed booking
type FinalizeBookingResponse struct {
	Booking *Booking `json:"booking"`
}

// LockedSeatsResponse - seats currently under an active hold for a showtime
type LockedSeatsResponse struct {
	ShowtimeID  string   `json:"showtime_id"`
	LockedSeats []string `json:"locked_seats"`
}

// SeatMapItem - one seat in the rendered seat map
type SeatMapItem struct {
	SeatCode string `json:"seat_code"`
	SeatType string `json:"seat_type"`
	Status   string `json:"status"`
	Price    int64  `json:"price"`
}

// Seat map statuses. Locked wins over booked, broken wins over everything.
const (
	SeatStatusAvailable = "available"
	SeatStatusLocked    = "locked"
	SeatStatusBooked    = "booked"
	SeatStatusBroken    = "broken"
)

// SeatMapResponse - full seat map for a showtime
type SeatMapResponse struct {
	ShowtimeID string        `json:"showtime_id"`
	Seats      []SeatMapItem `json:"seats"`
}

// ListMoviesResponseItem - catalog list entry
type ListMoviesResponseItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Genre       string `json:"genre"`
	DurationMin int    `json:"duration_min"`
	Status      string `json:"status"`
}

type ListMoviesResponse []ListMoviesResponseItem

// ListShowtimesResponseItem - screening list entry for a movie
type ListShowtimesResponseItem struct {
	ID        string    `json:"id"`
	Hall      string    `json:"hall"`
	StartsAt  time.Time `json:"starts_at"`
	BasePrice int64     `json:"base_price"`
}

type ListShowtimesResponse []ListShowtimesResponseItem

// ListBookingsResponseItem - booking history entry
type ListBookingsResponseItem struct {
	ID          string    `json:"id"`
	ShowtimeID  string    `json:"showtime_id"`
	SeatCodes   []string  `json:"seat_codes"`
	TotalAmount int64     `json:"total_amount"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type ListBookingsResponse []ListBookingsResponseItem
