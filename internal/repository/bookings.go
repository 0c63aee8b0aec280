package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"cineseat/internal/database"
	"cineseat/internal/models"
)

type BookingRepository struct {
	db *database.DB
}

func NewBookingRepository(db *database.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create inserts the booking and its tickets in one transaction. The unique
// session_id column is the exactly-once key for finalize retries.
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO bookings (session_id, showtime_id, owner_id, seat_codes, total_amount, status, payment_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err = tx.QueryRowContext(ctx, query,
		booking.SessionID,
		booking.ShowtimeID,
		booking.OwnerID,
		pq.Array(booking.SeatCodes),
		booking.TotalAmount,
		booking.Status,
		booking.PaymentID,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	ticketQuery := `
		INSERT INTO tickets (id, booking_id, seat_code, barcode, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`
	for i := range booking.Tickets {
		t := &booking.Tickets[i]
		t.BookingID = booking.ID
		if err := tx.QueryRowContext(ctx, ticketQuery, t.ID, t.BookingID, t.SeatCode, t.Barcode, t.Status).Scan(&t.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert ticket: %w", err)
		}
	}

	return tx.Commit()
}

const bookingSelect = `
	SELECT id, session_id, showtime_id, owner_id, seat_codes, total_amount, status, payment_id, created_at, updated_at
	FROM bookings`

func (r *BookingRepository) scanBooking(row *sql.Row) (*models.Booking, error) {
	booking := &models.Booking{}
	err := row.Scan(
		&booking.ID,
		&booking.SessionID,
		&booking.ShowtimeID,
		&booking.OwnerID,
		pq.Array(&booking.SeatCodes),
		&booking.TotalAmount,
		&booking.Status,
		&booking.PaymentID,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	return r.scanBooking(r.db.QueryRowContext(ctx, bookingSelect+` WHERE id = $1`, id))
}

// GetBySessionID looks a booking up by its finalize idempotency key.
func (r *BookingRepository) GetBySessionID(ctx context.Context, sessionID string) (*models.Booking, error) {
	return r.scanBooking(r.db.QueryRowContext(ctx, bookingSelect+` WHERE session_id = $1`, sessionID))
}

func (r *BookingRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Booking, error) {
	query := bookingSelect + ` WHERE owner_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		var booking models.Booking
		err := rows.Scan(
			&booking.ID,
			&booking.SessionID,
			&booking.ShowtimeID,
			&booking.OwnerID,
			pq.Array(&booking.SeatCodes),
			&booking.TotalAmount,
			&booking.Status,
			&booking.PaymentID,
			&booking.CreatedAt,
			&booking.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}

// UpdateStatus flips a booking between confirmed and cancelled together with
// its tickets.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id, status string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = $2`, status, id); err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}

	ticketStatus := "valid"
	if status == models.BookingCancelled {
		ticketStatus = "cancelled"
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE tickets SET status = $1 WHERE booking_id = $2`, ticketStatus, id); err != nil {
		return fmt.Errorf("failed to update ticket status: %w", err)
	}

	return tx.Commit()
}

func (r *BookingRepository) GetTickets(ctx context.Context, bookingID string) ([]models.Ticket, error) {
	query := `
		SELECT id, booking_id, seat_code, barcode, status, created_at
		FROM tickets
		WHERE booking_id = $1
		ORDER BY seat_code`

	rows, err := r.db.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		var t models.Ticket
		if err := rows.Scan(&t.ID, &t.BookingID, &t.SeatCode, &t.Barcode, &t.Status, &t.CreatedAt); err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}

	return tickets, rows.Err()
}

// BookedSeats returns the seat codes with a confirmed booking for the
// showtime, used for seat-map rendering.
func (r *BookingRepository) BookedSeats(ctx context.Context, showtimeID string) ([]string, error) {
	query := `
		SELECT unnest(seat_codes) FROM bookings
		WHERE showtime_id = $1 AND status = 'confirmed'`

	rows, err := r.db.QueryContext(ctx, query, showtimeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := []string{}
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		seats = append(seats, code)
	}

	return seats, rows.Err()
}
