package repository

import (
	"context"
	"database/sql"
	"fmt"

	"cineseat/internal/database"
	"cineseat/internal/models"
)

// CatalogRepository serves the movie/showtime/seat catalog. Text search goes
// through Elasticsearch when available; this repository carries the ILIKE
// fallback.
type CatalogRepository struct {
	db *database.DB
}

func NewCatalogRepository(db *database.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) ListMovies(ctx context.Context, query, status string, page, pageSize int) ([]models.Movie, error) {
	var args []interface{}
	argIndex := 1

	sqlQuery := `
		SELECT id, title, genre, duration_min, status, description, created_at
		FROM movies
		WHERE 1=1`

	if query != "" {
		sqlQuery += fmt.Sprintf(" AND (title ILIKE $%d OR description ILIKE $%d)", argIndex, argIndex)
		args = append(args, "%"+query+"%")
		argIndex++
	}

	if status != "" {
		sqlQuery += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, status)
		argIndex++
	}

	sqlQuery += " ORDER BY created_at DESC"

	if page > 0 && pageSize > 0 {
		offset := (page - 1) * pageSize
		sqlQuery += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
		args = append(args, pageSize, offset)
	}

	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movies []models.Movie
	for rows.Next() {
		var m models.Movie
		if err := rows.Scan(&m.ID, &m.Title, &m.Genre, &m.DurationMin, &m.Status, &m.Description, &m.CreatedAt); err != nil {
			return nil, err
		}
		movies = append(movies, m)
	}

	return movies, rows.Err()
}

func (r *CatalogRepository) GetMovie(ctx context.Context, id string) (*models.Movie, error) {
	m := &models.Movie{}
	query := `
		SELECT id, title, genre, duration_min, status, description, created_at
		FROM movies
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID, &m.Title, &m.Genre, &m.DurationMin, &m.Status, &m.Description, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

func (r *CatalogRepository) CreateMovie(ctx context.Context, m *models.Movie) error {
	query := `
		INSERT INTO movies (title, genre, duration_min, status, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	return r.db.QueryRowContext(ctx, query, m.Title, m.Genre, m.DurationMin, m.Status, m.Description).
		Scan(&m.ID, &m.CreatedAt)
}

func (r *CatalogRepository) ListShowtimes(ctx context.Context, movieID string) ([]models.Showtime, error) {
	query := `
		SELECT id, movie_id, hall, starts_at, base_price
		FROM showtimes
		WHERE movie_id = $1
		ORDER BY starts_at`

	rows, err := r.db.QueryContext(ctx, query, movieID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var showtimes []models.Showtime
	for rows.Next() {
		var st models.Showtime
		if err := rows.Scan(&st.ID, &st.MovieID, &st.Hall, &st.StartsAt, &st.BasePrice); err != nil {
			return nil, err
		}
		showtimes = append(showtimes, st)
	}

	return showtimes, rows.Err()
}

func (r *CatalogRepository) GetShowtime(ctx context.Context, id string) (*models.Showtime, error) {
	st := &models.Showtime{}
	query := `SELECT id, movie_id, hall, starts_at, base_price FROM showtimes WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(&st.ID, &st.MovieID, &st.Hall, &st.StartsAt, &st.BasePrice)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return st, err
}

func (r *CatalogRepository) CreateShowtime(ctx context.Context, st *models.Showtime) error {
	query := `
		INSERT INTO showtimes (movie_id, hall, starts_at, base_price)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	return r.db.QueryRowContext(ctx, query, st.MovieID, st.Hall, st.StartsAt, st.BasePrice).Scan(&st.ID)
}

func (r *CatalogRepository) SeatsForShowtime(ctx context.Context, showtimeID string) ([]models.Seat, error) {
	query := `
		SELECT id, showtime_id, seat_code, seat_type, is_broken
		FROM seats
		WHERE showtime_id = $1
		ORDER BY seat_code`

	rows, err := r.db.QueryContext(ctx, query, showtimeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var seats []models.Seat
	for rows.Next() {
		var s models.Seat
		if err := rows.Scan(&s.ID, &s.ShowtimeID, &s.SeatCode, &s.SeatType, &s.IsBroken); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}

	return seats, rows.Err()
}

// GetSeat is the catalog lookup the reservation service validates against:
// does the seat exist for this showtime, and is it serviceable.
func (r *CatalogRepository) GetSeat(ctx context.Context, showtimeID, seatCode string) (*models.Seat, error) {
	s := &models.Seat{}
	query := `
		SELECT id, showtime_id, seat_code, seat_type, is_broken
		FROM seats
		WHERE showtime_id = $1 AND seat_code = $2`

	err := r.db.QueryRowContext(ctx, query, showtimeID, seatCode).Scan(
		&s.ID, &s.ShowtimeID, &s.SeatCode, &s.SeatType, &s.IsBroken)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

func (r *CatalogRepository) CreateSeats(ctx context.Context, seats []models.Seat) error {
	if len(seats) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO seats (showtime_id, seat_code, seat_type, is_broken)
		VALUES ($1, $2, $3, $4)`
	for _, s := range seats {
		if _, err := tx.ExecContext(ctx, query, s.ShowtimeID, s.SeatCode, s.SeatType, s.IsBroken); err != nil {
			return fmt.Errorf("failed to insert seat %s: %w", s.SeatCode, err)
		}
	}

	return tx.Commit()
}
