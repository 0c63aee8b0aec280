package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createExtensions,
		createUsersTable,
		createMoviesTable,
		createShowtimesTable,
		createSeatsTable,
		createSeatLocksTable,
		createReservationAttemptsTable,
		createBookingsTable,
		createTicketsTable,
		createSeatLockIndexes,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createExtensions = `
CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
    user_id SERIAL PRIMARY KEY,
    email VARCHAR(255) UNIQUE NOT NULL,
    password_hash VARCHAR(64) NOT NULL,
    first_name VARCHAR(100) NOT NULL,
    surname VARCHAR(100) NOT NULL,
    registered_at TIMESTAMP NOT NULL DEFAULT NOW(),
    is_active BOOLEAN NOT NULL DEFAULT TRUE
);`

const createMoviesTable = `
CREATE TABLE IF NOT EXISTS movies (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    title VARCHAR(500) NOT NULL,
    genre VARCHAR(100) NOT NULL DEFAULT '',
    duration_min INTEGER NOT NULL DEFAULT 0,
    status VARCHAR(20) NOT NULL DEFAULT 'showing',
    description TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (status IN ('showing', 'coming_soon'))
);`

const createShowtimesTable = `
CREATE TABLE IF NOT EXISTS showtimes (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    movie_id UUID NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
    hall VARCHAR(50) NOT NULL,
    starts_at TIMESTAMP NOT NULL,
    base_price BIGINT NOT NULL DEFAULT 9000,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

const createSeatsTable = `
CREATE TABLE IF NOT EXISTS seats (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    showtime_id UUID NOT NULL REFERENCES showtimes(id) ON DELETE CASCADE,
    seat_code VARCHAR(10) NOT NULL,
    seat_type VARCHAR(10) NOT NULL DEFAULT 'NORMAL',
    is_broken BOOLEAN NOT NULL DEFAULT FALSE,

    UNIQUE(showtime_id, seat_code),
    CHECK (seat_type IN ('NORMAL', 'VIP'))
);`

const createSeatLocksTable = `
CREATE TABLE IF NOT EXISTS seat_locks (
    id BIGSERIAL PRIMARY KEY,
    showtime_id UUID NOT NULL,
    seat_code VARCHAR(10) NOT NULL,
    session_id VARCHAR(64) NOT NULL,
    owner_id VARCHAR(64) NOT NULL,
    state VARCHAR(20) NOT NULL DEFAULT 'ACTIVE',
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    expires_at TIMESTAMP NOT NULL,

    CHECK (state IN ('ACTIVE', 'RELEASED', 'COMMITTED', 'EXPIRED')),
    CHECK (expires_at >= created_at)
);`

const createReservationAttemptsTable = `
CREATE TABLE IF NOT EXISTS reservation_attempts (
    session_id VARCHAR(64) PRIMARY KEY,
    showtime_id UUID NOT NULL,
    owner_id VARCHAR(64) NOT NULL,
    seat_codes TEXT[] NOT NULL,
    payload JSONB NOT NULL DEFAULT '{}',
    state VARCHAR(20) NOT NULL DEFAULT 'HELD',
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    expires_at TIMESTAMP NOT NULL,

    CHECK (state IN ('PENDING', 'HELD', 'COMMITTED', 'RELEASED', 'EXPIRED'))
);`

const createBookingsTable = `
CREATE TABLE IF NOT EXISTS bookings (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    session_id VARCHAR(64) UNIQUE NOT NULL,
    showtime_id UUID NOT NULL,
    owner_id VARCHAR(64) NOT NULL,
    seat_codes TEXT[] NOT NULL,
    total_amount BIGINT NOT NULL DEFAULT 0,
    status VARCHAR(20) NOT NULL DEFAULT 'confirmed',
    payment_id VARCHAR(255),
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (status IN ('confirmed', 'cancelled'))
);`

const createTicketsTable = `
CREATE TABLE IF NOT EXISTS tickets (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    booking_id UUID NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
    seat_code VARCHAR(10) NOT NULL,
    barcode VARCHAR(64) NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'valid',
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (status IN ('valid', 'cancelled'))
);`

// The partial unique index is what enforces the at-most-one-ACTIVE invariant
// per seat. Concurrent inserts racing past the FOR UPDATE pre-check land on
// this index and lose.
const createSeatLockIndexes = `
CREATE UNIQUE INDEX IF NOT EXISTS seat_locks_active_key_idx
    ON seat_locks (showtime_id, seat_code) WHERE state = 'ACTIVE';
CREATE INDEX IF NOT EXISTS seat_locks_session_idx ON seat_locks (session_id);
CREATE INDEX IF NOT EXISTS seat_locks_expiry_idx
    ON seat_locks (expires_at) WHERE state = 'ACTIVE';`
