package repository

import (
	"cineseat/internal/clock"
	"cineseat/internal/database"
)

type Repositories struct {
	Locks    *LockRepository
	Bookings *BookingRepository
	Catalog  *CatalogRepository
	Users    *UserRepository
}

func NewRepositories(db *database.DB, clk clock.Clock) *Repositories {
	return &Repositories{
		Locks:    NewLockRepository(db, clk),
		Bookings: NewBookingRepository(db),
		Catalog:  NewCatalogRepository(db),
		Users:    NewUserRepository(db),
	}
}
