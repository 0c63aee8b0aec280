package service

import (
	"time"

	"cineseat/internal/cache"
	"cineseat/internal/clock"
	"cineseat/internal/external"
	"cineseat/internal/lockstore"
	"cineseat/internal/messaging"
	"cineseat/internal/repository"
	"cineseat/internal/search"
)

type Services struct {
	Reservations *ReservationService
	Bookings     *BookingService
	Catalog      *CatalogService
}

func NewServices(repos *repository.Repositories, locks lockstore.Store, clk clock.Clock, holdDuration time.Duration, publisher messaging.Publisher, paymentClient *external.PaymentClient, redisClient *cache.RedisClient, movieIndex *search.MovieIndex) *Services {
	reservationService := NewReservationService(locks, repos.Catalog, repos.Bookings, clk, holdDuration, publisher, redisClient)
	bookingService := NewBookingService(locks, repos.Bookings, repos.Catalog, paymentClient, publisher, redisClient, clk)
	catalogService := NewCatalogService(repos.Catalog, movieIndex)

	return &Services{
		Reservations: reservationService,
		Bookings:     bookingService,
		Catalog:      catalogService,
	}
}
