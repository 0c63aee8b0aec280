package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cineseat/internal/clock"
	apperrors "cineseat/internal/errors"
	"cineseat/internal/lockstore"
	"cineseat/internal/models"
)

const testHold = 7 * time.Minute

var testStart = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

// fakeCatalog serves a single showtime with a fixed seat grid.
type fakeCatalog struct {
	showtime *models.Showtime
	seats    map[string]*models.Seat
}

func newFakeCatalog() *fakeCatalog {
	c := &fakeCatalog{
		showtime: &models.Showtime{
			ID:        "st-1",
			MovieID:   "mv-1",
			Hall:      "Hall 1",
			StartsAt:  testStart.Add(48 * time.Hour),
			BasePrice: 8000,
		},
		seats: make(map[string]*models.Seat),
	}
	for _, code := range []string{"A1", "A2", "A3", "B1", "B2"} {
		c.seats[code] = &models.Seat{ID: "seat-" + code, ShowtimeID: "st-1", SeatCode: code, SeatType: models.SeatNormal}
	}
	c.seats["V1"] = &models.Seat{ID: "seat-V1", ShowtimeID: "st-1", SeatCode: "V1", SeatType: models.SeatVIP}
	c.seats["X1"] = &models.Seat{ID: "seat-X1", ShowtimeID: "st-1", SeatCode: "X1", SeatType: models.SeatNormal, IsBroken: true}
	return c
}

func (c *fakeCatalog) GetShowtime(_ context.Context, id string) (*models.Showtime, error) {
	if id != c.showtime.ID {
		return nil, nil
	}
	return c.showtime, nil
}

func (c *fakeCatalog) GetSeat(_ context.Context, showtimeID, seatCode string) (*models.Seat, error) {
	if showtimeID != c.showtime.ID {
		return nil, nil
	}
	return c.seats[seatCode], nil
}

func (c *fakeCatalog) SeatsForShowtime(_ context.Context, showtimeID string) ([]models.Seat, error) {
	out := make([]models.Seat, 0, len(c.seats))
	for _, code := range []string{"A1", "A2", "A3", "B1", "B2", "V1", "X1"} {
		out = append(out, *c.seats[code])
	}
	return out, nil
}

type fakeSold struct {
	seats []string
}

func (f *fakeSold) BookedSeats(context.Context, string) ([]string, error) {
	return f.seats, nil
}

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	Subject string
	Data    interface{}
}

func (p *recordingPublisher) Publish(subject string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Subject: subject, Data: data})
	return nil
}

func (p *recordingPublisher) subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Subject
	}
	return out
}

func newReservationFixture() (*ReservationService, *clock.Fake, *recordingPublisher, lockstore.Store) {
	clk := clock.NewFake(testStart)
	store := lockstore.NewMemoryStore(clk)
	publisher := &recordingPublisher{}
	svc := NewReservationService(store, newFakeCatalog(), &fakeSold{}, clk, testHold, publisher, nil)
	return svc, clk, publisher, store
}

func TestAcquire_CapturesPricingSnapshot(t *testing.T) {
	svc, _, publisher, _ := newReservationFixture()
	ctx := context.Background()

	resp, err := svc.Acquire(ctx, &models.CreateLockRequest{
		ShowtimeID: "st-1",
		Seats:      []string{"A1", "V1"},
		OwnerID:    "user-1",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, testStart.Add(testHold), resp.ExpiresAt)
	assert.Equal(t, []string{"A1", "V1"}, resp.LockedSeats)

	// The VIP surcharge lands in the captured payload, not in any client
	// supplied number.
	attempt, err := svc.locks.Attempt(ctx, resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, int64(8000+8000+3000), attempt.Payload.TotalAmount)

	assert.Equal(t, []string{models.EventLockAcquired}, publisher.subjects())
}

func TestAcquire_UnknownShowtime(t *testing.T) {
	svc, _, _, _ := newReservationFixture()

	_, err := svc.Acquire(context.Background(), &models.CreateLockRequest{
		ShowtimeID: "st-missing",
		Seats:      []string{"A1"},
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAcquire_UnknownSeatRejected(t *testing.T) {
	svc, _, publisher, _ := newReservationFixture()

	_, err := svc.Acquire(context.Background(), &models.CreateLockRequest{
		ShowtimeID: "st-1",
		Seats:      []string{"A1", "Z99"},
	})
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, publisher.subjects())
}

func TestAcquire_BrokenSeatRejected(t *testing.T) {
	svc, _, _, _ := newReservationFixture()

	_, err := svc.Acquire(context.Background(), &models.CreateLockRequest{
		ShowtimeID: "st-1",
		Seats:      []string{"X1"},
	})
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestAcquire_OverlapConflict(t *testing.T) {
	svc, _, _, _ := newReservationFixture()
	ctx := context.Background()

	_, err := svc.Acquire(ctx, &models.CreateLockRequest{
		ShowtimeID: "st-1",
		Seats:      []string{"A1", "A2"},
		OwnerID:    "user-1",
	})
	require.NoError(t, err)

	_, err = svc.Acquire(ctx, &models.CreateLockRequest{
		ShowtimeID: "st-1",
		Seats:      []string{"A2", "A3"},
		OwnerID:    "user-2",
	})
	var conflict *apperrors.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"A2"}, conflict.Seats)
}

func TestAcquire_DeduplicatesRequestedSeats(t *testing.T) {
	svc, _, _, _ := newReservationFixture()

	resp, err := svc.Acquire(context.Background(), &models.CreateLockRequest{
		ShowtimeID: "st-1",
		Seats:      []string{"A1", "A1", "A2"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2"}, resp.LockedSeats)
}

func TestRelease_IdempotentThroughService(t *testing.T) {
	svc, _, publisher, _ := newReservationFixture()
	ctx := context.Background()

	resp, err := svc.Acquire(ctx, &models.CreateLockRequest{
		ShowtimeID: "st-1",
		Seats:      []string{"A1"},
	})
	require.NoError(t, err)

	released, err := svc.Release(ctx, resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1"}, released.ReleasedSeats)

	again, err := svc.Release(ctx, resp.SessionID)
	require.NoError(t, err)
	assert.Empty(t, again.ReleasedSeats)

	// Unknown session is a quiet no-op, not an error.
	unknown, err := svc.Release(ctx, "lock_unknown")
	require.NoError(t, err)
	assert.Empty(t, unknown.ReleasedSeats)

	assert.Equal(t, []string{models.EventLockAcquired, models.EventLockReleased}, publisher.subjects())
}

func TestLockedSeats(t *testing.T) {
	svc, _, _, _ := newReservationFixture()
	ctx := context.Background()

	_, err := svc.Acquire(ctx, &models.CreateLockRequest{
		ShowtimeID: "st-1",
		Seats:      []string{"B2", "B1"},
	})
	require.NoError(t, err)

	resp, err := svc.LockedSeats(ctx, "st-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"B1", "B2"}, resp.LockedSeats)

	_, err = svc.LockedSeats(ctx, "st-missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSeatMap_StatusPrecedence(t *testing.T) {
	clk := clock.NewFake(testStart)
	store := lockstore.NewMemoryStore(clk)
	sold := &fakeSold{seats: []string{"A3", "A1"}}
	svc := NewReservationService(store, newFakeCatalog(), sold, clk, testHold, &recordingPublisher{}, nil)
	ctx := context.Background()

	// A1 is booked AND locked; locked wins in the rendered map.
	_, err := svc.Acquire(ctx, &models.CreateLockRequest{
		ShowtimeID: "st-1",
		Seats:      []string{"A1", "A2"},
	})
	require.NoError(t, err)

	resp, err := svc.SeatMap(ctx, "st-1")
	require.NoError(t, err)

	byCode := make(map[string]models.SeatMapItem)
	for _, item := range resp.Seats {
		byCode[item.SeatCode] = item
	}

	assert.Equal(t, models.SeatStatusLocked, byCode["A1"].Status)
	assert.Equal(t, models.SeatStatusLocked, byCode["A2"].Status)
	assert.Equal(t, models.SeatStatusBooked, byCode["A3"].Status)
	assert.Equal(t, models.SeatStatusAvailable, byCode["B1"].Status)
	assert.Equal(t, models.SeatStatusBroken, byCode["X1"].Status)

	assert.Equal(t, int64(8000), byCode["A1"].Price)
	assert.Equal(t, int64(11000), byCode["V1"].Price)
}

func TestSeatMap_LockExpiryFreesSeatInMap(t *testing.T) {
	svc, clk, _, _ := newReservationFixture()
	ctx := context.Background()

	_, err := svc.Acquire(ctx, &models.CreateLockRequest{
		ShowtimeID: "st-1",
		Seats:      []string{"A1"},
	})
	require.NoError(t, err)

	clk.Advance(testHold + time.Second)

	resp, err := svc.SeatMap(ctx, "st-1")
	require.NoError(t, err)

	for _, item := range resp.Seats {
		if item.SeatCode == "A1" {
			assert.Equal(t, models.SeatStatusAvailable, item.Status)
		}
	}
}
