package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cineseat/internal/clock"
	"cineseat/internal/lockstore"
	"cineseat/internal/models"
)

var sweepStart = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

type capturingPublisher struct {
	mu     sync.Mutex
	events map[string][]interface{}
}

func newCapturingPublisher() *capturingPublisher {
	return &capturingPublisher{events: make(map[string][]interface{})}
}

func (p *capturingPublisher) Publish(subject string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events[subject] = append(p.events[subject], data)
	return nil
}

func hold(t *testing.T, store lockstore.Store, showtimeID, sessionID string, seats ...string) {
	t.Helper()
	_, err := store.TryAcquire(context.Background(), lockstore.AcquireRequest{
		ShowtimeID:   showtimeID,
		SeatCodes:    seats,
		SessionID:    sessionID,
		OwnerID:      "owner",
		HoldDuration: 7 * time.Minute,
	})
	require.NoError(t, err)
}

func TestSweepOnce_ReclaimsOnlyLapsedHolds(t *testing.T) {
	clk := clock.NewFake(sweepStart)
	store := lockstore.NewMemoryStore(clk)
	publisher := newCapturingPublisher()
	sweeper := NewExpirySweeper(store, clk, time.Second, publisher, nil)
	ctx := context.Background()

	hold(t, store, "st-1", "old", "A1", "A2")

	clk.Advance(5 * time.Minute)
	hold(t, store, "st-1", "fresh", "B1")

	clk.Advance(3 * time.Minute)
	sweeper.SweepOnce(ctx)

	seats, err := store.ActiveSeats(ctx, "st-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"B1"}, seats, "unexpired hold must survive the sweep")

	events := publisher.events[models.EventLockExpired]
	require.Len(t, events, 1)
	expired := events[0].(models.LockExpiredEvent)
	assert.Equal(t, "st-1", expired.ShowtimeID)
	assert.Equal(t, []string{"A1", "A2"}, expired.Seats)
}

func TestSweepOnce_GroupsEventsByShowtime(t *testing.T) {
	clk := clock.NewFake(sweepStart)
	store := lockstore.NewMemoryStore(clk)
	publisher := newCapturingPublisher()
	sweeper := NewExpirySweeper(store, clk, time.Second, publisher, nil)
	ctx := context.Background()

	hold(t, store, "st-1", "s1", "A1")
	hold(t, store, "st-2", "s2", "A1", "A2")

	clk.Advance(8 * time.Minute)
	sweeper.SweepOnce(ctx)

	events := publisher.events[models.EventLockExpired]
	require.Len(t, events, 2)

	byShowtime := make(map[string][]string)
	for _, e := range events {
		ev := e.(models.LockExpiredEvent)
		byShowtime[ev.ShowtimeID] = ev.Seats
	}
	assert.Equal(t, []string{"A1"}, byShowtime["st-1"])
	assert.Equal(t, []string{"A1", "A2"}, byShowtime["st-2"])
}

func TestSweepOnce_NoExpiredLocksPublishesNothing(t *testing.T) {
	clk := clock.NewFake(sweepStart)
	store := lockstore.NewMemoryStore(clk)
	publisher := newCapturingPublisher()
	sweeper := NewExpirySweeper(store, clk, time.Second, publisher, nil)

	hold(t, store, "st-1", "s1", "A1")

	sweeper.SweepOnce(context.Background())

	assert.Empty(t, publisher.events[models.EventLockExpired])
}

func TestSweepOnce_IsRepeatable(t *testing.T) {
	clk := clock.NewFake(sweepStart)
	store := lockstore.NewMemoryStore(clk)
	publisher := newCapturingPublisher()
	sweeper := NewExpirySweeper(store, clk, time.Second, publisher, nil)
	ctx := context.Background()

	hold(t, store, "st-1", "s1", "A1")
	clk.Advance(8 * time.Minute)

	sweeper.SweepOnce(ctx)
	sweeper.SweepOnce(ctx)

	// The second pass finds nothing: expiry is terminal.
	assert.Len(t, publisher.events[models.EventLockExpired], 1)
}
