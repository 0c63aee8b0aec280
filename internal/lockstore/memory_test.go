package lockstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cineseat/internal/clock"
	apperr "cineseat/internal/errors"
	"cineseat/internal/models"
)

const holdDuration = 7 * time.Minute

var testStart = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

func newTestStore() (*MemoryStore, *clock.Fake) {
	clk := clock.NewFake(testStart)
	return NewMemoryStore(clk), clk
}

func acquireReq(sessionID string, seats ...string) AcquireRequest {
	return AcquireRequest{
		ShowtimeID:   "st-1",
		SeatCodes:    seats,
		SessionID:    sessionID,
		OwnerID:      "owner-" + sessionID,
		HoldDuration: holdDuration,
	}
}

func TestTryAcquire_HoldsWholeSet(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	attempt, err := store.TryAcquire(ctx, acquireReq("s1", "A1", "A2", "A3"))
	require.NoError(t, err)

	assert.Equal(t, models.AttemptHeld, attempt.State)
	assert.Equal(t, []string{"A1", "A2", "A3"}, attempt.SeatCodes)
	assert.Equal(t, testStart.Add(holdDuration), attempt.ExpiresAt)

	seats, err := store.ActiveSeats(ctx, "st-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2", "A3"}, seats)
}

func TestTryAcquire_AllOrNothing(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	_, err := store.TryAcquire(ctx, acquireReq("s1", "A1"))
	require.NoError(t, err)

	// Overlap on A1 blocks the entire set even though A2 and A3 are free.
	_, err = store.TryAcquire(ctx, acquireReq("s2", "A1", "A2", "A3"))
	var conflict *apperr.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"A1"}, conflict.Seats)

	// The failed attempt must not have fixed anything in place.
	_, err = store.TryAcquire(ctx, acquireReq("s3", "A2", "A3"))
	require.NoError(t, err)
}

func TestTryAcquire_ConflictListsOnlyContestedSeats(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	_, err := store.TryAcquire(ctx, acquireReq("s1", "B1", "B2"))
	require.NoError(t, err)

	_, err = store.TryAcquire(ctx, acquireReq("s2", "B2", "B3", "B4"))
	var conflict *apperr.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"B2"}, conflict.Seats)
}

func TestTryAcquire_ConcurrentOverlapOneWinner(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	const racers = 16
	var wg sync.WaitGroup
	errs := make([]error, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.TryAcquire(ctx, AcquireRequest{
				ShowtimeID:   "st-1",
				SeatCodes:    []string{"C1", "C2"},
				SessionID:    "racer-" + string(rune('a'+i)),
				OwnerID:      "owner",
				HoldDuration: holdDuration,
			})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			var conflict *apperr.ConflictError
			require.ErrorAs(t, err, &conflict)
		}
	}
	assert.Equal(t, 1, winners, "exactly one racer may hold the seats")
}

func TestRelease_FreesSeatsForReacquisition(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	_, err := store.TryAcquire(ctx, acquireReq("s1", "A1", "A2"))
	require.NoError(t, err)

	released, err := store.Release(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2"}, released)

	attempt, err := store.Attempt(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.AttemptReleased, attempt.State)

	// Round trip: another session can take the seats immediately.
	_, err = store.TryAcquire(ctx, acquireReq("s2", "A1", "A2"))
	require.NoError(t, err)
}

func TestRelease_Idempotent(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	released, err := store.Release(ctx, "never-existed")
	require.NoError(t, err)
	assert.Empty(t, released)

	_, err = store.TryAcquire(ctx, acquireReq("s1", "A1"))
	require.NoError(t, err)

	first, err := store.Release(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A1"}, first)

	second, err := store.Release(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestCommit_MarksSeatsSold(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	_, err := store.TryAcquire(ctx, acquireReq("s1", "A1", "A2"))
	require.NoError(t, err)

	attempt, err := store.Commit(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.AttemptCommitted, attempt.State)

	// Committed seats are sold: they never come back, not even after the
	// hold window would have lapsed.
	_, err = store.TryAcquire(ctx, acquireReq("s2", "A1"))
	var conflict *apperr.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"A1"}, conflict.Seats)

	// But they are no longer "locked" in the hold sense.
	seats, err := store.ActiveSeats(ctx, "st-1")
	require.NoError(t, err)
	assert.Empty(t, seats)
}

func TestReleaseCommitted_ReturnsSoldSeatsToInventory(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	_, err := store.TryAcquire(ctx, acquireReq("s1", "A1", "A2"))
	require.NoError(t, err)
	_, err = store.Commit(ctx, "s1")
	require.NoError(t, err)

	released, err := store.ReleaseCommitted(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2"}, released)

	// A cancelled sale frees the seats for the next customer.
	attempt, err := store.TryAcquire(ctx, acquireReq("s2", "A1", "A2"))
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2"}, attempt.SeatCodes)
}

func TestReleaseCommitted_Idempotent(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	released, err := store.ReleaseCommitted(ctx, "never-existed")
	require.NoError(t, err)
	assert.Empty(t, released)

	_, err = store.TryAcquire(ctx, acquireReq("s1", "A1"))
	require.NoError(t, err)
	_, err = store.Commit(ctx, "s1")
	require.NoError(t, err)

	first, err := store.ReleaseCommitted(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A1"}, first)

	second, err := store.ReleaseCommitted(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestReleaseCommitted_LeavesActiveHoldsAlone(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	_, err := store.TryAcquire(ctx, acquireReq("s1", "A1"))
	require.NoError(t, err)

	released, err := store.ReleaseCommitted(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, released)

	seats, err := store.ActiveSeats(ctx, "st-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A1"}, seats)
}

func TestTryAcquire_SameSessionCannotRenewHold(t *testing.T) {
	store, clk := newTestStore()
	ctx := context.Background()

	_, err := store.TryAcquire(ctx, acquireReq("s1", "A1", "A2"))
	require.NoError(t, err)

	clk.Advance(3 * time.Minute)

	// Re-acquiring a seat the session already holds conflicts like any
	// other live hold; the window is fixed and must not slide.
	_, err = store.TryAcquire(ctx, acquireReq("s1", "A2", "A3"))
	var conflict *apperr.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"A2"}, conflict.Seats)

	attempt, err := store.Attempt(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, testStart.Add(holdDuration), attempt.ExpiresAt)

	seats, err := store.ActiveSeats(ctx, "st-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2"}, seats)
}

func TestCommit_JustBeforeExpiry(t *testing.T) {
	store, clk := newTestStore()
	ctx := context.Background()

	_, err := store.TryAcquire(ctx, acquireReq("s1", "A1"))
	require.NoError(t, err)

	clk.Advance(6*time.Minute + 59*time.Second)

	attempt, err := store.Commit(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.AttemptCommitted, attempt.State)
}

func TestCommit_AfterExpiryFails(t *testing.T) {
	store, clk := newTestStore()
	ctx := context.Background()

	_, err := store.TryAcquire(ctx, acquireReq("s1", "A1"))
	require.NoError(t, err)

	clk.Advance(8 * time.Minute)

	_, err = store.Commit(ctx, "s1")
	assert.ErrorIs(t, err, apperr.ErrNoActiveLocks)
}

func TestCommit_UnknownSession(t *testing.T) {
	store, _ := newTestStore()

	_, err := store.Commit(context.Background(), "ghost")
	assert.ErrorIs(t, err, apperr.ErrNoActiveLocks)
}

func TestSweepExpired_OnlyReclaimsLapsedLocks(t *testing.T) {
	store, clk := newTestStore()
	ctx := context.Background()

	_, err := store.TryAcquire(ctx, acquireReq("old", "A1"))
	require.NoError(t, err)

	clk.Advance(5 * time.Minute)
	_, err = store.TryAcquire(ctx, acquireReq("fresh", "A2"))
	require.NoError(t, err)

	// 7m30s in: "old" lapsed at 7m, "fresh" has 4m30s left.
	clk.Advance(2*time.Minute + 30*time.Second)

	expired, err := store.SweepExpired(ctx, clk.Now())
	require.NoError(t, err)
	assert.Equal(t, []models.SeatKey{{ShowtimeID: "st-1", SeatCode: "A1"}}, expired)

	attempt, err := store.Attempt(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, models.AttemptExpired, attempt.State)

	seats, err := store.ActiveSeats(ctx, "st-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A2"}, seats)
}

func TestSweepExpired_NothingToDo(t *testing.T) {
	store, clk := newTestStore()
	ctx := context.Background()

	_, err := store.TryAcquire(ctx, acquireReq("s1", "A1"))
	require.NoError(t, err)

	expired, err := store.SweepExpired(ctx, clk.Now())
	require.NoError(t, err)
	assert.Empty(t, expired)
}

func TestExpiredSeatReacquirableBeforeSweep(t *testing.T) {
	store, clk := newTestStore()
	ctx := context.Background()

	_, err := store.TryAcquire(ctx, acquireReq("s1", "A1"))
	require.NoError(t, err)

	// Past expiry but the sweeper has not run yet: the seat is free for a
	// new session and the stale lock is finished off in passing.
	clk.Advance(holdDuration + time.Second)

	_, err = store.TryAcquire(ctx, acquireReq("s2", "A1"))
	require.NoError(t, err)

	attempt, err := store.Attempt(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.AttemptExpired, attempt.State)

	// The lapsed lock is gone, so a later sweep finds nothing for it.
	expired, err := store.SweepExpired(ctx, clk.Now())
	require.NoError(t, err)
	assert.Empty(t, expired)
}

func TestActiveSeats_ExcludesLapsedLocks(t *testing.T) {
	store, clk := newTestStore()
	ctx := context.Background()

	_, err := store.TryAcquire(ctx, acquireReq("s1", "A1"))
	require.NoError(t, err)

	clk.Advance(holdDuration + time.Second)

	seats, err := store.ActiveSeats(ctx, "st-1")
	require.NoError(t, err)
	assert.Empty(t, seats)
}

func TestAttempt_NotFound(t *testing.T) {
	store, _ := newTestStore()

	_, err := store.Attempt(context.Background(), "nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestReacquireBySameOwnerAfterConflictRetry(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	// s1 takes A1+A2, s2 loses the race and retries with a reduced set.
	_, err := store.TryAcquire(ctx, acquireReq("s1", "A1", "A2"))
	require.NoError(t, err)

	_, err = store.TryAcquire(ctx, acquireReq("s2", "A2", "A3"))
	var conflict *apperr.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"A2"}, conflict.Seats)

	attempt, err := store.TryAcquire(ctx, acquireReq("s2", "A3"))
	require.NoError(t, err)
	assert.Equal(t, []string{"A3"}, attempt.SeatCodes)

	seats, err := store.ActiveSeats(ctx, "st-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2", "A3"}, seats)
}
