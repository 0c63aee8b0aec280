package jobs

import (
	"context"
	"log/slog"
	"time"

	"cineseat/internal/cache"
	"cineseat/internal/clock"
	"cineseat/internal/lockstore"
	"cineseat/internal/messaging"
	"cineseat/internal/metrics"
	"cineseat/internal/models"
)

// ExpirySweeper reclaims lapsed seat holds in the background. It is the only
// component that transitions locks to EXPIRED; a lock whose window has not
// closed is never touched.
type ExpirySweeper struct {
	locks       lockstore.Store
	clock       clock.Clock
	interval    time.Duration
	publisher   messaging.Publisher
	redisClient *cache.RedisClient
	ticker      *time.Ticker
	done        chan bool
}

func NewExpirySweeper(locks lockstore.Store, clk clock.Clock, interval time.Duration, publisher messaging.Publisher, redisClient *cache.RedisClient) *ExpirySweeper {
	return &ExpirySweeper{
		locks:       locks,
		clock:       clk,
		interval:    interval,
		publisher:   publisher,
		redisClient: redisClient,
		done:        make(chan bool),
	}
}

// Start begins the background job that reclaims expired holds every interval
func (j *ExpirySweeper) Start(ctx context.Context) {
	slog.Info("Starting expiry sweeper", "interval", j.interval.String())

	j.ticker = time.NewTicker(j.interval)

	// Run initial sweep immediately
	go j.SweepOnce(ctx)

	go func() {
		for {
			select {
			case <-j.ticker.C:
				go j.SweepOnce(ctx)
			case <-j.done:
				slog.Info("Expiry sweeper stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the background job
func (j *ExpirySweeper) Stop() {
	if j.ticker != nil {
		j.ticker.Stop()
	}
	close(j.done)
}

// SweepOnce runs a single reclaim pass.
func (j *ExpirySweeper) SweepOnce(ctx context.Context) {
	now := j.clock.Now()

	expired, err := j.locks.SweepExpired(ctx, now)
	if err != nil {
		slog.Error("Failed to sweep expired locks", "error", err)
		metrics.SweepCycles.WithLabelValues(metrics.SweepError).Inc()
		return
	}
	metrics.SweepCycles.WithLabelValues(metrics.SweepOK).Inc()

	if len(expired) == 0 {
		slog.Debug("No expired locks found")
		return
	}

	metrics.LocksExpired.Add(float64(len(expired)))
	metrics.ActiveHolds.Sub(float64(len(expired)))

	slog.Info("Reclaimed expired seat locks", "count", len(expired))

	// One event and one cache invalidation per affected showtime.
	byShowtime := make(map[string][]string)
	for _, key := range expired {
		byShowtime[key.ShowtimeID] = append(byShowtime[key.ShowtimeID], key.SeatCode)
	}

	for showtimeID, seats := range byShowtime {
		event := models.LockExpiredEvent{
			ShowtimeID: showtimeID,
			Seats:      seats,
			Timestamp:  now,
		}
		if err := j.publisher.Publish(models.EventLockExpired, event); err != nil {
			slog.Error("Failed to publish lock expired event",
				"error", err,
				"showtime_id", showtimeID)
			// Don't return error - the sweep itself already succeeded
		}

		if j.redisClient != nil {
			if err := j.redisClient.InvalidateSeatMap(ctx, showtimeID); err != nil {
				slog.Warn("Failed to invalidate seat map cache", "error", err, "showtime_id", showtimeID)
			}
		}
	}
}
