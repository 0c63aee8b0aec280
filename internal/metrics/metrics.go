package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LocksAcquired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cineseat_locks_acquired_total",
		Help: "Seat locks successfully acquired.",
	})

	LockConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cineseat_lock_conflicts_total",
		Help: "Acquisition requests rejected because at least one seat was held.",
	})

	LocksReleased = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cineseat_locks_released_total",
		Help: "Seat locks released by their owner before expiry.",
	})

	LocksExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cineseat_locks_expired_total",
		Help: "Seat locks reclaimed by the expiry sweeper.",
	})

	SweepCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cineseat_sweep_cycles_total",
		Help: "Sweeper passes by outcome.",
	}, []string{"status"})

	FinalizeOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cineseat_finalize_total",
		Help: "Booking finalization attempts by outcome.",
	}, []string{"outcome"})

	ActiveHolds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cineseat_active_holds",
		Help: "Seat locks currently in ACTIVE state.",
	})
)

const (
	SweepOK    = "ok"
	SweepError = "error"

	OutcomeConfirmed     = "confirmed"
	OutcomeExpired       = "expired"
	OutcomePaymentFailed = "payment_failed"
)
