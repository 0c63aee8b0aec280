package consumers

import (
	"context"
	"log/slog"

	"cineseat/internal/cache"
	"cineseat/internal/clock"
	"cineseat/internal/config"
	"cineseat/internal/database"
	"cineseat/internal/jobs"
	"cineseat/internal/messaging"
	"cineseat/internal/models"
	"cineseat/internal/repository"
)

// ConsumerService is the standalone worker process: it runs the expiry
// sweeper against the shared lock store and consumes seat-status events.
type ConsumerService struct {
	db       *database.DB
	nats     *messaging.NATSClient
	redis    *cache.RedisClient
	repos    *repository.Repositories
	sweeper  *jobs.ExpirySweeper
	handlers *Handlers
}

func NewConsumerService(cfg *config.Config) (*ConsumerService, error) {
	// Connect to database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	clk := clock.System()
	repos := repository.NewRepositories(db, clk)

	// Redis optional as everywhere else
	redisClient, err := cache.NewRedisClient()
	if err != nil {
		slog.Warn("Redis unavailable, cache invalidation disabled", "error", err)
		redisClient = nil
	}

	// Connect to NATS
	var natsClient *messaging.NATSClient
	var publisher messaging.Publisher = messaging.NoopPublisher{}
	if cfg.NATS.Enabled {
		natsClient, err = messaging.NewNATSClient(cfg.NATS)
		if err != nil {
			return nil, err
		}
		publisher = natsClient
	}

	sweeper := jobs.NewExpirySweeper(repos.Locks, clk, cfg.SweepInterval, publisher, redisClient)

	return &ConsumerService{
		db:       db,
		nats:     natsClient,
		redis:    redisClient,
		repos:    repos,
		sweeper:  sweeper,
		handlers: NewHandlers(redisClient),
	}, nil
}

func (cs *ConsumerService) Start(ctx context.Context) error {
	slog.Info("Starting sweeper and NATS consumers...")

	cs.sweeper.Start(ctx)

	if cs.nats == nil {
		slog.Info("NATS disabled, running sweeper only")
		return nil
	}

	// Subscribe to seat lock events
	_, err := cs.nats.SubscribeQueue(models.EventLockAcquired, "consumers", cs.handlers.HandleLockAcquired)
	if err != nil {
		return err
	}

	_, err = cs.nats.SubscribeQueue(models.EventLockReleased, "consumers", cs.handlers.HandleLockReleased)
	if err != nil {
		return err
	}

	_, err = cs.nats.SubscribeQueue(models.EventLockExpired, "consumers", cs.handlers.HandleLockExpired)
	if err != nil {
		return err
	}

	// Subscribe to booking events
	_, err = cs.nats.SubscribeQueue(models.EventBookingConfirmed, "consumers", cs.handlers.HandleBookingConfirmed)
	if err != nil {
		return err
	}

	_, err = cs.nats.SubscribeQueue(models.EventBookingCancelled, "consumers", cs.handlers.HandleBookingCancelled)
	if err != nil {
		return err
	}

	// Subscribe to payment events
	_, err = cs.nats.SubscribeQueue(models.EventPaymentVoided, "consumers", cs.handlers.HandlePaymentVoided)
	if err != nil {
		return err
	}

	slog.Info("All consumers started successfully")
	return nil
}

func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down consumer service...")

	if cs.sweeper != nil {
		cs.sweeper.Stop()
	}

	if cs.nats != nil {
		if err := cs.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}

	if cs.redis != nil {
		if err := cs.redis.Close(); err != nil {
			slog.Error("Error closing Redis connection", "error", err)
		}
	}

	if cs.db != nil {
		if err := cs.db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
