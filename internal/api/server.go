package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cineseat/internal/cache"
	"cineseat/internal/clock"
	"cineseat/internal/config"
	"cineseat/internal/database"
	"cineseat/internal/external"
	"cineseat/internal/handlers"
	"cineseat/internal/jobs"
	"cineseat/internal/lockstore"
	"cineseat/internal/logger"
	"cineseat/internal/messaging"
	"cineseat/internal/middleware"
	"cineseat/internal/repository"
	"cineseat/internal/search"
	"cineseat/internal/service"
)

// Server представляет HTTP сервер API
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	redis    *cache.RedisClient
	sweeper  *jobs.ExpirySweeper
	services *service.Services
	repos    *repository.Repositories
}

// NewServer создает новый экземпляр сервера
func NewServer(cfg *config.Config) *Server {
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	gin.SetMode(cfg.GinMode)

	// Подключаемся к базе данных
	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	// Запускаем миграции
	if err := db.RunMigrations(); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	// Redis не обязателен: без него работаем напрямую с БД
	redisClient, err := cache.NewRedisClient()
	if err != nil {
		slog.Warn("Redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	// NATS по флагу, иначе события уходят в noop
	var natsClient *messaging.NATSClient
	var publisher messaging.Publisher = messaging.NoopPublisher{}
	if cfg.NATS.Enabled {
		natsClient, err = messaging.NewNATSClient(cfg.NATS)
		if err != nil {
			logger.Fatal("Failed to connect to NATS", "error", err)
		}
		publisher = natsClient
	}

	var movieIndex *search.MovieIndex
	if cfg.Elasticsearch.Enabled {
		movieIndex, err = search.NewMovieIndex(cfg.Elasticsearch)
		if err != nil {
			slog.Warn("Elasticsearch unavailable, full-text search disabled", "error", err)
			movieIndex = nil
		}
	}

	paymentClient := external.NewPaymentClient(cfg.Payment)

	clk := clock.System()
	repos := repository.NewRepositories(db, clk)

	// Бэкенд блокировок: Postgres по умолчанию, память для одиночного узла
	var locks lockstore.Store = repos.Locks
	if cfg.LockBackend == "memory" {
		locks = lockstore.NewMemoryStore(clk)
	}

	services := service.NewServices(repos, locks, clk, cfg.HoldDuration, publisher, paymentClient, redisClient, movieIndex)

	sweeper := jobs.NewExpirySweeper(locks, clk, cfg.SweepInterval, publisher, redisClient)
	sweeper.Start(context.Background())

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())

	server := &Server{
		router:   router,
		config:   cfg,
		db:       db,
		nats:     natsClient,
		redis:    redisClient,
		sweeper:  sweeper,
		services: services,
		repos:    repos,
	}

	server.setupRoutes()

	return server
}

// setupRoutes настраивает все API роуты
func (s *Server) setupRoutes() {
	h := handlers.NewHandlers(s.services, s.redis)

	api := s.router.Group("/api")
	// Обязательная Basic Auth для всех API роутов
	api.Use(middleware.BasicAuth(s.repos.Users, s.redis))
	{
		// Seat lock endpoints
		locks := api.Group("/locks")
		{
			locks.POST("", h.CreateLock)
			locks.DELETE("/:session_id", h.ReleaseLock)
		}

		// Bookings endpoints
		bookings := api.Group("/bookings")
		{
			bookings.POST("/finalize", h.FinalizeBooking)
			bookings.GET("", h.ListBookings)
			bookings.GET("/:id", h.GetBooking)
			bookings.POST("/:id/cancel", h.CancelBooking)
		}

		// Catalog endpoints
		movies := api.Group("/movies")
		{
			movies.GET("", h.ListMovies)
			movies.GET("/:id", h.GetMovie)
			movies.GET("/:id/showtimes", h.ListShowtimes)
		}

		showtimes := api.Group("/showtimes")
		{
			showtimes.GET("/:id/seat-map", h.SeatMap)
			showtimes.GET("/:id/locked-seats", h.LockedSeats)
		}
	}

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// healthCheck обрабатывает health check запросы
func (s *Server) healthCheck(c *gin.Context) {
	dbHealth := s.db.HealthCheck(c.Request.Context())

	status := http.StatusOK
	if dbHealth.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":   dbHealth.Status,
		"service":  "cineseat-api",
		"version":  "1.0.0",
		"database": dbHealth,
	})
}

// Run запускает HTTP сервер
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%s", s.config.Port)
	return s.router.Run(addr)
}

// GetRouter возвращает роутер для тестирования
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup закрывает соединения
func (s *Server) Cleanup() error {
	if s.sweeper != nil {
		s.sweeper.Stop()
	}

	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			slog.Error("Error closing Redis connection", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
