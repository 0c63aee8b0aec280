package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"

	"cineseat/internal/clock"
	"cineseat/internal/config"
	"cineseat/internal/database"
	"cineseat/internal/models"
	"cineseat/internal/repository"
)

var (
	clearExisting = flag.Bool("clear", false, "Clear existing catalog data before generating")
	movieCount    = flag.Int("movies", 8, "Number of movies to generate")
	dryRun        = flag.Bool("dry-run", false, "Show what would be generated without making changes")
)

// Hall layouts: rows x seats per row, with the front rows sold as VIP.
var halls = []struct {
	Name    string
	Rows    int
	PerRow  int
	VIPRows int
}{
	{"Hall 1", 10, 12, 2},
	{"Hall 2", 8, 10, 1},
	{"Hall 3", 12, 14, 2},
}

var movieTitles = []string{
	"Midnight Express", "The Silent Hour", "Beyond the Horizon",
	"Steel City", "A Winter's Tale", "Last Light",
	"The Cartographer", "Echoes of Tomorrow", "Northern Passage",
	"The Glass Garden",
}

var genres = []string{"drama", "thriller", "comedy", "sci-fi", "action"}

type CatalogGenerator struct {
	db    *database.DB
	repos *repository.Repositories
}

func main() {
	flag.Parse()

	slog.Info("Starting catalog generator...")

	cfg := config.Load()
	db, err := database.Connect(cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	generator := &CatalogGenerator{
		db:    db,
		repos: repository.NewRepositories(db, clock.System()),
	}

	if err := generator.Generate(context.Background()); err != nil {
		slog.Error("Failed to generate catalog", "error", err)
		os.Exit(1)
	}

	slog.Info("Catalog generation completed successfully!")
}

func (g *CatalogGenerator) Generate(ctx context.Context) error {
	if *clearExisting {
		if *dryRun {
			slog.Info("[dry-run] Would clear existing catalog data")
		} else if err := g.clear(ctx); err != nil {
			return fmt.Errorf("failed to clear existing data: %w", err)
		}
	}

	count := *movieCount
	if count > len(movieTitles) {
		count = len(movieTitles)
	}

	for i := 0; i < count; i++ {
		movie := &models.Movie{
			ID:          uuid.New().String(),
			Title:       movieTitles[i],
			Genre:       genres[rand.Intn(len(genres))],
			DurationMin: 90 + rand.Intn(70),
			Status:      models.MovieShowing,
			Description: fmt.Sprintf("%s - a %s feature presentation.", movieTitles[i], genres[rand.Intn(len(genres))]),
		}
		if i >= count-2 {
			movie.Status = models.MovieComingSoon
		}

		if *dryRun {
			slog.Info("[dry-run] Would create movie", "title", movie.Title, "status", movie.Status)
			continue
		}

		if err := g.repos.Catalog.CreateMovie(ctx, movie); err != nil {
			return fmt.Errorf("failed to create movie: %w", err)
		}

		if movie.Status == models.MovieShowing {
			if err := g.generateShowtimes(ctx, movie); err != nil {
				return fmt.Errorf("failed to generate showtimes for %s: %w", movie.Title, err)
			}
		}

		slog.Info("Generated movie", "title", movie.Title, "status", movie.Status)
	}

	return nil
}

func (g *CatalogGenerator) generateShowtimes(ctx context.Context, movie *models.Movie) error {
	// Three days of screenings, two a day, rotating halls.
	base := time.Now().Truncate(time.Hour).Add(24 * time.Hour)

	for day := 0; day < 3; day++ {
		for _, hour := range []int{15, 20} {
			hall := halls[rand.Intn(len(halls))]

			showtime := &models.Showtime{
				ID:        uuid.New().String(),
				MovieID:   movie.ID,
				Hall:      hall.Name,
				StartsAt:  base.AddDate(0, 0, day).Add(time.Duration(hour) * time.Hour),
				BasePrice: int64(8000 + rand.Intn(5)*500),
			}
			if err := g.repos.Catalog.CreateShowtime(ctx, showtime); err != nil {
				return err
			}

			if err := g.generateSeats(ctx, showtime, hall.Rows, hall.PerRow, hall.VIPRows); err != nil {
				return err
			}
		}
	}

	return nil
}

func (g *CatalogGenerator) generateSeats(ctx context.Context, showtime *models.Showtime, rows, perRow, vipRows int) error {
	seats := make([]models.Seat, 0, rows*perRow)

	for row := 0; row < rows; row++ {
		rowLetter := string(rune('A' + row))
		seatType := models.SeatNormal
		if row < vipRows {
			seatType = models.SeatVIP
		}

		for num := 1; num <= perRow; num++ {
			seats = append(seats, models.Seat{
				ID:         uuid.New().String(),
				ShowtimeID: showtime.ID,
				SeatCode:   fmt.Sprintf("%s%d", rowLetter, num),
				SeatType:   seatType,
				// Roughly one broken seat per two hundred
				IsBroken: rand.Intn(200) == 0,
			})
		}
	}

	return g.repos.Catalog.CreateSeats(ctx, seats)
}

func (g *CatalogGenerator) clear(ctx context.Context) error {
	tables := []string{"tickets", "bookings", "reservation_attempts", "seat_locks", "seats", "showtimes", "movies"}
	for _, table := range tables {
		if _, err := g.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	slog.Info("Cleared existing catalog data")
	return nil
}
