package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"cineseat/internal/clock"
	"cineseat/internal/config"
	"cineseat/internal/database"
	"cineseat/internal/repository"
	"cineseat/internal/search"
)

var pageSize = flag.Int("page-size", 100, "Movies fetched per database page")

// Reindexes the whole movie catalog into Elasticsearch. Run after bulk
// catalog changes or when the index mapping changes.
func main() {
	flag.Parse()

	slog.Info("Starting movie indexer...")

	cfg := config.Load()
	if !cfg.Elasticsearch.Enabled {
		slog.Error("Elasticsearch is disabled, set ELASTICSEARCH_ENABLED=true")
		os.Exit(1)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	movieIndex, err := search.NewMovieIndex(cfg.Elasticsearch)
	if err != nil {
		slog.Error("Failed to create Elasticsearch client", "error", err)
		os.Exit(1)
	}

	repos := repository.NewRepositories(db, clock.System())
	ctx := context.Background()

	indexed := 0
	for page := 1; ; page++ {
		movies, err := repos.Catalog.ListMovies(ctx, "", "", page, *pageSize)
		if err != nil {
			slog.Error("Failed to list movies", "error", err, "page", page)
			os.Exit(1)
		}
		if len(movies) == 0 {
			break
		}

		for i := range movies {
			if err := movieIndex.IndexMovie(ctx, &movies[i]); err != nil {
				slog.Error("Failed to index movie", "error", err, "movie_id", movies[i].ID)
				continue
			}
			indexed++
		}
	}

	slog.Info("Movie indexing completed", "indexed", indexed)
}
