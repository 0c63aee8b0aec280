package service

import (
	"context"
	"fmt"
	"log/slog"

	apperrors "cineseat/internal/errors"
	"cineseat/internal/models"
	"cineseat/internal/repository"
	"cineseat/internal/search"
)

type CatalogService struct {
	repo       *repository.CatalogRepository
	movieIndex *search.MovieIndex
}

func NewCatalogService(repo *repository.CatalogRepository, movieIndex *search.MovieIndex) *CatalogService {
	return &CatalogService{
		repo:       repo,
		movieIndex: movieIndex,
	}
}

// ListMovies serves the catalog. Full-text queries go through Elasticsearch
// when it is configured; the database ILIKE path is both the fallback and the
// default for plain listing.
func (s *CatalogService) ListMovies(ctx context.Context, query, status string, page, pageSize int) (models.ListMoviesResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var movies []models.Movie
	var err error

	if s.movieIndex != nil && query != "" {
		movies, err = s.movieIndex.SearchMovies(ctx, query, status, page, pageSize)
		if err != nil {
			slog.Warn("Elasticsearch search failed, falling back to database", "error", err, "query", query)
			movies, err = s.repo.ListMovies(ctx, query, status, page, pageSize)
		}
	} else {
		movies, err = s.repo.ListMovies(ctx, query, status, page, pageSize)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list movies: %w", err)
	}

	result := make(models.ListMoviesResponse, len(movies))
	for i, m := range movies {
		result[i] = models.ListMoviesResponseItem{
			ID:          m.ID,
			Title:       m.Title,
			Genre:       m.Genre,
			DurationMin: m.DurationMin,
			Status:      m.Status,
		}
	}
	return result, nil
}

func (s *CatalogService) GetMovie(ctx context.Context, id string) (*models.Movie, error) {
	movie, err := s.repo.GetMovie(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get movie: %w", err)
	}
	if movie == nil {
		return nil, apperrors.ErrNotFound
	}
	return movie, nil
}

// ListShowtimes returns the screenings of a movie.
func (s *CatalogService) ListShowtimes(ctx context.Context, movieID string) (models.ListShowtimesResponse, error) {
	movie, err := s.repo.GetMovie(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("failed to get movie: %w", err)
	}
	if movie == nil {
		return nil, apperrors.ErrNotFound
	}

	showtimes, err := s.repo.ListShowtimes(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("failed to list showtimes: %w", err)
	}

	result := make(models.ListShowtimesResponse, len(showtimes))
	for i, st := range showtimes {
		result[i] = models.ListShowtimesResponseItem{
			ID:        st.ID,
			Hall:      st.Hall,
			StartsAt:  st.StartsAt,
			BasePrice: st.BasePrice,
		}
	}
	return result, nil
}
