package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"cineseat/internal/config"
	"cineseat/internal/models"
)

// MovieIndex представляет клиент для полнотекстового поиска фильмов
type MovieIndex struct {
	client *elasticsearch.Client
	config config.ElasticsearchConfig
}

func NewMovieIndex(cfg config.ElasticsearchConfig) (*MovieIndex, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     []string{cfg.URL},
		Username:      cfg.Username,
		Password:      cfg.Password,
		RetryOnStatus: []int{502, 503, 504, 429},
		MaxRetries:    cfg.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	idx := &MovieIndex{
		client: es,
		config: cfg,
	}

	if err := idx.ensureIndex(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ensure index exists: %w", err)
	}

	return idx, nil
}

// ensureIndex создает индекс если он не существует
func (idx *MovieIndex) ensureIndex(ctx context.Context) error {
	req := esapi.IndicesExistsRequest{
		Index: []string{idx.config.Index},
	}

	res, err := req.Do(ctx, idx.client)
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 200 {
		slog.Info("Elasticsearch index already exists", "index", idx.config.Index)
		return nil
	}

	mapping := map[string]interface{}{
		"settings": map[string]interface{}{
			"number_of_shards":   1,
			"number_of_replicas": 0,
		},
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"title":        map[string]interface{}{"type": "text"},
				"genre":        map[string]interface{}{"type": "keyword"},
				"status":       map[string]interface{}{"type": "keyword"},
				"description":  map[string]interface{}{"type": "text"},
				"duration_min": map[string]interface{}{"type": "integer"},
				"created_at":   map[string]interface{}{"type": "date"},
			},
		},
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal index mapping: %w", err)
	}

	createReq := esapi.IndicesCreateRequest{
		Index: idx.config.Index,
		Body:  bytes.NewReader(body),
	}

	createRes, err := createReq.Do(ctx, idx.client)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		return fmt.Errorf("index creation failed: %s", createRes.String())
	}

	slog.Info("Created Elasticsearch index", "index", idx.config.Index)
	return nil
}

// IndexMovie индексирует фильм для поиска
func (idx *MovieIndex) IndexMovie(ctx context.Context, movie *models.Movie) error {
	body, err := json.Marshal(movie)
	if err != nil {
		return fmt.Errorf("failed to marshal movie: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      idx.config.Index,
		DocumentID: movie.ID,
		Body:       bytes.NewReader(body),
		Refresh:    "false",
	}

	res, err := req.Do(ctx, idx.client)
	if err != nil {
		return fmt.Errorf("failed to index movie: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("movie indexing failed: %s", res.String())
	}

	return nil
}

// SearchMovies выполняет полнотекстовый поиск по каталогу
func (idx *MovieIndex) SearchMovies(ctx context.Context, query, status string, page, pageSize int) ([]models.Movie, error) {
	must := []map[string]interface{}{}
	if query != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"title^2", "description", "genre"},
			},
		})
	}
	if status != "" {
		must = append(must, map[string]interface{}{
			"term": map[string]interface{}{"status": status},
		})
	}

	searchBody := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"must": must},
		},
		"from": (page - 1) * pageSize,
		"size": pageSize,
		"sort": []map[string]interface{}{
			{"created_at": map[string]interface{}{"order": "desc"}},
		},
	}

	body, err := json.Marshal(searchBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := idx.client.Search(
		idx.client.Search.WithContext(ctx),
		idx.client.Search.WithIndex(idx.config.Index),
		idx.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search movies: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("movie search failed: %s", res.String())
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source models.Movie `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	movies := make([]models.Movie, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		movies = append(movies, hit.Source)
	}

	return movies, nil
}
