package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Catalog handlers

// ListMovies - GET /api/movies
// Каталог фильмов с поиском и фильтром по статусу
func (h *Handlers) ListMovies(c *gin.Context) {
	query := c.Query("query")
	status := c.Query("status")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	if page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page must be >= 1"})
		return
	}
	if pageSize < 1 || pageSize > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pageSize must be between 1 and 100"})
		return
	}

	response, err := h.services.Catalog.ListMovies(c.Request.Context(), query, status, page, pageSize)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetMovie - GET /api/movies/:id
func (h *Handlers) GetMovie(c *gin.Context) {
	movie, err := h.services.Catalog.GetMovie(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, movie)
}

// ListShowtimes - GET /api/movies/:id/showtimes
func (h *Handlers) ListShowtimes(c *gin.Context) {
	response, err := h.services.Catalog.ListShowtimes(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// SeatMap - GET /api/showtimes/:id/seat-map
// Схема зала с постатусной раскраской мест. Горячий путь, кешируется в Redis
// с коротким TTL
func (h *Handlers) SeatMap(c *gin.Context) {
	showtimeID := c.Param("id")

	if h.redisClient != nil {
		// Use raw JSON to avoid unmarshaling/marshaling overhead
		rawJSON, err := h.redisClient.GetSeatMapRaw(c.Request.Context(), showtimeID)
		if err == nil {
			c.Data(http.StatusOK, "application/json", rawJSON)
			return
		}
	}

	response, err := h.services.Reservations.SeatMap(c.Request.Context(), showtimeID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	if h.redisClient != nil {
		if err := h.redisClient.SetSeatMap(c.Request.Context(), showtimeID, response); err != nil {
			slog.Warn("Failed to cache seat map", "error", err, "showtime_id", showtimeID)
		}
	}

	c.JSON(http.StatusOK, response)
}
