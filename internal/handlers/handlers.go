package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"cineseat/internal/cache"
	apperrors "cineseat/internal/errors"
	"cineseat/internal/models"
	"cineseat/internal/service"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	services    *service.Services
	redisClient *cache.RedisClient
}

func NewHandlers(services *service.Services, redisClient *cache.RedisClient) *Handlers {
	return &Handlers{
		services:    services,
		redisClient: redisClient,
	}
}

// ownerID resolves the acting owner: the authenticated user when present,
// otherwise the owner id supplied in the request body.
func ownerID(c *gin.Context, fallback string) string {
	if v, exists := c.Get("user_id"); exists {
		if id, ok := v.(int64); ok {
			return strconv.FormatInt(id, 10)
		}
	}
	return fallback
}

// handleServiceError maps service errors onto the HTTP surface. Unrecognized
// errors are logged and collapsed into a 500 without leaking internals.
func (h *Handlers) handleServiceError(c *gin.Context, err error) {
	switch e := err.(type) {
	case *apperrors.ConflictError:
		c.JSON(http.StatusConflict, models.ConflictResponse{ConflictingSeats: e.Seats})
		return
	case *apperrors.ValidationError:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": e.Reason})
		return
	}

	switch err {
	case apperrors.ErrNotFound, apperrors.ErrNoActiveLocks:
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case apperrors.ErrHoldExpired:
		c.JSON(http.StatusGone, gin.H{"error": "Hold expired before finalize, payment voided"})
	case apperrors.ErrPaymentFailed:
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "Payment failed, seats released"})
	case apperrors.ErrForbidden:
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	default:
		slog.Error("Unhandled service error", "error", err, "path", c.Request.URL.Path)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
