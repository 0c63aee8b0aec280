package handlers

import (
	"net/http"

	"cineseat/internal/models"

	"github.com/gin-gonic/gin"
)

// Seat lock handlers

// CreateLock - POST /api/locks
// Взять блокировку на набор мест в рамках одного сеанса
func (h *Handlers) CreateLock(c *gin.Context) {
	var req models.CreateLockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.OwnerID = ownerID(c, req.OwnerID)

	response, err := h.services.Reservations.Acquire(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// ReleaseLock - DELETE /api/locks/:session_id
// Снять блокировку. Идемпотентно: неизвестная сессия отдает пустой список
func (h *Handlers) ReleaseLock(c *gin.Context) {
	sessionID := c.Param("session_id")

	response, err := h.services.Reservations.Release(c.Request.Context(), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// LockedSeats - GET /api/showtimes/:id/locked-seats
// Места под активной блокировкой для сеанса
func (h *Handlers) LockedSeats(c *gin.Context) {
	showtimeID := c.Param("id")

	response, err := h.services.Reservations.LockedSeats(c.Request.Context(), showtimeID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}
