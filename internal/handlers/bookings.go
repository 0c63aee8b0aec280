package handlers

import (
	"net/http"

	"cineseat/internal/models"

	"github.com/gin-gonic/gin"
)

// Bookings handlers

// FinalizeBooking - POST /api/bookings/finalize
// Превратить оплаченную блокировку в подтвержденное бронирование
func (h *Handlers) FinalizeBooking(c *gin.Context) {
	var req models.FinalizeBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	booking, err := h.services.Bookings.Finalize(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.FinalizeBookingResponse{Booking: booking})
}

// ListBookings - GET /api/bookings
// История бронирований пользователя
func (h *Handlers) ListBookings(c *gin.Context) {
	owner := ownerID(c, c.Query("owner_id"))

	response, err := h.services.Bookings.List(c.Request.Context(), owner)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetBooking - GET /api/bookings/:id
func (h *Handlers) GetBooking(c *gin.Context) {
	owner := ownerID(c, c.Query("owner_id"))

	booking, err := h.services.Bookings.Get(c.Request.Context(), c.Param("id"), owner)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// CancelBooking - POST /api/bookings/:id/cancel
// Отменить подтвержденное бронирование с возвратом платежа
func (h *Handlers) CancelBooking(c *gin.Context) {
	owner := ownerID(c, c.Query("owner_id"))

	booking, err := h.services.Bookings.Cancel(c.Request.Context(), c.Param("id"), owner)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}
