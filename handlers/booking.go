package handlers

import (
	"net/http"

	sessionRepo "luxride/database/repository/session"
	"luxride/services/booking"

	"github.com/gin-gonic/gin"
)

// BookingOpsHandler exposes the dispatch team's read/intervene endpoints.
type BookingOpsHandler struct {
	Flow  booking.BookingFlowService
	Store *booking.SessionStore
	Repo  sessionRepo.SessionRepository
}

func NewBookingOpsHandler(flow booking.BookingFlowService, store *booking.SessionStore, repo sessionRepo.SessionRepository) *BookingOpsHandler {
	return &BookingOpsHandler{Flow: flow, Store: store, Repo: repo}
}

// ListPending returns every live pending session.
func (h *BookingOpsHandler) ListPending(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": h.Store.Pending()})
}

// GetSession returns one session, falling back to the durable record when
// it has already left the live map.
func (h *BookingOpsHandler) GetSession(c *gin.Context) {
	bookingID := c.Param("bookingID")

	if s, ok := h.Store.Get(bookingID); ok {
		c.JSON(http.StatusOK, gin.H{"session": s})
		return
	}
	if h.Repo != nil {
		if s, err := h.Repo.GetByBookingID(c.Request.Context(), bookingID); err == nil {
			c.JSON(http.StatusOK, gin.H{"session": s})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "booking session not found"})
}

// CancelSession lets dispatch force-cancel a live booking.
func (h *BookingOpsHandler) CancelSession(c *gin.Context) {
	bookingID := c.Param("bookingID")
	if err := h.Flow.Cancel(c.Request.Context(), bookingID); err != nil {
		status := http.StatusConflict
		if booking.IsCode(err, booking.CodeNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}
