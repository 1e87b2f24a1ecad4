package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"whereabouts/backend/internal/presence"
)

type checkInRequest struct {
	UserID     string `json:"userId" binding:"required"`
	LocationID string `json:"locationId" binding:"required"`
}

type checkOutRequest struct {
	CheckInID string `json:"checkInId"`
	UserID    string `json:"userId"`
}

func (h *Handler) ListCheckIns(c *gin.Context) {
	checkIns, err := h.Presence.ActiveCheckIns(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, checkIns)
}

// CreateCheckIn processes a check-in intent. The same request doubles as
// "tap again to leave": the response type tells the caller which way it
// went.
func (h *Handler) CreateCheckIn(c *gin.Context) {
	var req checkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.Presence.CheckIn(c.Request.Context(), req.UserID, req.LocationID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	status := http.StatusOK
	if result.Kind == presence.CheckedIn {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

// DeleteCheckIn is the manual check-out; the session is addressed by
// check-in ID or by user.
func (h *Handler) DeleteCheckIn(c *gin.Context) {
	var req checkOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.Presence.CheckOut(c.Request.Context(), presence.CheckOutParams{
		CheckInID: req.CheckInID,
		UserID:    req.UserID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"type": "checkout", "checkIn": view})
}
