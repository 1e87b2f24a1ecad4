package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type createLocationRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description" binding:"required"`
	Icon        string `json:"icon" binding:"required"`
	Color       string `json:"color" binding:"required"`
}

type createTemporaryLocationRequest struct {
	Name        string `json:"name" binding:"required,max=50"`
	Description string `json:"description" binding:"max=200"`
	CreatedBy   string `json:"createdBy" binding:"required"`
}

// ListLocations returns the who-is-where projection. The reaper runs
// first, so stale empty temporary locations never show up.
func (h *Handler) ListLocations(c *gin.Context) {
	locations, err := h.Presence.ProjectLocations(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, locations)
}

func (h *Handler) CreateLocation(c *gin.Context) {
	var req createLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.Presence.CreateLocation(c.Request.Context(), req.Name, req.Description, req.Icon, req.Color)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *Handler) CreateTemporaryLocation(c *gin.Context) {
	var req createTemporaryLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.Presence.CreateTemporaryLocation(c.Request.Context(), req.Name, req.Description, req.CreatedBy)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}
