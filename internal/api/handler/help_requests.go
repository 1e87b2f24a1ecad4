package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"whereabouts/backend/internal/help"
)

type createHelpRequest struct {
	RequesterID  string  `json:"requesterId" binding:"required"`
	LocationID   string  `json:"locationId" binding:"required"`
	TargetUserID *string `json:"targetUserId"`
	Message      *string `json:"message"`
}

type updateHelpRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) ListHelpRequests(c *gin.Context) {
	reqs, err := h.Help.ListActive(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reqs)
}

func (h *Handler) CreateHelpRequest(c *gin.Context) {
	var req createHelpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.Help.Create(c.Request.Context(), help.CreateParams{
		RequesterID:  req.RequesterID,
		LocationID:   req.LocationID,
		TargetUserID: req.TargetUserID,
		Message:      req.Message,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *Handler) UpdateHelpRequest(c *gin.Context) {
	var req updateHelpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.Help.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) DeleteHelpRequest(c *gin.Context) {
	if err := h.Help.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "help request deleted"})
}
