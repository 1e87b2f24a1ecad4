package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"whereabouts/backend/internal/help"
	"whereabouts/backend/internal/presence"
	"whereabouts/backend/internal/storage"
)

// respondError maps service errors onto HTTP statuses. Store failures
// are logged and surfaced opaquely.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, presence.ErrInvalidArgument), errors.Is(err, help.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrDuplicate),
		errors.Is(err, help.ErrDuplicateRequest),
		errors.Is(err, help.ErrNotCheckedIn):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.Logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
