package handler

import (
	"github.com/gin-gonic/gin"

	"whereabouts/backend/internal/hub"
)

// ServeSSE registers a server-sent-events subscriber and streams until
// the client goes away. A token is optional on this read-only transport;
// when present it identifies the user for logging.
func (h *Handler) ServeSSE(c *gin.Context) {
	userID, _ := h.parseToken(bearerToken(c))

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	client := hub.NewSSEClient(userID, h.Hub, h.KeepAlive, h.Logger)
	h.Hub.RegisterCh <- client

	// Blocks for the lifetime of the stream.
	client.Serve(c.Request.Context(), c.Writer)
}
