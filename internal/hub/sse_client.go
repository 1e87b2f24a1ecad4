package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"whereabouts/backend/internal/models"
)

// DefaultKeepAlive is the interval between no-op ping events on an
// otherwise quiet stream.
const DefaultKeepAlive = 30 * time.Second

// SSEClient implements Subscriber over a server-sent-events response.
// Unlike the websocket client it has no read side; the HTTP handler
// drives Serve until the request context ends or the hub closes it.
type SSEClient struct {
	ID        string
	UserID    string
	Hub       *Hub
	Send      chan models.Event
	KeepAlive time.Duration
	Logger    *zap.Logger
}

func NewSSEClient(userID string, h *Hub, keepAlive time.Duration, logger *zap.Logger) *SSEClient {
	if keepAlive <= 0 {
		keepAlive = DefaultKeepAlive
	}
	return &SSEClient{
		ID:        uuid.New().String(),
		UserID:    userID,
		Hub:       h,
		Send:      make(chan models.Event, 64),
		KeepAlive: keepAlive,
		Logger:    logger,
	}
}

func (c *SSEClient) GetID() string                       { return c.ID }
func (c *SSEClient) GetSendChannel() chan<- models.Event { return c.Send }

// Run is a no-op; the registering HTTP handler drives Serve on its own
// goroutine.
func (c *SSEClient) Run() {}

// Close releases the send channel, which ends Serve.
func (c *SSEClient) Close() {
	close(c.Send)
}

// Serve writes events to w in SSE framing until the context is
// cancelled, the hub closes this subscriber, or a write fails. It must
// be called from the HTTP handler goroutine that owns w.
func (c *SSEClient) Serve(ctx context.Context, w http.ResponseWriter) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		c.Hub.Unregister(c)
		return
	}

	ticker := time.NewTicker(c.KeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.Hub.Unregister(c)
			return

		case ev, ok := <-c.Send:
			if !ok {
				return
			}
			if err := writeSSE(w, ev); err != nil {
				c.Logger.Warn("sse write error",
					zap.String("user_id", c.UserID),
					zap.Error(err),
				)
				c.Hub.Unregister(c)
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if err := writeSSE(w, models.Event{Type: models.EventPing}); err != nil {
				c.Hub.Unregister(c)
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev models.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}
