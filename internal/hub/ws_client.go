package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"whereabouts/backend/internal/models"
	"whereabouts/backend/internal/presence"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
)

// Command is an inbound frame on the bidirectional socket transport.
// Clients perform check-ins over the socket instead of HTTP and get an
// ack frame back; the resulting broadcast reaches everyone through the
// hub as usual.
type Command struct {
	Action     string `json:"action"` // "checkin" | "checkout"
	UserID     string `json:"userId,omitempty"`
	LocationID string `json:"locationId,omitempty"`
	CheckInID  string `json:"checkInId,omitempty"`
}

// Ack is the direct reply to a Command, sent only to the issuing client.
type Ack struct {
	Action  string `json:"action"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// WSClient implements Subscriber over a gorilla websocket connection.
type WSClient struct {
	ID     string
	UserID string
	Conn   *websocket.Conn
	Hub    *Hub

	Presence *presence.Service
	Send     chan models.Event
	Logger   *zap.Logger

	// mu guards closed. Send has two writers: the hub's dispatcher and
	// the readPump's acks. The hub may close a dropped client while a
	// frame is still being handled, so acks must re-check closed under
	// the lock before sending.
	mu     sync.Mutex
	closed bool
}

// NewWSClient wraps an upgraded connection. userID comes from the
// authenticated token of the upgrade request.
func NewWSClient(conn *websocket.Conn, userID string, h *Hub, ps *presence.Service, logger *zap.Logger) *WSClient {
	return &WSClient{
		ID:       uuid.New().String(),
		UserID:   userID,
		Conn:     conn,
		Hub:      h,
		Presence: ps,
		Send:     make(chan models.Event, 64),
		Logger:   logger,
	}
}

func (c *WSClient) GetID() string                       { return c.ID }
func (c *WSClient) GetSendChannel() chan<- models.Event { return c.Send }

// Run starts the read and write pumps.
func (c *WSClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close shuts the send channel, which stops the write pump and closes
// the connection behind it. Safe to call more than once.
func (c *WSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

func (c *WSClient) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Logger.Warn("websocket read error",
					zap.String("user_id", c.UserID),
					zap.Error(err),
				)
			}
			break
		}

		var cmd Command
		if err := json.Unmarshal(message, &cmd); err != nil {
			c.Logger.Warn("invalid websocket frame",
				zap.String("user_id", c.UserID),
				zap.Error(err),
			)
			continue
		}

		c.handleCommand(cmd)
	}
}

// handleCommand executes an inbound intent. The command acts on behalf
// of the authenticated user; a userId inside the frame is ignored.
func (c *WSClient) handleCommand(cmd Command) {
	ctx := context.Background()

	switch cmd.Action {
	case "checkin":
		result, err := c.Presence.CheckIn(ctx, c.UserID, cmd.LocationID)
		if err != nil {
			c.ack(Ack{Action: cmd.Action, Error: err.Error()})
			return
		}
		c.ack(Ack{Action: cmd.Action, Success: true, Data: result})

	case "checkout":
		view, err := c.Presence.CheckOut(ctx, presence.CheckOutParams{
			CheckInID: cmd.CheckInID,
			UserID:    c.UserID,
		})
		if err != nil {
			c.ack(Ack{Action: cmd.Action, Error: err.Error()})
			return
		}
		c.ack(Ack{Action: cmd.Action, Success: true, Data: view})

	default:
		c.ack(Ack{Action: cmd.Action, Error: "unknown action"})
	}
}

// ack queues a direct reply through the send channel, so acks and
// broadcasts reach the client in a single ordered stream. An ack for a
// client the hub has already closed is dropped.
func (c *WSClient) ack(a Ack) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- models.NewEvent("ack", a):
	default:
	}
}

func (c *WSClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(ev); err != nil {
				c.Logger.Warn("websocket write error",
					zap.String("user_id", c.UserID),
					zap.Error(err),
				)
				return
			}

		case <-ticker.C:
			// Protocol-level ping keeps intermediaries from dropping
			// an otherwise idle connection.
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
