package hub

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"whereabouts/backend/internal/models"
)

// StartRelay subscribes to the Redis event channel and feeds events
// published by sibling instances into the local fan-out. Events this hub
// published itself are recognized by their origin tag and dropped, so a
// local mutation is delivered exactly once to each local subscriber.
func (h *Hub) StartRelay(ctx context.Context) {
	if h.store == nil {
		return
	}

	go func() {
		pubsub := h.store.SubscribeEvents(ctx)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev models.Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					h.logger.Warn("failed to decode relayed event", zap.Error(err))
					continue
				}
				if ev.Origin == h.originID {
					continue
				}
				h.BroadcastCh <- ev
			}
		}
	}()
}
