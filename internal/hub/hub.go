package hub

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"whereabouts/backend/internal/models"
	"whereabouts/backend/internal/storage"
)

// SnapshotFunc builds the full-state payload pushed to a subscriber the
// moment it registers.
type SnapshotFunc func(ctx context.Context) (*models.InitialState, error)

// Hub owns the set of live subscribers and fans every published event
// out to all of them. A single Run goroutine serializes registry access
// and fan-out, which also preserves FIFO delivery order per subscriber.
// Delivery is best effort: a subscriber whose buffer is full is dropped,
// never waited on.
type Hub struct {
	RegisterCh   chan Subscriber
	UnregisterCh chan Subscriber
	BroadcastCh  chan models.Event

	subscribers map[string]Subscriber

	// done is closed when Run exits, releasing any goroutine still
	// trying to unregister.
	done chan struct{}

	store    storage.Storage
	snapshot SnapshotFunc
	logger   *zap.Logger

	// originID tags outgoing events so the Redis relay can tell its own
	// publications apart from those of sibling instances.
	originID string
}

// NewHub creates a hub. store may be nil, in which case the hub runs
// standalone without the cross-instance relay.
func NewHub(store storage.Storage, snapshot SnapshotFunc, logger *zap.Logger) *Hub {
	return &Hub{
		RegisterCh:   make(chan Subscriber),
		UnregisterCh: make(chan Subscriber),
		BroadcastCh:  make(chan models.Event, 256),
		subscribers:  make(map[string]Subscriber),
		done:         make(chan struct{}),
		store:        store,
		snapshot:     snapshot,
		logger:       logger,
		originID:     uuid.New().String(),
	}
}

// Publish hands an event to the hub for fan-out. It never blocks the
// caller behind subscriber delivery; the mutation that triggered the
// event has already succeeded.
func (h *Hub) Publish(ev models.Event) {
	ev.Origin = h.originID
	h.BroadcastCh <- ev
}

// Unregister removes sub from the registry. Unlike a bare send on
// UnregisterCh it also returns once the hub has shut down, so transport
// goroutines outliving Run never block on teardown.
func (h *Hub) Unregister(sub Subscriber) {
	select {
	case h.UnregisterCh <- sub:
	case <-h.done:
	}
}

// Run is the hub dispatcher. It must run in its own goroutine and stops
// when ctx is cancelled, closing every subscriber on the way out.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for id, sub := range h.subscribers {
				delete(h.subscribers, id)
				sub.Close()
			}
			close(h.done)
			return

		case sub := <-h.RegisterCh:
			h.subscribers[sub.GetID()] = sub
			sub.Run()
			h.sendInitial(ctx, sub)
			h.logger.Debug("subscriber registered",
				zap.String("subscriber_id", sub.GetID()),
				zap.Int("subscribers", len(h.subscribers)),
			)

		case sub := <-h.UnregisterCh:
			if _, ok := h.subscribers[sub.GetID()]; ok {
				delete(h.subscribers, sub.GetID())
				sub.Close()
			}

		case ev := <-h.BroadcastCh:
			h.fanOut(ev)
			if h.store != nil && ev.Origin == h.originID {
				if err := h.store.PublishEvent(ctx, ev); err != nil {
					h.logger.Warn("failed to relay event to redis",
						zap.String("type", ev.Type),
						zap.Error(err),
					)
				}
			}
		}
	}
}

// sendInitial pushes the full-state snapshot to a freshly registered
// subscriber. Built inside the Run loop, after every previously
// published event has been fanned out, so the snapshot can never be
// older than an event the subscriber missed. The store reads run on the
// dispatcher goroutine: fan-out pauses until they return, and once
// BroadcastCh's buffer fills, Publish callers wait too. The stall is
// bounded by the two snapshot queries.
func (h *Hub) sendInitial(ctx context.Context, sub Subscriber) {
	if h.snapshot == nil {
		return
	}
	state, err := h.snapshot(ctx)
	if err != nil {
		h.logger.Error("failed to build initial snapshot",
			zap.String("subscriber_id", sub.GetID()),
			zap.Error(err),
		)
		return
	}
	h.trySend(sub, models.NewEvent(models.EventInitial, state))
}

// fanOut delivers ev to every subscriber, isolating failures: one bad
// subscriber never blocks or fails delivery to the rest.
func (h *Hub) fanOut(ev models.Event) {
	for _, sub := range h.subscribers {
		h.trySend(sub, ev)
	}
}

func (h *Hub) trySend(sub Subscriber, ev models.Event) {
	select {
	case sub.GetSendChannel() <- ev:
	default:
		// Subscriber is not draining its buffer; drop it.
		delete(h.subscribers, sub.GetID())
		sub.Close()
		h.logger.Warn("dropped unresponsive subscriber",
			zap.String("subscriber_id", sub.GetID()),
		)
	}
}
