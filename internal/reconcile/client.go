package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"whereabouts/backend/internal/models"
)

// Stream is one live event feed. Both the SSE and the websocket
// transports satisfy it.
type Stream interface {
	// Events returns the channel of decoded events. It is closed when
	// the transport dies.
	Events() <-chan models.Event
	Close()
}

// Dialer opens a new Stream. The client calls it again after every
// disconnect.
type Dialer func(ctx context.Context) (Stream, error)

// Fetcher pulls derived views over the request/response API. Check-in
// events invalidate rather than patch, because the projection is
// computed server-side and cheap to refetch.
type Fetcher interface {
	Locations(ctx context.Context) ([]models.LocationView, error)
	ActiveCheckIns(ctx context.Context) ([]models.CheckInView, error)
	HelpRequests(ctx context.Context) ([]models.HelpRequestView, error)
}

// Reconnect policy defaults.
const (
	DefaultBaseDelay   = time.Second
	DefaultMaxDelay    = 30 * time.Second
	DefaultMaxAttempts = 10
)

// Config wires a Client.
type Config struct {
	// UserID is the local user; help events they caused themselves are
	// not surfaced through OnHelp.
	UserID  string
	Dial    Dialer
	Fetcher Fetcher
	Logger  *zap.Logger

	// OnHelp, when set, is invoked for each foreign help_request event.
	OnHelp func(models.HelpRequestView)

	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

// Client keeps a local State eventually consistent with the server:
// full snapshot on every (re)connect, idempotent incremental updates in
// between, bounded-backoff reconnects when the transport drops.
type Client struct {
	cfg   Config
	state *State

	// sleep is swappable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewClient(cfg Config) *Client {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Client{
		cfg:   cfg,
		state: NewState(),
		sleep: sleepCtx,
	}
}

// State exposes the local cache for readers.
func (c *Client) State() *State { return c.state }

// Run connects and consumes events until ctx is cancelled or the
// reconnect attempts run out. Nothing is assumed to have succeeded
// while disconnected; every successful dial starts from the snapshot.
func (c *Client) Run(ctx context.Context) error {
	attempts := 0
	delay := c.cfg.BaseDelay

	for {
		stream, err := c.cfg.Dial(ctx)
		if err != nil {
			attempts++
			if attempts >= c.cfg.MaxAttempts {
				return fmt.Errorf("giving up after %d connection attempts: %w", attempts, err)
			}
			c.cfg.Logger.Warn("connection failed, retrying",
				zap.Int("attempt", attempts),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
			if err := c.sleep(ctx, delay); err != nil {
				return err
			}
			delay *= 2
			if delay > c.cfg.MaxDelay {
				delay = c.cfg.MaxDelay
			}
			continue
		}

		attempts = 0
		delay = c.cfg.BaseDelay

		c.consume(ctx, stream)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.cfg.Logger.Info("stream ended, reconnecting")
	}
}

func (c *Client) consume(ctx context.Context, stream Stream) {
	defer stream.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-stream.Events():
			if !ok {
				return
			}
			c.Apply(ctx, ev)
		}
	}
}

// Apply folds one event into the local state. Every branch is a
// refetch or set-if-present, so duplicate delivery is harmless.
func (c *Client) Apply(ctx context.Context, ev models.Event) {
	switch ev.Type {
	case models.EventInitial:
		var snapshot models.InitialState
		if err := json.Unmarshal(ev.Data, &snapshot); err != nil {
			c.cfg.Logger.Warn("bad initial payload", zap.Error(err))
			return
		}
		c.state.Replace(&snapshot)

	case models.EventCheckInUpdate, models.EventCheckOutUpdate:
		c.refreshProjection(ctx)

	case models.EventLocationCreated:
		var loc models.LocationView
		if err := json.Unmarshal(ev.Data, &loc); err != nil {
			c.cfg.Logger.Warn("bad location payload", zap.Error(err))
			return
		}
		c.state.UpsertLocation(loc)

	case models.EventLocationDeleted:
		var deleted models.LocationDeleted
		if err := json.Unmarshal(ev.Data, &deleted); err != nil {
			c.cfg.Logger.Warn("bad location_deleted payload", zap.Error(err))
			return
		}
		c.state.RemoveLocation(deleted.ID)

	case models.EventHelpRequest:
		c.refreshHelpRequests(ctx)
		if c.cfg.OnHelp == nil {
			return
		}
		var req models.HelpRequestView
		if err := json.Unmarshal(ev.Data, &req); err != nil {
			c.cfg.Logger.Warn("bad help_request payload", zap.Error(err))
			return
		}
		// Never notify a user about their own request.
		if req.RequesterID != c.cfg.UserID {
			c.cfg.OnHelp(req)
		}

	case models.EventHelpUpdate, models.EventHelpDelete:
		c.refreshHelpRequests(ctx)

	case models.EventPing:
		// Keep-alive, nothing to do.

	default:
		c.cfg.Logger.Debug("ignoring unknown event", zap.String("type", ev.Type))
	}
}

func (c *Client) refreshProjection(ctx context.Context) {
	locations, err := c.cfg.Fetcher.Locations(ctx)
	if err != nil {
		c.cfg.Logger.Warn("failed to refresh locations", zap.Error(err))
		return
	}
	checkIns, err := c.cfg.Fetcher.ActiveCheckIns(ctx)
	if err != nil {
		c.cfg.Logger.Warn("failed to refresh check-ins", zap.Error(err))
		return
	}
	c.state.SetLocations(locations)
	c.state.SetCheckIns(checkIns)
}

func (c *Client) refreshHelpRequests(ctx context.Context) {
	reqs, err := c.cfg.Fetcher.HelpRequests(ctx)
	if err != nil {
		c.cfg.Logger.Warn("failed to refresh help requests", zap.Error(err))
		return
	}
	c.state.SetHelpRequests(reqs)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
