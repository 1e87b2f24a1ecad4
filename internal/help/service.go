package help

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"whereabouts/backend/internal/models"
	"whereabouts/backend/internal/presence"
	"whereabouts/backend/internal/storage"
)

var (
	// ErrNotCheckedIn rejects a help request from a user who is not
	// currently checked in anywhere.
	ErrNotCheckedIn = errors.New("requester is not checked in")
	// ErrDuplicateRequest rejects a second ACTIVE request for the same
	// requester and location.
	ErrDuplicateRequest = errors.New("active help request already exists for this location")
	// ErrInvalidStatus rejects an unknown status value.
	ErrInvalidStatus = errors.New("invalid help request status")
)

// Service manages help requests and their broadcasts.
type Service struct {
	store  storage.Storage
	hub    presence.Broadcaster
	logger *zap.Logger
}

func NewService(store storage.Storage, hub presence.Broadcaster, logger *zap.Logger) *Service {
	return &Service{store: store, hub: hub, logger: logger}
}

// CreateParams carries a new help request. TargetUserID and Message are
// optional.
type CreateParams struct {
	RequesterID  string
	LocationID   string
	TargetUserID *string
	Message      *string
}

// Create stores a help request and broadcasts it. The requester must be
// checked in somewhere, and must not already have an ACTIVE request at
// this location.
func (s *Service) Create(ctx context.Context, params CreateParams) (*models.HelpRequestView, error) {
	active, err := s.store.FindActiveCheckInByUser(ctx, params.RequesterID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, ErrNotCheckedIn
	}

	existing, err := s.store.FindActiveHelpRequest(ctx, params.RequesterID, params.LocationID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateRequest
	}

	req := models.HelpRequest{
		RequesterID:  params.RequesterID,
		LocationID:   params.LocationID,
		TargetUserID: params.TargetUserID,
		Message:      params.Message,
		Status:       models.HelpStatusActive,
	}
	if err := s.store.CreateHelpRequest(ctx, &req); err != nil {
		return nil, err
	}

	view := models.NewHelpRequestView(&req)
	s.hub.Publish(models.NewEvent(models.EventHelpRequest, view))
	s.logger.Info("help request created",
		zap.String("request_id", req.ID),
		zap.String("requester_id", params.RequesterID),
		zap.String("location_id", params.LocationID),
	)
	return &view, nil
}

// UpdateStatus transitions a help request to the given status and
// broadcasts the change.
func (s *Service) UpdateStatus(ctx context.Context, id, status string) (*models.HelpRequestView, error) {
	if !models.ValidHelpStatus(status) {
		return nil, ErrInvalidStatus
	}

	updated, err := s.store.UpdateHelpRequestStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	view := models.NewHelpRequestView(updated)
	s.hub.Publish(models.NewEvent(models.EventHelpUpdate, view))
	return &view, nil
}

// Delete removes a help request and broadcasts the deletion with the
// removed row attached.
func (s *Service) Delete(ctx context.Context, id string) error {
	deleted, err := s.store.DeleteHelpRequest(ctx, id)
	if err != nil {
		return err
	}

	s.hub.Publish(models.NewEvent(models.EventHelpDelete, models.HelpDeleted{
		ID:          id,
		HelpRequest: models.NewHelpRequestView(deleted),
	}))
	return nil
}

// ListActive returns all ACTIVE help requests, newest first.
func (s *Service) ListActive(ctx context.Context) ([]models.HelpRequestView, error) {
	reqs, err := s.store.ListActiveHelpRequests(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]models.HelpRequestView, 0, len(reqs))
	for i := range reqs {
		views = append(views, models.NewHelpRequestView(&reqs[i]))
	}
	return views, nil
}
