package presence

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"whereabouts/backend/internal/models"
	"whereabouts/backend/internal/storage"
)

// DefaultGraceWindow is how long an unused temporary location survives
// before the reaper may delete it.
const DefaultGraceWindow = 5 * time.Minute

var (
	// ErrInvalidArgument signals a contract violation by the caller.
	ErrInvalidArgument = errors.New("invalid argument")
)

// ResultKind tells the caller whether a check-in request ended with the
// user inside or outside the location.
type ResultKind string

const (
	CheckedIn  ResultKind = "checkin"
	CheckedOut ResultKind = "checkout"
)

// CheckInResult is the outcome of a check-in request.
type CheckInResult struct {
	Kind    ResultKind         `json:"type"`
	CheckIn models.CheckInView `json:"checkIn"`
}

// CheckOutParams identifies the session to close. At least one field
// must be set.
type CheckOutParams struct {
	CheckInID string
	UserID    string
}

// Broadcaster is the slice of the hub the engine needs: fire-and-forget
// event publication.
type Broadcaster interface {
	Publish(ev models.Event)
}

// Service is the presence engine. It owns the one-active-check-in-per-
// user invariant and the temporary-location lifecycle. All check-in
// transitions for a user run under that user's lock; projections are
// recomputed from the store on every read.
type Service struct {
	store  storage.Storage
	hub    Broadcaster
	logger *zap.Logger
	locks  *lockRegistry

	graceWindow time.Duration
	now         func() time.Time
}

// NewService creates a presence engine over the given store and hub. A
// non-positive graceWindow falls back to DefaultGraceWindow.
func NewService(store storage.Storage, hub Broadcaster, logger *zap.Logger, graceWindow time.Duration) *Service {
	if graceWindow <= 0 {
		graceWindow = DefaultGraceWindow
	}
	return &Service{
		store:       store,
		hub:         hub,
		logger:      logger,
		locks:       newLockRegistry(),
		graceWindow: graceWindow,
		now:         time.Now,
	}
}

// CheckIn processes a check-in intent for (userID, locationID):
// no active session creates one, a session at the same location is
// closed ("tap again to leave"), a session elsewhere is closed and a new
// one opened at the requested location. The whole transition runs under
// the user's lock so two concurrent requests can never leave two active
// sessions behind.
func (s *Service) CheckIn(ctx context.Context, userID, locationID string) (*CheckInResult, error) {
	if userID == "" || locationID == "" {
		return nil, ErrInvalidArgument
	}

	if _, err := s.store.GetLocationByID(ctx, locationID); err != nil {
		return nil, err
	}

	s.locks.lock(userID)
	defer s.locks.unlock(userID)

	existing, err := s.store.FindActiveCheckInByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if existing != nil && existing.LocationID == locationID {
		closed, err := s.store.CloseCheckIn(ctx, existing.ID, s.now())
		if err != nil {
			return nil, err
		}
		view := models.NewCheckInView(closed)
		s.hub.Publish(models.NewEvent(models.EventCheckOutUpdate, view))
		s.logger.Info("user checked out",
			zap.String("user_id", userID),
			zap.String("location_id", locationID),
		)
		return &CheckInResult{Kind: CheckedOut, CheckIn: view}, nil
	}

	if existing != nil {
		closed, err := s.store.CloseCheckIn(ctx, existing.ID, s.now())
		if err != nil {
			return nil, err
		}
		s.hub.Publish(models.NewEvent(models.EventCheckOutUpdate, models.NewCheckInView(closed)))
	}

	created, err := s.store.CreateCheckIn(ctx, userID, locationID)
	if err != nil {
		return nil, err
	}
	view := models.NewCheckInView(created)
	s.hub.Publish(models.NewEvent(models.EventCheckInUpdate, view))
	s.logger.Info("user checked in",
		zap.String("user_id", userID),
		zap.String("location_id", locationID),
	)
	return &CheckInResult{Kind: CheckedIn, CheckIn: view}, nil
}

// CheckOut closes the active session matching params, by check-in ID or
// by user. Returns storage.ErrNotFound when nothing is active.
func (s *Service) CheckOut(ctx context.Context, params CheckOutParams) (*models.CheckInView, error) {
	userID := params.UserID

	if params.CheckInID != "" {
		checkIn, err := s.store.GetCheckInByID(ctx, params.CheckInID)
		if err != nil {
			return nil, err
		}
		userID = checkIn.UserID
	} else if userID == "" {
		return nil, ErrInvalidArgument
	}

	s.locks.lock(userID)
	defer s.locks.unlock(userID)

	active, err := s.store.FindActiveCheckInByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if active == nil || (params.CheckInID != "" && active.ID != params.CheckInID) {
		return nil, storage.ErrNotFound
	}

	closed, err := s.store.CloseCheckIn(ctx, active.ID, s.now())
	if err != nil {
		return nil, err
	}
	view := models.NewCheckInView(closed)
	s.hub.Publish(models.NewEvent(models.EventCheckOutUpdate, view))
	s.logger.Info("user checked out",
		zap.String("user_id", userID),
		zap.String("location_id", closed.LocationID),
	)
	return &view, nil
}

// ProjectLocations runs the temporary-location reaper and then returns
// the who-is-where projection for every active location.
func (s *Service) ProjectLocations(ctx context.Context) ([]models.LocationView, error) {
	s.reapTemporaryLocations(ctx)

	locations, err := s.store.ListActiveLocations(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]models.LocationView, 0, len(locations))
	for i := range locations {
		views = append(views, models.NewLocationView(&locations[i]))
	}
	return views, nil
}

// ActiveCheckIns returns every active session, newest first.
func (s *Service) ActiveCheckIns(ctx context.Context) ([]models.CheckInView, error) {
	checkIns, err := s.store.ListActiveCheckIns(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]models.CheckInView, 0, len(checkIns))
	for i := range checkIns {
		views = append(views, models.NewCheckInView(&checkIns[i]))
	}
	return views, nil
}

// Snapshot builds the full-state payload a new subscriber receives.
func (s *Service) Snapshot(ctx context.Context) (*models.InitialState, error) {
	locations, err := s.ProjectLocations(ctx)
	if err != nil {
		return nil, err
	}
	checkIns, err := s.ActiveCheckIns(ctx)
	if err != nil {
		return nil, err
	}
	return &models.InitialState{Locations: locations, CheckIns: checkIns}, nil
}

// CreateLocation persists a permanent location and announces it.
func (s *Service) CreateLocation(ctx context.Context, name, description, icon, color string) (*models.LocationView, error) {
	loc := models.Location{
		Name:        name,
		Description: description,
		Icon:        icon,
		Color:       color,
		IsActive:    true,
	}
	if err := s.store.SaveLocation(ctx, &loc); err != nil {
		return nil, err
	}
	loaded, err := s.store.GetLocationByID(ctx, loc.ID)
	if err != nil {
		return nil, err
	}
	view := models.NewLocationView(loaded)
	s.hub.Publish(models.NewEvent(models.EventLocationCreated, view))
	return &view, nil
}

// CreateTemporaryLocation persists a user-created location with the
// fixed temporary appearance. The creator must exist.
func (s *Service) CreateTemporaryLocation(ctx context.Context, name, description, createdBy string) (*models.LocationView, error) {
	if _, err := s.store.GetUserByID(ctx, createdBy); err != nil {
		return nil, err
	}

	if description == "" {
		description = models.TemporaryLocationDescription
	}
	loc := models.Location{
		Name:        name,
		Description: description,
		Icon:        models.TemporaryLocationIcon,
		Color:       models.TemporaryLocationColor,
		IsActive:    true,
		IsTemporary: true,
		CreatedBy:   &createdBy,
	}
	if err := s.store.SaveLocation(ctx, &loc); err != nil {
		return nil, err
	}
	loaded, err := s.store.GetLocationByID(ctx, loc.ID)
	if err != nil {
		return nil, err
	}
	view := models.NewLocationView(loaded)
	s.hub.Publish(models.NewEvent(models.EventLocationCreated, view))
	s.logger.Info("temporary location created",
		zap.String("location_id", loc.ID),
		zap.String("created_by", createdBy),
	)
	return &view, nil
}

// reapTemporaryLocations deletes empty temporary locations: immediately
// once they have been used and emptied, or after the grace window when
// they were never used. Candidate selection and delete are separate
// statements, so the delete re-checks the empty predicate; only a
// confirmed delete is announced. Store failures skip the pass, the read
// this piggy-backs on is never broken by them.
func (s *Service) reapTemporaryLocations(ctx context.Context) {
	cutoff := s.now().Add(-s.graceWindow)

	candidates, err := s.store.FindReapableLocations(ctx, cutoff)
	if err != nil {
		s.logger.Warn("temporary location reaper pass skipped", zap.Error(err))
		return
	}

	for i := range candidates {
		loc := &candidates[i]
		deleted, err := s.store.DeleteLocationIfEmpty(ctx, loc.ID)
		if err != nil {
			s.logger.Warn("failed to delete temporary location",
				zap.String("location_id", loc.ID),
				zap.Error(err),
			)
			continue
		}
		if !deleted {
			// Someone checked in between selection and delete.
			continue
		}
		s.hub.Publish(models.NewEvent(models.EventLocationDeleted, models.LocationDeleted{
			ID:   loc.ID,
			Name: loc.Name,
		}))
		s.logger.Info("temporary location deleted",
			zap.String("location_id", loc.ID),
			zap.String("name", loc.Name),
		)
	}
}
