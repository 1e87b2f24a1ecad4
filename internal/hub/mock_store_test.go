package hub

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"whereabouts/backend/internal/models"
	"whereabouts/backend/internal/storage"
)

// stubStore carries just enough state to drive check-in commands
// through a real presence service; everything else is inert.
type stubStore struct {
	mu        sync.Mutex
	locations map[string]models.Location
	checkIns  map[string]models.CheckIn
}

func newStubStore() *stubStore {
	return &stubStore{
		locations: make(map[string]models.Location),
		checkIns:  make(map[string]models.CheckIn),
	}
}

func (s *stubStore) addLocation(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations[id] = models.Location{ID: id, Name: name, IsActive: true}
}

func (s *stubStore) activeCheckInCount(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, ci := range s.checkIns {
		if ci.UserID == userID && ci.IsActive {
			count++
		}
	}
	return count
}

func (s *stubStore) GetLocationByID(_ context.Context, id string) (*models.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	loc, ok := s.locations[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &loc, nil
}

func (s *stubStore) CreateCheckIn(_ context.Context, userID, locationID string) (*models.CheckIn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ci := models.CheckIn{
		ID: uuid.New().String(), UserID: userID, LocationID: locationID,
		CheckedInAt: time.Now(), IsActive: true,
		Location: s.locations[locationID],
	}
	s.checkIns[ci.ID] = ci
	return &ci, nil
}

func (s *stubStore) FindActiveCheckInByUser(_ context.Context, userID string) (*models.CheckIn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ci := range s.checkIns {
		if ci.UserID == userID && ci.IsActive {
			out := ci
			return &out, nil
		}
	}
	return nil, nil
}

func (s *stubStore) GetCheckInByID(_ context.Context, id string) (*models.CheckIn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ci, ok := s.checkIns[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &ci, nil
}

func (s *stubStore) CloseCheckIn(_ context.Context, id string, at time.Time) (*models.CheckIn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ci, ok := s.checkIns[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	ci.IsActive = false
	ci.CheckedOutAt = &at
	s.checkIns[id] = ci
	return &ci, nil
}

func (s *stubStore) SaveUser(context.Context, *models.User) error { return nil }
func (s *stubStore) GetUserByID(context.Context, string) (*models.User, error) {
	return nil, storage.ErrNotFound
}
func (s *stubStore) FindUserByName(context.Context, string) (*models.User, error) { return nil, nil }
func (s *stubStore) ListUsers(context.Context) ([]models.User, error)            { return nil, nil }

func (s *stubStore) SaveLocation(context.Context, *models.Location) error { return nil }
func (s *stubStore) ListActiveLocations(context.Context) ([]models.Location, error) {
	return nil, nil
}
func (s *stubStore) FindReapableLocations(context.Context, time.Time) ([]models.Location, error) {
	return nil, nil
}
func (s *stubStore) DeleteLocationIfEmpty(context.Context, string) (bool, error) {
	return false, nil
}
func (s *stubStore) ListActiveCheckIns(context.Context) ([]models.CheckIn, error) { return nil, nil }

func (s *stubStore) CreateHelpRequest(context.Context, *models.HelpRequest) error { return nil }
func (s *stubStore) FindActiveHelpRequest(context.Context, string, string) (*models.HelpRequest, error) {
	return nil, nil
}
func (s *stubStore) GetHelpRequestByID(context.Context, string) (*models.HelpRequest, error) {
	return nil, storage.ErrNotFound
}
func (s *stubStore) UpdateHelpRequestStatus(context.Context, string, string) (*models.HelpRequest, error) {
	return nil, storage.ErrNotFound
}
func (s *stubStore) DeleteHelpRequest(context.Context, string) (*models.HelpRequest, error) {
	return nil, storage.ErrNotFound
}
func (s *stubStore) ListActiveHelpRequests(context.Context) ([]models.HelpRequest, error) {
	return nil, nil
}

func (s *stubStore) PublishEvent(context.Context, models.Event) error { return nil }
func (s *stubStore) SubscribeEvents(context.Context) *redis.PubSub    { return nil }

// nopBroadcaster satisfies the presence service's hub dependency where
// the broadcast side is irrelevant.
type nopBroadcaster struct{}

func (nopBroadcaster) Publish(models.Event) {}
