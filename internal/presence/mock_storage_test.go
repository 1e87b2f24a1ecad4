package presence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"whereabouts/backend/internal/models"
	"whereabouts/backend/internal/storage"
)

// fakeStore is a map-backed, thread-safe storage.Storage. Each method
// holds the store mutex for its whole body, mirroring the per-row
// atomicity the real store provides. It also counts invariant
// violations: a CreateCheckIn that finds another active session for the
// same user records one.
type fakeStore struct {
	mu           sync.Mutex
	users        map[string]models.User
	locations    map[string]models.Location
	checkIns     map[string]models.CheckIn
	helpRequests map[string]models.HelpRequest

	violations int

	findReapableErr error
	deleteErr       error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:        make(map[string]models.User),
		locations:    make(map[string]models.Location),
		checkIns:     make(map[string]models.CheckIn),
		helpRequests: make(map[string]models.HelpRequest),
	}
}

// ── seeding helpers ──

func (f *fakeStore) addUser(name string) models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	user := models.User{ID: uuid.New().String(), Name: name, CreatedAt: time.Now()}
	f.users[user.ID] = user
	return user
}

func (f *fakeStore) addLocation(id, name string) models.Location {
	f.mu.Lock()
	defer f.mu.Unlock()
	loc := models.Location{
		ID: id, Name: name, IsActive: true,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	f.locations[loc.ID] = loc
	return loc
}

func (f *fakeStore) addTemporaryLocation(name string, createdAt time.Time, createdBy string) models.Location {
	f.mu.Lock()
	defer f.mu.Unlock()
	loc := models.Location{
		ID: uuid.New().String(), Name: name,
		Icon: models.TemporaryLocationIcon, Color: models.TemporaryLocationColor,
		IsActive: true, IsTemporary: true, CreatedBy: &createdBy,
		CreatedAt: createdAt, UpdatedAt: createdAt,
	}
	f.locations[loc.ID] = loc
	return loc
}

func (f *fakeStore) activeCheckInCount(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, ci := range f.checkIns {
		if ci.UserID == userID && ci.IsActive {
			count++
		}
	}
	return count
}

// loadCheckIn fills the denormalized User and Location, emulating the
// real store's preloads. Caller must hold the mutex.
func (f *fakeStore) loadCheckIn(ci models.CheckIn) models.CheckIn {
	ci.User = f.users[ci.UserID]
	ci.Location = f.locations[ci.LocationID]
	return ci
}

// ── Users ──

func (f *fakeStore) SaveUser(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Name == user.Name {
			return storage.ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = time.Now()
	f.users[user.ID] = *user
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &user, nil
}

func (f *fakeStore) FindUserByName(_ context.Context, name string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Name == name {
			u := user
			return &u, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListUsers(_ context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	users := make([]models.User, 0, len(f.users))
	for _, user := range f.users {
		users = append(users, user)
	}
	return users, nil
}

// ── Locations ──

func (f *fakeStore) SaveLocation(_ context.Context, loc *models.Location) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if loc.ID == "" {
		loc.ID = uuid.New().String()
	}
	if loc.CreatedAt.IsZero() {
		loc.CreatedAt = time.Now()
		loc.UpdatedAt = loc.CreatedAt
	}
	f.locations[loc.ID] = *loc
	return nil
}

func (f *fakeStore) GetLocationByID(_ context.Context, id string) (*models.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	loc, ok := f.locations[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	loc.CheckIns = f.activeCheckInsForLocked(id)
	return &loc, nil
}

// Caller must hold the mutex.
func (f *fakeStore) activeCheckInsForLocked(locationID string) []models.CheckIn {
	var out []models.CheckIn
	for _, ci := range f.checkIns {
		if ci.LocationID == locationID && ci.IsActive {
			out = append(out, f.loadCheckIn(ci))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckedInAt.After(out[j].CheckedInAt) })
	return out
}

func (f *fakeStore) ListActiveLocations(_ context.Context) ([]models.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Location
	for _, loc := range f.locations {
		if !loc.IsActive {
			continue
		}
		loc.CheckIns = f.activeCheckInsForLocked(loc.ID)
		out = append(out, loc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeStore) FindReapableLocations(_ context.Context, createdBefore time.Time) ([]models.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findReapableErr != nil {
		return nil, f.findReapableErr
	}
	var out []models.Location
	for _, loc := range f.locations {
		if !loc.IsTemporary || !loc.IsActive {
			continue
		}
		hasActive, hasAny := false, false
		for _, ci := range f.checkIns {
			if ci.LocationID != loc.ID {
				continue
			}
			hasAny = true
			if ci.IsActive {
				hasActive = true
			}
		}
		if hasActive {
			continue
		}
		if loc.CreatedAt.Before(createdBefore) || hasAny {
			out = append(out, loc)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteLocationIfEmpty(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return false, f.deleteErr
	}
	loc, ok := f.locations[id]
	if !ok || !loc.IsTemporary {
		return false, nil
	}
	for _, ci := range f.checkIns {
		if ci.LocationID == id && ci.IsActive {
			return false, nil
		}
	}
	delete(f.locations, id)
	return true, nil
}

// ── CheckIns ──

func (f *fakeStore) CreateCheckIn(_ context.Context, userID, locationID string) (*models.CheckIn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ci := range f.checkIns {
		if ci.UserID == userID && ci.IsActive {
			f.violations++
		}
	}
	ci := models.CheckIn{
		ID: uuid.New().String(), UserID: userID, LocationID: locationID,
		CheckedInAt: time.Now(), IsActive: true,
	}
	f.checkIns[ci.ID] = ci
	loaded := f.loadCheckIn(ci)
	return &loaded, nil
}

func (f *fakeStore) FindActiveCheckInByUser(_ context.Context, userID string) (*models.CheckIn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ci := range f.checkIns {
		if ci.UserID == userID && ci.IsActive {
			loaded := f.loadCheckIn(ci)
			return &loaded, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetCheckInByID(_ context.Context, id string) (*models.CheckIn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ci, ok := f.checkIns[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	loaded := f.loadCheckIn(ci)
	return &loaded, nil
}

func (f *fakeStore) CloseCheckIn(_ context.Context, id string, at time.Time) (*models.CheckIn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ci, ok := f.checkIns[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	ci.IsActive = false
	ci.CheckedOutAt = &at
	f.checkIns[id] = ci
	loaded := f.loadCheckIn(ci)
	return &loaded, nil
}

func (f *fakeStore) ListActiveCheckIns(_ context.Context) ([]models.CheckIn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.CheckIn
	for _, ci := range f.checkIns {
		if ci.IsActive {
			out = append(out, f.loadCheckIn(ci))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckedInAt.After(out[j].CheckedInAt) })
	return out, nil
}

// ── HelpRequests ──

func (f *fakeStore) CreateHelpRequest(_ context.Context, req *models.HelpRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	req.Requester = f.users[req.RequesterID]
	req.Location = f.locations[req.LocationID]
	f.helpRequests[req.ID] = *req
	return nil
}

func (f *fakeStore) FindActiveHelpRequest(_ context.Context, requesterID, locationID string) (*models.HelpRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, req := range f.helpRequests {
		if req.RequesterID == requesterID && req.LocationID == locationID && req.Status == models.HelpStatusActive {
			r := req
			return &r, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetHelpRequestByID(_ context.Context, id string) (*models.HelpRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.helpRequests[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &req, nil
}

func (f *fakeStore) UpdateHelpRequestStatus(_ context.Context, id, status string) (*models.HelpRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.helpRequests[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	req.Status = status
	req.UpdatedAt = time.Now()
	f.helpRequests[id] = req
	return &req, nil
}

func (f *fakeStore) DeleteHelpRequest(_ context.Context, id string) (*models.HelpRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.helpRequests[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	delete(f.helpRequests, id)
	return &req, nil
}

func (f *fakeStore) ListActiveHelpRequests(_ context.Context) ([]models.HelpRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.HelpRequest
	for _, req := range f.helpRequests {
		if req.Status == models.HelpStatusActive {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ── Events ──

func (f *fakeStore) PublishEvent(_ context.Context, _ models.Event) error { return nil }
func (f *fakeStore) SubscribeEvents(_ context.Context) *redis.PubSub      { return nil }

// recordingHub captures published events for assertions.
type recordingHub struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *recordingHub) Publish(ev models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingHub) ofType(eventType string) []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Event
	for _, ev := range r.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}
