package reconcile

import (
	"sort"
	"sync"

	"whereabouts/backend/internal/models"
)

// State is the client-side cache of "who is where". All mutations are
// wholesale replacements or set-if-present updates, so applying the same
// event twice leaves the cache unchanged.
type State struct {
	mu           sync.RWMutex
	locations    map[string]models.LocationView
	checkIns     []models.CheckInView
	helpRequests []models.HelpRequestView
}

func NewState() *State {
	return &State{locations: make(map[string]models.LocationView)}
}

// Replace swaps the whole cache for the snapshot contents.
func (s *State) Replace(snapshot *models.InitialState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.locations = make(map[string]models.LocationView, len(snapshot.Locations))
	for _, loc := range snapshot.Locations {
		s.locations[loc.ID] = loc
	}
	s.checkIns = append([]models.CheckInView(nil), snapshot.CheckIns...)
}

// SetLocations replaces the location projection.
func (s *State) SetLocations(locations []models.LocationView) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.locations = make(map[string]models.LocationView, len(locations))
	for _, loc := range locations {
		s.locations[loc.ID] = loc
	}
}

// SetCheckIns replaces the active check-in list.
func (s *State) SetCheckIns(checkIns []models.CheckInView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkIns = append([]models.CheckInView(nil), checkIns...)
}

// SetHelpRequests replaces the help request list.
func (s *State) SetHelpRequests(reqs []models.HelpRequestView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.helpRequests = append([]models.HelpRequestView(nil), reqs...)
}

// UpsertLocation adds or refreshes one location.
func (s *State) UpsertLocation(loc models.LocationView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations[loc.ID] = loc
}

// RemoveLocation drops a location; removing one that is already gone is
// a no-op.
func (s *State) RemoveLocation(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locations, id)
}

// Locations returns the cached projection sorted by name.
func (s *State) Locations() []models.LocationView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.LocationView, 0, len(s.locations))
	for _, loc := range s.locations {
		out = append(out, loc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CheckIns returns the cached active check-ins.
func (s *State) CheckIns() []models.CheckInView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.CheckInView(nil), s.checkIns...)
}

// HelpRequests returns the cached help requests.
func (s *State) HelpRequests() []models.HelpRequestView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.HelpRequestView(nil), s.helpRequests...)
}
