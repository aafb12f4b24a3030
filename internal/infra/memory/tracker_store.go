package memory

import (
	"context"
	"sync"

	"wellness-check-service/internal/domain"
)

// TrackerStore keeps failure trackers for the lifetime of the process.
type TrackerStore struct {
	mu     sync.RWMutex
	states map[string]domain.TrackerState
}

func NewTrackerStore() *TrackerStore {
	return &TrackerStore{states: make(map[string]domain.TrackerState)}
}

// Load returns the stored state, or a zero tracker for unknown users.
func (s *TrackerStore) Load(_ context.Context, userID string) (domain.TrackerState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[userID], nil
}

func (s *TrackerStore) Save(_ context.Context, userID string, state domain.TrackerState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state.ConsecutiveFailures == 0 {
		delete(s.states, userID)
		return nil
	}
	s.states[userID] = state
	return nil
}
