package auth

import (
	"sync"
	"time"
)

// stateTTL bounds how long a login state token stays redeemable.
const stateTTL = 10 * time.Minute

// stateStore tracks outstanding OAuth state tokens between the login
// redirect and the callback. Single-process only, matching the service's
// single-instance deployment model.
type stateStore struct {
	mu     sync.Mutex
	states map[string]time.Time
}

func newStateStore() *stateStore {
	return &stateStore{states: make(map[string]time.Time)}
}

// Add registers a state token, sweeping any lapsed entries while holding the lock.
func (s *stateStore) Add(state string) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for token, issued := range s.states {
		if now.Sub(issued) > stateTTL {
			delete(s.states, token)
		}
	}

	s.states[state] = now
}

// Consume redeems a state token. Each token is valid for exactly one callback.
func (s *stateStore) Consume(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	issued, ok := s.states[state]
	if !ok {
		return false
	}

	delete(s.states, state)

	return time.Since(issued) <= stateTTL
}
