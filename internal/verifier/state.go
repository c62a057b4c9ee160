package verifier

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

// stateTTL bounds how long an issued OAuth state can be redeemed.
const stateTTL = 10 * time.Minute

// stateSet tracks OAuth state values handed out by /auth/google. Each value is
// redeemable once, before it expires.
type stateSet struct {
	mu     sync.Mutex
	clock  clock.Clock
	issued map[string]time.Time
}

func newStateSet(c clock.Clock) *stateSet {
	return &stateSet{clock: c, issued: make(map[string]time.Time)}
}

func (s *stateSet) issue() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	for state, expires := range s.issued {
		if !now.Before(expires) {
			delete(s.issued, state)
		}
	}
	state := uuid.NewString()
	s.issued[state] = now.Add(stateTTL)
	return state
}

func (s *stateSet) consume(state string) bool {
	if state == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	expires, ok := s.issued[state]
	if !ok {
		return false
	}
	delete(s.issued, state)
	return s.clock.Now().Before(expires)
}
