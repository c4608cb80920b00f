package profile

import (
	"sync"

	"castfeed/internal/identity"
)

// LastKnown holds the most recently observed snapshot per fid, used as the
// diff baseline when an update payload carries no "before" object.
//
// Its lifecycle is deliberately distinct from Cache: entries never expire
// and are overwritten every time a profile update is fully resolved.
type LastKnown struct {
	mu sync.RWMutex
	m  map[int64]identity.Profile
}

func NewLastKnown() *LastKnown {
	return &LastKnown{m: make(map[int64]identity.Profile)}
}

func (s *LastKnown) Get(fid int64) (identity.Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.m[fid]
	return p, ok
}

func (s *LastKnown) Put(fid int64, p identity.Profile) {
	if fid <= 0 {
		return
	}
	s.mu.Lock()
	s.m[fid] = p
	s.mu.Unlock()
}

func (s *LastKnown) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
