package mirror

import (
	"sync"

	"github.com/glorpus-work/sitegrab/pkg/pathmap"
)

// dispatchSet records which resources of one run have been scheduled.
// A target is claimed once per dedup key and once per local path, so no two
// fetches ever write the same file.
type dispatchSet struct {
	mu    sync.Mutex
	keys  map[string]struct{}
	paths map[string]struct{}
}

func newDispatchSet() *dispatchSet {
	return &dispatchSet{
		keys:  make(map[string]struct{}),
		paths: make(map[string]struct{}),
	}
}

// claim reports whether t was not seen before and marks it as dispatched.
func (s *dispatchSet) claim(t pathmap.Target) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.keys[t.Key]; ok {
		return false
	}
	if _, ok := s.paths[t.Path]; ok {
		s.keys[t.Key] = struct{}{}
		return false
	}
	s.keys[t.Key] = struct{}{}
	s.paths[t.Path] = struct{}{}
	return true
}

func (s *dispatchSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.paths)
}
