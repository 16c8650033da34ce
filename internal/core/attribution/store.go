package attribution

import "sync"

// Store publishes the current Snapshot. Readers take the pointer under a read lock and keep
// using it for the whole message; Swap replaces it wholesale.
type Store struct {
	mu      sync.RWMutex
	current *Snapshot
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Current returns the published snapshot, or nil before the first load.
func (s *Store) Current() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.current
}

// Swap publishes next and returns the snapshot it replaced.
func (s *Store) Swap(next *Snapshot) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.current
	s.current = next

	return prev
}

// Loaded reports whether a snapshot has been published.
func (s *Store) Loaded() bool {
	return s.Current() != nil
}
