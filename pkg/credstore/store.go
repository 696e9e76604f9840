package credstore

import "sync"

// Store owns a Credentials aggregate behind one exclusive lock. Reads and
// writes both take the lock for their full critical section; mutation
// frequency is low and critical sections are short, so there is no
// read/write split. Request handlers share a single *Store for the process
// lifetime.
type Store struct {
	mu    sync.Mutex
	creds *Credentials
}

// NewStore wraps the given aggregate. A nil argument starts empty.
func NewStore(creds *Credentials) *Store {
	if creds == nil {
		creds = New()
	}
	creds.Normalize()
	return &Store{creds: creds}
}

// Update runs fn on the aggregate under the lock and returns a deep
// snapshot of the state after the mutation. The snapshot is what callers
// hand to the persistence adapter so disk I/O happens outside the lock.
func (s *Store) Update(fn func(*Credentials)) *Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.creds)
	return s.creds.Clone()
}

// View runs fn on the aggregate under the lock. fn must not retain
// references to the aggregate's maps or slices.
func (s *Store) View(fn func(*Credentials)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.creds)
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() *Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds.Clone()
}

// Replace swaps in a new aggregate wholesale. Used by the reload operation;
// the previous state is discarded, not merged.
func (s *Store) Replace(creds *Credentials) {
	if creds == nil {
		creds = New()
	}
	creds.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = creds
}
