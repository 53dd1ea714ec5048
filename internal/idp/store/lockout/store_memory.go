// Package lockout tracks consecutive failed logins per identifier.
// Stores are pure I/O; the lock window policy lives in the login service.
package lockout

import (
	"context"
	"sync"
	"time"
)

// Record counts consecutive login failures for one identifier.
type Record struct {
	Identifier    string
	FailureCount  int
	LockedUntil   time.Time
	LastFailureAt time.Time
}

// Locked reports whether the record is inside its lock window.
func (r *Record) Locked(now time.Time) bool {
	return now.Before(r.LockedUntil)
}

type InMemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
}

func New() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]*Record)}
}

// Get returns the record for the identifier, or nil when none exists.
func (s *InMemoryStore) Get(_ context.Context, identifier string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[identifier]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

// RecordFailure increments the failure count and applies the lock when the
// threshold is crossed. Returns the updated record.
func (s *InMemoryStore) RecordFailure(_ context.Context, identifier string, now time.Time, threshold int, window time.Duration) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[identifier]
	if !ok {
		r = &Record{Identifier: identifier}
		s.records[identifier] = r
	}
	r.FailureCount++
	r.LastFailureAt = now
	if threshold > 0 && r.FailureCount >= threshold {
		r.LockedUntil = now.Add(window)
	}
	cp := *r
	return &cp, nil
}

// Clear resets the counter after a successful login.
func (s *InMemoryStore) Clear(_ context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, identifier)
	return nil
}
