package approle

import (
	"context"
	"sort"
	"sync"

	"cohort/pkg/platform/sentinel"
)

// InMemoryStore is the dev-mode grant store.
type InMemoryStore struct {
	mu     sync.RWMutex
	grants map[string]Grant
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{grants: make(map[string]Grant)}
}

func (s *InMemoryStore) Get(ctx context.Context, subject string) (*Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	grant, ok := s.grants[subject]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := grant
	return &copied, nil
}

func (s *InMemoryStore) Upsert(ctx context.Context, grant *Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[grant.Subject] = *grant
	return nil
}

func (s *InMemoryStore) Delete(ctx context.Context, subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.grants[subject]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.grants, subject)
	return nil
}

func (s *InMemoryStore) List(ctx context.Context) ([]*Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Grant, 0, len(s.grants))
	for _, grant := range s.grants {
		copied := grant
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Subject < out[j].Subject })
	return out, nil
}
