// Package user persists IdP staff accounts.
//
// Error contract (all stores):
//   - return ErrNotFound when the requested entity does not exist
//   - return nil for successful operations
//   - return wrapped errors with context for infrastructure failures
package user

import (
	"context"
	"fmt"
	"sync"

	"cohort/internal/idp/models"
	"cohort/pkg/platform/sentinel"
)

// InMemoryStore keeps users in memory for dev and tests. Identifier lookups
// are case-insensitive per the credential store contract.
type InMemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*models.User
	byIdent map[string]string // normalized email/username -> user ID
}

func New() *InMemoryStore {
	return &InMemoryStore{
		byID:    make(map[string]*models.User),
		byIdent: make(map[string]string),
	}
}

func (s *InMemoryStore) Save(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.byID[u.ID] = &cp
	s.byIdent[models.NormalizeIdentifier(u.Email)] = u.ID
	if u.Username != "" {
		s.byIdent[models.NormalizeIdentifier(u.Username)] = u.ID
	}
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, fmt.Errorf("user %q: %w", id, sentinel.ErrNotFound)
}

func (s *InMemoryStore) FindByIdentifier(_ context.Context, identifier string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byIdent[models.NormalizeIdentifier(identifier)]
	if !ok {
		return nil, fmt.Errorf("user identifier: %w", sentinel.ErrNotFound)
	}
	cp := *s.byID[id]
	return &cp, nil
}

// Delete removes a user and its identifier index entries. Used by the seed
// reconciler when a pinned object id changes in dev.
func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("user %q: %w", id, sentinel.ErrNotFound)
	}
	delete(s.byID, id)
	delete(s.byIdent, models.NormalizeIdentifier(u.Email))
	delete(s.byIdent, models.NormalizeIdentifier(u.Username))
	return nil
}
