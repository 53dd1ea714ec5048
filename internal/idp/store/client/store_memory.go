// Package client persists OAuth client registrations. Registrations are
// seeded at startup and effectively static afterwards.
package client

import (
	"context"
	"fmt"
	"sync"

	"cohort/internal/idp/models"
	"cohort/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	clients map[string]*models.Client
}

func New() *InMemoryStore {
	return &InMemoryStore{clients: make(map[string]*models.Client)}
}

func (s *InMemoryStore) Save(_ context.Context, c *models.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.clients[c.ClientID] = &cp
	return nil
}

func (s *InMemoryStore) FindByClientID(_ context.Context, clientID string) (*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.clients[clientID]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, fmt.Errorf("client %q: %w", clientID, sentinel.ErrNotFound)
}
