// Package authcode persists one-time-use authorization codes.
//
// The store owns the only race in the auth core: two concurrent redemption
// attempts for the same code must yield exactly one success. The in-memory
// implementation serializes Consume under a single lock; the Redis
// implementation relies on an atomic GETDEL.
package authcode

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cohort/internal/idp/models"
	"cohort/pkg/platform/sentinel"
)

// translateCodeError converts domain errors from ValidateForConsume to
// sentinel errors per the store boundary contract.
func translateCodeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrCodeExpired):
		return fmt.Errorf("%v: %w", err, sentinel.ErrExpired)
	case errors.Is(err, models.ErrCodeAlreadyUsed):
		return fmt.Errorf("%v: %w", err, sentinel.ErrAlreadyUsed)
	default:
		return fmt.Errorf("%v: %w", err, sentinel.ErrInvalidState)
	}
}

// InMemoryStore stores authorization codes in memory for tests/dev.
type InMemoryStore struct {
	mu    sync.Mutex
	codes map[string]*models.AuthorizationCodeRecord
}

func New() *InMemoryStore {
	return &InMemoryStore{codes: make(map[string]*models.AuthorizationCodeRecord)}
}

func (s *InMemoryStore) Create(_ context.Context, record *models.AuthorizationCodeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[record.Code] = record
	return nil
}

// Consume atomically validates and marks the code as used. The validate and
// mutate steps run under one lock so a concurrent second redemption observes
// Used=true and fails with ErrAlreadyUsed.
func (s *InMemoryStore) Consume(_ context.Context, code, redirectURI, codeVerifier string, now time.Time) (*models.AuthorizationCodeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.codes[code]
	if !ok {
		return nil, fmt.Errorf("authorization code: %w", sentinel.ErrNotFound)
	}
	if err := record.ValidateForConsume(redirectURI, codeVerifier, now); err != nil {
		return nil, translateCodeError(err)
	}
	record.MarkUsed()
	cp := *record
	return &cp, nil
}

// DeleteByUserID removes all outstanding codes for a user. Used by the
// logout-time revocation path when enabled.
func (s *InMemoryStore) DeleteByUserID(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for code, record := range s.codes {
		if record.UserID == userID {
			delete(s.codes, code)
			deleted++
		}
	}
	return deleted, nil
}

// DeleteExpired removes codes past their TTL. Storage hygiene only;
// correctness never depends on it because Consume checks expiry itself.
func (s *InMemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for code, record := range s.codes {
		if record.ExpiresAt.Before(now) {
			delete(s.codes, code)
			deleted++
		}
	}
	return deleted, nil
}
