package authcode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"cohort/internal/idp/models"
	"cohort/pkg/platform/sentinel"
)

const codeKeyPrefix = "authcode:"

// RedisStore is the distributed implementation for multi-instance
// deployments. Single-use is enforced with GETDEL: whichever redemption
// attempt wins the GETDEL owns the code; everyone else sees ErrNotFound.
// A redemption that fails validation after the GETDEL burns the code, which
// is the safe direction (a code presented with a bad verifier is treated as
// compromised).
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Create(ctx context.Context, record *models.AuthorizationCodeRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal authorization code: %w", err)
	}
	ttl := time.Until(record.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("authorization code already expired: %w", sentinel.ErrInvalidState)
	}
	key := codeKeyPrefix + record.Code
	if err := s.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("store authorization code: %w", err)
	}
	return nil
}

func (s *RedisStore) Consume(ctx context.Context, code, redirectURI, codeVerifier string, now time.Time) (*models.AuthorizationCodeRecord, error) {
	key := codeKeyPrefix + code
	payload, err := s.client.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// Either never issued, expired out of Redis, or already consumed:
		// indistinguishable by design.
		return nil, fmt.Errorf("authorization code: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch authorization code: %w", err)
	}

	var record models.AuthorizationCodeRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return nil, fmt.Errorf("unmarshal authorization code: %w", err)
	}
	if err := record.ValidateForConsume(redirectURI, codeVerifier, now); err != nil {
		return nil, translateCodeError(err)
	}
	record.MarkUsed()
	return &record, nil
}

// DeleteByUserID scans for the user's outstanding codes. O(keys) but the
// keyspace is tiny (codes live 120 seconds).
func (s *RedisStore) DeleteByUserID(ctx context.Context, userID string) (int, error) {
	deleted := 0
	iter := s.client.Scan(ctx, 0, codeKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		payload, err := s.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return deleted, fmt.Errorf("scan authorization codes: %w", err)
		}
		var record models.AuthorizationCodeRecord
		if err := json.Unmarshal([]byte(payload), &record); err != nil {
			continue
		}
		if record.UserID == userID {
			if s.client.Del(ctx, key).Err() == nil {
				deleted++
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("scan authorization codes: %w", err)
	}
	return deleted, nil
}

// DeleteExpired is a no-op for Redis: key TTLs handle expiry.
func (s *RedisStore) DeleteExpired(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}
