package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the durable backend. Expiry is native: every key is
// written with a TTL and Redis reclaims it on its own.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) SetRefresh(ctx context.Context, userID, token string, ttl time.Duration) error {
	if err := s.client.Set(ctx, refreshKey(userID), token, ttl).Err(); err != nil {
		return fmt.Errorf("tokenstore: set refresh: %w", err)
	}
	return nil
}

func (s *RedisStore) GetRefresh(ctx context.Context, userID string) (string, error) {
	val, err := s.client.Get(ctx, refreshKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("tokenstore: get refresh: %w", err)
	}
	return val, nil
}

func (s *RedisStore) DeleteRefresh(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, refreshKey(userID)).Err(); err != nil {
		return fmt.Errorf("tokenstore: delete refresh: %w", err)
	}
	return nil
}

func (s *RedisStore) Blacklist(ctx context.Context, token string, ttl time.Duration) error {
	if err := s.client.Set(ctx, blacklistKey(token), "true", ttl).Err(); err != nil {
		return fmt.Errorf("tokenstore: blacklist: %w", err)
	}
	return nil
}

func (s *RedisStore) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	err := s.client.Get(ctx, blacklistKey(token)).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("tokenstore: blacklist check: %w", err)
	}
	return true, nil
}
