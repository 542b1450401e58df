package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedSessionKeyPrefix = "session:revoked:"

// SessionRepository keeps the ids of session tokens that were logged out before expiry.
type SessionRepository interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type redisSessionRepository struct {
	rdb *redis.Client
}

func NewRedisSessionRepository(rdb *redis.Client) SessionRepository {
	return &redisSessionRepository{rdb: rdb}
}

// Revoke stores the id until the token would have expired anyway. A non-positive ttl
// means the token is already dead and nothing is stored.
func (r *redisSessionRepository) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" {
		return errors.New("redisSessionRepository.Revoke: empty token id")
	}
	if ttl <= 0 {
		return nil
	}
	if err := r.rdb.Set(ctx, revokedSessionKeyPrefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("redisSessionRepository.Revoke: %w", err)
	}
	return nil
}

func (r *redisSessionRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	n, err := r.rdb.Exists(ctx, revokedSessionKeyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("redisSessionRepository.IsRevoked: %w", err)
	}
	return n > 0, nil
}
