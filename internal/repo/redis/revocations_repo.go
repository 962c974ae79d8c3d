package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "videochat:revoked:"

// RevocationsRepo keeps one key per revoked token id. Keys expire together
// with the token, so the set never outgrows the live sessions.
type RevocationsRepo struct {
	rdb goredis.Cmdable
	now func() time.Time
}

func NewRevocationsRepo(rdb goredis.Cmdable) *RevocationsRepo {
	return &RevocationsRepo{rdb: rdb, now: time.Now}
}

func (r *RevocationsRepo) Revoke(ctx context.Context, tokenID, userID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		// already expired; the codec rejects it anyway
		return nil
	}

	if err := r.rdb.Set(ctx, keyPrefix+tokenID, userID, ttl).Err(); err != nil {
		return fmt.Errorf("redis set revoked token: %w", err)
	}

	return nil
}

func (r *RevocationsRepo) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.rdb.Exists(ctx, keyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists revoked token: %w", err)
	}

	return n > 0, nil
}
