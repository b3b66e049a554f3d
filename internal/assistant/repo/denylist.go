package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/talksphere/server/internal/assistant/model"
	errx "github.com/talksphere/server/internal/core/error"
	logx "github.com/talksphere/server/pkg/logger"
)

// RedisTokenDenylist stores revoked JWT IDs with a TTL matching the token's remaining lifetime.
type RedisTokenDenylist struct {
	rdb redis.Cmdable
	now func() time.Time
}

func NewRedisTokenDenylist(rdb redis.Cmdable) *RedisTokenDenylist {
	return &RedisTokenDenylist{rdb: rdb, now: time.Now}
}

func (d *RedisTokenDenylist) key(tokenID string) string {
	return fmt.Sprintf("auth:revoked:%s", tokenID)
}

func (d *RedisTokenDenylist) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(d.now())
	if ttl <= 0 {
		// already expired, nothing to remember
		return nil
	}
	key := d.key(tokenID)
	if err := d.rdb.Set(ctx, key, 1, ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to revoke token")
		return errx.WrapRedis(err)
	}
	return nil
}

func (d *RedisTokenDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.rdb.Exists(ctx, d.key(tokenID)).Result()
	if err != nil {
		return false, errx.WrapRedis(err)
	}
	return n > 0, nil
}

var _ model.TokenDenylist = (*RedisTokenDenylist)(nil)
