package storage

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/nkitajim/task-collabo/domain"
)

const boardKeyPrefix = "board-full:"

// BoardCache caches the full-board projection in Redis. Mutating handlers
// call Invalidate after every committed change so readers never see a
// projection older than the cache TTL plus one mutation.
type BoardCache struct {
	*Store
	redis *redis.Client
	ttl   time.Duration
}

// NewBoardCache wraps the store with a Redis-backed cache for BoardFull.
func NewBoardCache(base *Store, client *redis.Client, ttl time.Duration) *BoardCache {
	if base == nil {
		panic("storage.NewBoardCache: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &BoardCache{Store: base, redis: client, ttl: ttl}
}

func (c *BoardCache) BoardFull(ctx context.Context, boardID string) (domain.BoardFull, error) {
	if data, err := c.redis.Get(ctx, boardKeyPrefix+boardID).Bytes(); err == nil {
		var full domain.BoardFull
		if err := sonic.Unmarshal(data, &full); err == nil {
			return full, nil
		}
		// corrupt entry, fall through to the store
	}

	full, err := c.Store.BoardFull(ctx, boardID)
	if err != nil {
		return domain.BoardFull{}, err
	}
	if data, err := sonic.Marshal(full); err == nil {
		// cache failures are not load-bearing
		_ = c.redis.Set(ctx, boardKeyPrefix+boardID, data, c.ttl).Err()
	}
	return full, nil
}

// Invalidate drops the cached projection for a board.
func (c *BoardCache) Invalidate(ctx context.Context, boardID string) {
	_ = c.redis.Del(ctx, boardKeyPrefix+boardID).Err()
}
