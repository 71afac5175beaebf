package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// UpdateDeduplicator drops Telegram updates that were already delivered, e.g.
// after a webhook retry or a polling restart. Backed by redis SetNX with a
// TTL so keys expire on their own.
type UpdateDeduplicator struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewUpdateDeduplicator(rdb *redis.Client, ttl time.Duration) *UpdateDeduplicator {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &UpdateDeduplicator{redis: rdb, ttl: ttl}
}

// MarkFirst reports whether this update id is seen for the first time.
func (d *UpdateDeduplicator) MarkFirst(ctx context.Context, updateID int64) (bool, error) {
	key := fmt.Sprintf("relaybot:update:%d", updateID)
	ok, err := d.redis.SetNX(ctx, key, "1", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe setnx: %w", err)
	}
	return ok, nil
}
