package services

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Locker is a best-effort cross-instance mutex. Absence of a locker (nil)
// degrades to per-process guarantees only.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

type RedisLocker struct {
	RDB    *redis.Client
	Prefix string
}

func NewRedisLocker(rdb *redis.Client, prefix string) *RedisLocker {
	return &RedisLocker{RDB: rdb, Prefix: prefix}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.RDB.SetNX(ctx, l.Prefix+key, 1, ttl).Result()
}

func (l *RedisLocker) Unlock(ctx context.Context, key string) error {
	return l.RDB.Del(ctx, l.Prefix+key).Err()
}
