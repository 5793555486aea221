package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// counterStore is the part of the Redis client the allocator uses.
type counterStore interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// RedisAllocator uses INCR, which is atomic across every replica sharing
// the Redis instance.
type RedisAllocator struct {
	client    counterStore
	keyPrefix string
}

func NewRedisAllocator(client *redis.Client, keyPrefix string) *RedisAllocator {
	if keyPrefix == "" {
		keyPrefix = "lims:seq"
	}
	return &RedisAllocator{client: client, keyPrefix: keyPrefix}
}

func (a *RedisAllocator) key(kind Kind) string {
	return a.keyPrefix + ":" + string(kind)
}

func (a *RedisAllocator) Next(ctx context.Context, kind Kind) (int64, error) {
	v, err := a.client.Incr(ctx, a.key(kind)).Result()
	if err != nil {
		return 0, fmt.Errorf("allocate %s id: %w", kind, err)
	}
	return v, nil
}

// Seed sets the counter to floor unless it already exists. Used when moving
// from the Postgres allocator so previously issued identifiers are skipped.
func (a *RedisAllocator) Seed(ctx context.Context, kind Kind, floor int64) (bool, error) {
	ok, err := a.client.SetNX(ctx, a.key(kind), floor, 0).Result()
	if err != nil {
		return false, fmt.Errorf("seed %s sequence: %w", kind, err)
	}
	return ok, nil
}

// NewRedisClient connects to url (redis://host:port/db) and checks it with PING.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}
