package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	domain "user-query-service/internal/domain/user"
)

// RosterKey is the Redis key holding the cached roster snapshot.
const RosterKey = "roster:v1"

// RosterCache defines the interface for caching the whole user roster.
type RosterCache interface {
	// Get returns the cached roster.
	// Returns nil if nothing is cached; an empty roster is returned as an empty slice.
	Get(ctx context.Context) ([]domain.User, error)

	// Set stores the roster with the configured TTL.
	Set(ctx context.Context, users []domain.User) error

	// Invalidate drops the cached roster.
	Invalidate(ctx context.Context) error
}

// RedisRosterCache implements RosterCache using Redis as the backing store.
type RedisRosterCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisRosterCache creates a new Redis-backed roster cache.
// A zero ttl keeps the snapshot until it is invalidated.
func NewRedisRosterCache(client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisRosterCache {
	return &RedisRosterCache{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

// Get retrieves the roster snapshot from Redis.
func (c *RedisRosterCache) Get(ctx context.Context) ([]domain.User, error) {
	data, err := c.client.Get(ctx, RosterKey).Bytes()
	if errors.Is(err, redis.Nil) {
		c.log.Debug("roster cache miss")
		return nil, nil
	}
	if err != nil {
		c.log.Error("failed to get roster from cache", zap.Error(err))
		return nil, err
	}

	users := []domain.User{}
	if err := json.Unmarshal(data, &users); err != nil {
		c.log.Error("failed to unmarshal cached roster", zap.Error(err))
		return nil, err
	}

	c.log.Debug("roster cache hit", zap.Int("users", len(users)))
	return users, nil
}

// Set stores the roster snapshot in Redis with TTL.
func (c *RedisRosterCache) Set(ctx context.Context, users []domain.User) error {
	if users == nil {
		return fmt.Errorf("cannot cache nil roster")
	}

	data, err := json.Marshal(users)
	if err != nil {
		c.log.Error("failed to marshal roster for cache", zap.Error(err))
		return err
	}

	if err := c.client.Set(ctx, RosterKey, data, c.ttl).Err(); err != nil {
		c.log.Error("failed to set roster cache", zap.Error(err))
		return err
	}

	c.log.Debug("cached roster", zap.Int("users", len(users)), zap.Duration("ttl", c.ttl))
	return nil
}

// Invalidate removes the roster snapshot from Redis.
func (c *RedisRosterCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, RosterKey).Err(); err != nil {
		c.log.Error("failed to invalidate roster cache", zap.Error(err))
		return err
	}

	c.log.Debug("roster cache invalidated")
	return nil
}
