package infrastructure

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"user-query-service/internal/adapter/cache"
	"user-query-service/internal/config"
	redisclient "user-query-service/pkg/redis"
)

// NewRedisClient creates a new Redis client with configuration
func NewRedisClient(ctx context.Context, cfg *config.Config, l *zap.Logger) (*redisclient.Client, error) {
	redisConfig := redisclient.Config{
		Addr:        cfg.Redis.Addr(),
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		MaxRetries:  cfg.Redis.MaxRetries,
		PoolSize:    cfg.Redis.PoolSize,
		MinIdleConn: cfg.Redis.MinIdleConn,
	}

	rdb, err := redisclient.NewClient(ctx, redisConfig, l)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return rdb, nil
}

// NewRosterCache creates the Redis-backed roster snapshot cache
func NewRosterCache(rdb *redisclient.Client, cfg *config.Config, l *zap.Logger) *cache.RedisRosterCache {
	ttl := time.Duration(cfg.Redis.CacheTTL) * time.Second

	l.Info("roster cache configured", zap.Duration("ttl", ttl))

	return cache.NewRedisRosterCache(rdb.Client, ttl, l)
}
