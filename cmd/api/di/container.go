package di

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"user-query-service/cmd/api/infrastructure"
	"user-query-service/internal/adapter/db/postgres"
	ginhandler "user-query-service/internal/adapter/gin/handler"
	ginmiddleware "user-query-service/internal/adapter/gin/middleware"
	"user-query-service/internal/adapter/grpc/middleware"
	"user-query-service/internal/adapter/repository/cached"
	"user-query-service/internal/config"
	"user-query-service/internal/usecase/query"
	"user-query-service/internal/usecase/user"
	redisclient "user-query-service/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config         *config.Config
	Logger         *zap.Logger
	DB             *gorm.DB
	RedisClient    *redisclient.Client
	UserUC         user.Usecase
	RateLimiter    *middleware.RateLimiter
	GinRateLimiter ginmiddleware.TokenBucketConfig
	GinHandler     *ginhandler.UserHandler
}

// NewContainer creates and initializes all application dependencies
func NewContainer(ctx context.Context, cfg *config.Config, l *zap.Logger) (*Container, error) {
	// Validate configuration before initializing any dependencies
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	db, err := infrastructure.NewDatabase(cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	rdb, err := infrastructure.NewRedisClient(ctx, cfg, l)
	if err != nil {
		_ = infrastructure.CloseDatabase(db)
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}

	return build(cfg, l, db, rdb), nil
}

// build wires the adapters and use cases on top of opened infrastructure
func build(cfg *config.Config, l *zap.Logger, db *gorm.DB, rdb *redisclient.Client) *Container {
	rosterCache := infrastructure.NewRosterCache(rdb, cfg, l)

	dbRepo := postgres.NewUserRepoPG(db, l)
	repo := cached.NewCachedUserRepository(dbRepo, rosterCache, l)

	userUC := user.New(repo, query.New(l), l)

	rateLimiter := middleware.NewRateLimiter(
		rdb.Client,
		middleware.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			WindowSeconds:     cfg.RateLimit.WindowSeconds,
			Enabled:           cfg.RateLimit.Enabled,
			TrustedProxies:    cfg.RateLimit.TrustedProxies,
		},
		l,
	)

	return &Container{
		Config:      cfg,
		Logger:      l,
		DB:          db,
		RedisClient: rdb,
		UserUC:      userUC,
		RateLimiter: rateLimiter,
		GinRateLimiter: ginmiddleware.TokenBucketConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstCapacity:     cfg.RateLimit.BurstCapacity,
			Enabled:           cfg.RateLimit.Enabled,
			TrustedProxies:    cfg.RateLimit.TrustedProxies,
		},
		GinHandler: ginhandler.NewUserHandler(userUC, l),
	}
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	var errs []error

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	if c.DB != nil {
		if err := infrastructure.CloseDatabase(c.DB); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	return errors.Join(errs...)
}
