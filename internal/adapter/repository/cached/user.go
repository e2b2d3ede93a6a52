package cached

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"user-query-service/internal/adapter/cache"
	"user-query-service/internal/adapter/metrics"
	domain "user-query-service/internal/domain/user"
	"user-query-service/internal/usecase/user"
)

// CachedUserRepository implements user.Repository with roster caching.
// It wraps a persistent repository (DB) and keeps a snapshot of the whole
// roster in the cache for the query operations.
type CachedUserRepository struct {
	dbRepo user.Repository
	cache  cache.RosterCache
	log    *zap.Logger
	group  singleflight.Group
}

// NewCachedUserRepository creates a new instance of CachedUserRepository.
// A nil cache disables caching.
func NewCachedUserRepository(dbRepo user.Repository, cache cache.RosterCache, log *zap.Logger) *CachedUserRepository {
	return &CachedUserRepository{
		dbRepo: dbRepo,
		cache:  cache,
		log:    log,
	}
}

var _ user.Repository = (*CachedUserRepository)(nil)

// Create stores the user in DB and invalidates the roster snapshot.
func (r *CachedUserRepository) Create(ctx context.Context, u *domain.User) (int64, error) {
	id, err := r.dbRepo.Create(ctx, u)
	if err != nil {
		return 0, err
	}

	r.invalidate(ctx, "create", id)
	return id, nil
}

// GetByID delegates to the DB repository.
func (r *CachedUserRepository) GetByID(ctx context.Context, id int64) (*domain.Record, error) {
	return r.dbRepo.GetByID(ctx, id)
}

// Delete deletes the user from DB and invalidates the roster snapshot.
func (r *CachedUserRepository) Delete(ctx context.Context, id int64) (int64, error) {
	deletedID, err := r.dbRepo.Delete(ctx, id)
	if err != nil {
		return 0, err
	}

	r.invalidate(ctx, "delete", id)
	return deletedID, nil
}

// List delegates to the DB repository.
func (r *CachedUserRepository) List(ctx context.Context, page, limit int64) ([]domain.Record, int64, error) {
	return r.dbRepo.List(ctx, page, limit)
}

// All returns the roster using the Cache-Aside pattern.
func (r *CachedUserRepository) All(ctx context.Context) ([]domain.User, error) {
	if r.cache == nil {
		return r.dbRepo.All(ctx)
	}

	cachedUsers, err := r.cache.Get(ctx)
	switch {
	case err != nil:
		metrics.RosterCacheTotal.WithLabelValues("error").Inc()
		r.log.Warn("cache get error, falling back to database", zap.Error(err))
	case cachedUsers != nil:
		metrics.RosterCacheTotal.WithLabelValues("hit").Inc()
		r.log.Debug("roster retrieved from cache", zap.Int("users", len(cachedUsers)))
		return cachedUsers, nil
	default:
		metrics.RosterCacheTotal.WithLabelValues("miss").Inc()
	}

	// Cache miss - use single-flight to prevent stampede
	result, err, shared := r.group.Do(cache.RosterKey, func() (any, error) {
		// Double-check cache in case another request populated it while we were waiting
		if users, err := r.cache.Get(ctx); err == nil && users != nil {
			r.log.Debug("roster retrieved from cache after single-flight wait")
			return users, nil
		}

		// Only one request hits database
		users, err := r.dbRepo.All(ctx)
		if err != nil {
			return nil, err
		}

		if err := r.cache.Set(ctx, users); err != nil {
			r.log.Warn("failed to cache roster", zap.Int("users", len(users)), zap.Error(err))
		}

		return users, nil
	})
	if err != nil {
		return nil, err
	}

	users := result.([]domain.User)
	if shared {
		// Callers must not share backing arrays
		users = cloneUsers(users)
	}
	return users, nil
}

func (r *CachedUserRepository) invalidate(ctx context.Context, op string, id int64) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Invalidate(ctx); err != nil {
		r.log.Warn("failed to invalidate roster cache", zap.String("op", op), zap.Int64("id", id), zap.Error(err))
	}
}

func cloneUsers(users []domain.User) []domain.User {
	if users == nil {
		return nil
	}
	out := make([]domain.User, len(users))
	for i := range users {
		out[i] = users[i].Clone()
	}
	return out
}
