package infrastructure

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"user-query-service/internal/adapter/cache"
	"user-query-service/internal/adapter/db/postgres"
	"user-query-service/internal/config"
	domain "user-query-service/internal/domain/user"
)

func testConfig() *config.Config {
	return &config.Config{
		DB: config.DatabaseConfig{MaxOpenConns: 1, MaxIdleConns: 1},
		Logger: config.LoggerConfig{
			Level:            "debug",
			SlowQuerySeconds: 0.2,
		},
		Redis: config.RedisConfig{CacheTTL: 60},
	}
}

func TestOpenDatabase_MigratesSchema(t *testing.T) {
	db, err := openDatabase(sqlite.Open(":memory:"), testConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = CloseDatabase(db) })

	assert.True(t, db.Migrator().HasTable(&postgres.UserSchema{}))
	assert.True(t, db.Migrator().HasTable(&postgres.PrivilegeSchema{}))
}

func TestCloseDatabase_Nil(t *testing.T) {
	assert.NoError(t, CloseDatabase(nil))
}

func TestRedisClientAndRosterCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Redis.Host = mr.Host()
	cfg.Redis.Port = mr.Port()

	rdb, err := NewRedisClient(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	rosterCache := NewRosterCache(rdb, cfg, zaptest.NewLogger(t))
	require.NoError(t, rosterCache.Set(context.Background(), []domain.User{}))

	assert.Equal(t, 60.0, mr.TTL(cache.RosterKey).Seconds())
}
