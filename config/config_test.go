package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-queue/utils"
)

func TestLoad_Defaults(t *testing.T) {
	utils.InitLogger("warn")

	cfg, err := Load("testdata/missing.env")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, 2*time.Second, cfg.Queue.CleaningDelay)
	assert.True(t, cfg.Queue.WaitTimerUpdater)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL())
}

func TestLoad_Environment(t *testing.T) {
	utils.InitLogger("warn")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("QUEUE_CLEANING_DELAY", "500ms")
	t.Setenv("QUEUE_WAIT_TIMER_UPDATER", "false")
	t.Setenv("JWT_EXPIRE_HOURS", "2")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load("testdata/missing.env")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 500*time.Millisecond, cfg.Queue.CleaningDelay)
	assert.False(t, cfg.Queue.WaitTimerUpdater)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL())
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestInitDB_SQLite(t *testing.T) {
	cfg := &Config{}
	cfg.DB.Driver = "sqlite"
	cfg.DB.DSN = "file::memory:"

	db, err := InitDB(cfg)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)

	cfg.DB.Driver = "postgres"
	_, err = InitDB(cfg)
	assert.Error(t, err)
}
