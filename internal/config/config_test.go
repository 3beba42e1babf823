package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 10*time.Minute, cfg.IdleTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.AIDelay)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RACHEL_ADDR", ":9999")
	t.Setenv("RACHEL_IDLE_TIMEOUT", "30s")
	t.Setenv("RACHEL_AI_DELAY", "0")
	t.Setenv("RACHEL_LOG_LEVEL", "debug")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, 30*time.Second, cfg.IdleTimeout)
	assert.Equal(t, time.Duration(0), cfg.AIDelay)
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
	assert.Equal(t, 3, cfg.RedisDB)
}

func TestLoadBadDuration(t *testing.T) {
	t.Setenv("RACHEL_IDLE_TIMEOUT", "soon")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadBadLogLevel(t *testing.T) {
	t.Setenv("RACHEL_LOG_LEVEL", "chatty")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "three")
	_, err := Load()
	assert.Error(t, err)
}
