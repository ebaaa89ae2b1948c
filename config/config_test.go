package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppConfigDefaults(t *testing.T) {
	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "http", cfg.Services)
	assert.Equal(t, 3, cfg.Worker.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Worker.BackoffBase)
	assert.Equal(t, 5*time.Minute, cfg.Recovery.Interval)
	assert.Equal(t, 10*time.Minute, cfg.Recovery.StuckTimeout)
	assert.Equal(t, 30*time.Second, cfg.Agent.StepTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Agent.RunTimeout)
}

func TestAppConfigFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("REDIS_URI", "redis.internal:6380")
	t.Setenv("SERVICES", "worker,recovery")
	t.Setenv("WORKER_MAX_ATTEMPTS", "5")
	t.Setenv("AGENT_CDP_URL", "http://browser:9222")

	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.URI)
	assert.Equal(t, 5, cfg.Worker.MaxAttempts)
	assert.Equal(t, "http://browser:9222", cfg.Agent.CDPURL)
	assert.False(t, cfg.IsHTTPServerEnabled())
	assert.True(t, cfg.IsWorkerEnabled())
	assert.True(t, cfg.IsRecoveryEnabled())
}

func TestParseServices(t *testing.T) {
	t.Run("single", func(t *testing.T) {
		services, err := ParseServices("http")
		require.NoError(t, err)
		assert.True(t, services[ServiceModeHTTP])
		assert.False(t, services[ServiceModeWorker])
	})

	t.Run("multiple with spaces", func(t *testing.T) {
		services, err := ParseServices(" http , worker ")
		require.NoError(t, err)
		assert.True(t, services[ServiceModeHTTP])
		assert.True(t, services[ServiceModeWorker])
	})

	t.Run("invalid name", func(t *testing.T) {
		_, err := ParseServices("http,scheduler")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid service name")
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ParseServices("")
		require.Error(t, err)
	})
}

func TestSanitizeClampsValues(t *testing.T) {
	cfg := AppConfig{
		Worker: WorkerConfig{
			MaxAttempts:    0,
			BackoffBase:    -time.Second,
			ReclaimMinIdle: time.Second,
		},
		Recovery: RecoveryConfig{Interval: 0, StuckTimeout: 0},
		Agent:    AgentConfig{StepTimeout: 0, RunTimeout: 0},
	}
	cfg.Sanitize()

	assert.Equal(t, 1, cfg.Worker.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Worker.BackoffBase)
	assert.Equal(t, 10*time.Second, cfg.Worker.ReclaimMinIdle)
	assert.Equal(t, time.Second, cfg.Recovery.Interval)
	assert.Equal(t, time.Minute, cfg.Recovery.StuckTimeout)
	assert.Equal(t, time.Second, cfg.Agent.StepTimeout)
	assert.GreaterOrEqual(t, cfg.Agent.RunTimeout, cfg.Agent.StepTimeout)
}
