package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "/tmp/harbor-datasets", cfg.Storage.DatasetsRoot)
	assert.Equal(t, 10*time.Second, cfg.Delivery.PushTimeout)
	assert.Equal(t, 64, cfg.Watcher.MinBatchUploadSize)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HARBOR_PORT", "9999")
	t.Setenv("HARBOR_DATASETS_ROOT", "/var/lib/harbor")
	t.Setenv("HARBOR_PUSH_TIMEOUT", "3s")
	t.Setenv("HARBOR_MIN_BATCH_UPLOAD_SIZE", "128")
	t.Setenv("HARBOR_RATE_LIMIT_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, "/var/lib/harbor", cfg.Storage.DatasetsRoot)
	assert.Equal(t, 3*time.Second, cfg.Delivery.PushTimeout)
	assert.Equal(t, 128, cfg.Watcher.MinBatchUploadSize)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoadUsesDefaultsWhenUnset(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 60*time.Second, cfg.Watcher.Timeout)
}
