package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"SERVER_PORT", "MODEL_PATH", "MODEL_FEATURE_SET", "THINQ_TIMEOUT", "MQTT_ENABLED", "CLICKHOUSE_ENABLED"} {
		t.Setenv(key, "x")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:5000", cfg.Server.Addr())
	assert.Equal(t, "service_age", cfg.Model.FeatureSet)
	assert.Equal(t, "https://api-kic.lgthinq.com", cfg.ThinQ.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.ThinQ.Timeout)
	assert.Equal(t, int64(42), cfg.Training.Seed)
	assert.Equal(t, 5, cfg.Training.Folds)
	assert.False(t, cfg.ClickHouse.Enabled)
	assert.False(t, cfg.MQTT.Enabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "8080")
	t.Setenv("MODEL_PATH", "/tmp/model.bin")
	t.Setenv("THINQ_TIMEOUT", "3s")
	t.Setenv("MQTT_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "/tmp/model.bin", cfg.Model.ArtifactPath)
	assert.Equal(t, 3*time.Second, cfg.ThinQ.Timeout)
	assert.True(t, cfg.MQTT.Enabled)
}

func TestValidateRejectsBadPort(t *testing.T) {
	t.Setenv("SERVER_PORT", "70000")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SERVER_PORT")
}
