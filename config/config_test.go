package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()
	assert.Equal(t, StateStoreRedis, cfg.StateStore)
	assert.Equal(t, SongSourceMySQL, cfg.SongSource)
	assert.Equal(t, 5*time.Second, cfg.CheckpointInterval)
	assert.Equal(t, "queuefm:audio_state", cfg.StateKey)
	assert.Equal(t, 1.0, cfg.DefaultVolume)
	assert.Equal(t, 10*time.Second, cfg.CatalogTimeout)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("STATE_STORE", StateStoreMySQL)
	t.Setenv("CHECKPOINT_INTERVAL", "2s")
	t.Setenv("DEFAULT_VOLUME", "0.5")
	t.Setenv("AUDIO_ENABLED", "false")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("SONG_CACHE_TTL", "0s")
	t.Setenv("CATALOG_TIMEOUT", "3s")

	cfg := FromEnv()
	assert.Equal(t, StateStoreMySQL, cfg.StateStore)
	assert.Equal(t, 2*time.Second, cfg.CheckpointInterval)
	assert.Equal(t, 0.5, cfg.DefaultVolume)
	assert.False(t, cfg.AudioEnabled)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Zero(t, cfg.SongCacheTTL)
	assert.Equal(t, 3*time.Second, cfg.CatalogTimeout)
}

// 无法解析的值回退到默认值
func TestFromEnvInvalidValues(t *testing.T) {
	t.Setenv("CHECKPOINT_INTERVAL", "soon")
	t.Setenv("REDIS_DB", "x")
	t.Setenv("MINIO_USE_SSL", "maybe")

	cfg := FromEnv()
	assert.Equal(t, 5*time.Second, cfg.CheckpointInterval)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.False(t, cfg.MinioUseSSL)
}
