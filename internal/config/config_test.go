package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("LOCK_TTL", "")

	cfg := Load()

	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.LockTTL)
	assert.Equal(t, 15*time.Minute, cfg.ReconcileInterval)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("BLOB_S3_PATH_STYLE", "true")
	t.Setenv("RECONCILE_INTERVAL", "0s")

	cfg := Load()

	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "cache:6379", cfg.RedisAddr())
	assert.True(t, cfg.BlobS3PathStyle)
	assert.Equal(t, time.Duration(0), cfg.ReconcileInterval)
}
