package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("ADMIN_UIDS", "")
	t.Setenv("AI_MODEL", "")
	t.Setenv("MINIO_ENDPOINT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, 30*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 10, cfg.ChatRateLimit)
	assert.Empty(t, cfg.AdminUIDs)
	assert.Empty(t, cfg.AIModel)
	assert.Empty(t, cfg.MinioEndpoint)
}

func TestLoadParsesListsDurationsAndBools(t *testing.T) {
	t.Setenv("ADMIN_UIDS", " uid-1, ,uid-2 ")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("AUTH_DISABLED", "true")
	t.Setenv("CHAT_RATE_LIMIT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"uid-1", "uid-2"}, cfg.AdminUIDs)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.AuthDisabled)
	assert.Equal(t, 10, cfg.ChatRateLimit)
}
