package handler_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sulestate/internal/domain/entity"
)

type statusData struct {
	IsOnline bool       `json:"isOnline"`
	LastSeen *time.Time `json:"lastSeen"`
}

func TestAdminStatusHeartbeat(t *testing.T) {
	s := newMemoryServer(t, nil)

	status, env := s.do(http.MethodGet, "/admin-status", nil, "")
	require.Equal(t, http.StatusOK, status)
	var presence statusData
	decode(t, env, &presence)
	assert.False(t, presence.IsOnline)
	assert.Nil(t, presence.LastSeen)

	status, _ = s.do(http.MethodPost, "/admin-status", map[string]bool{"isOnline": true}, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env = s.do(http.MethodPost, "/admin-status", map[string]interface{}{}, "admin")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "isOnline", env.Error.Field)

	status, _ = s.do(http.MethodPost, "/admin-status", map[string]bool{"isOnline": true}, "admin")
	require.Equal(t, http.StatusOK, status)

	_, env = s.do(http.MethodGet, "/admin-status", nil, "")
	decode(t, env, &presence)
	assert.True(t, presence.IsOnline)
	require.NotNil(t, presence.LastSeen)
}

func TestAdminSettingsDefaultsAndUpdate(t *testing.T) {
	s := newMemoryServer(t, nil)

	status, env := s.do(http.MethodGet, "/admin-settings", nil, "")
	require.Equal(t, http.StatusOK, status)
	var settings entity.ChatSettings
	decode(t, env, &settings)
	assert.Equal(t, entity.DefaultDisplayName, settings.DisplayName)
	assert.Equal(t, entity.DefaultTitle, settings.Title)
	assert.Equal(t, entity.DefaultAvatarURL, settings.AvatarURL)

	status, _ = s.do(http.MethodPost, "/admin-settings", map[string]string{"displayName": "Maria"}, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env = s.do(http.MethodPost, "/admin-settings", map[string]string{"avatarUrl": "not a url"}, "admin")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "avatarUrl", env.Error.Field)

	status, _ = s.do(http.MethodPost, "/admin-settings", map[string]string{"displayName": "Maria"}, "admin")
	require.Equal(t, http.StatusOK, status)

	_, env = s.do(http.MethodGet, "/admin-settings", nil, "")
	decode(t, env, &settings)
	assert.Equal(t, "Maria", settings.DisplayName)
	assert.Equal(t, entity.DefaultTitle, settings.Title)
}
