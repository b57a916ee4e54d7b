package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("alice@x.com"))
	assert.True(t, IsValidEmail(" a@b.co "))
	assert.False(t, IsValidEmail("not-an-email"))
	assert.False(t, IsValidEmail("a@b"))
	assert.False(t, IsValidEmail("a b@c.com"))
	assert.False(t, IsValidEmail(""))
}

func TestPresenceOnlineAtUsesFreshnessNotFlag(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	stale := &Presence{IsOnline: true, LastSeen: now.Add(-6 * time.Minute)}
	assert.False(t, stale.OnlineAt(now))

	boundary := &Presence{IsOnline: true, LastSeen: now.Add(-PresenceWindow)}
	assert.False(t, boundary.OnlineAt(now))

	fresh := &Presence{IsOnline: false, LastSeen: now.Add(-4 * time.Minute)}
	assert.True(t, fresh.OnlineAt(now))

	var absent *Presence
	assert.False(t, absent.OnlineAt(now))
}

func TestChatSettingsWithDefaults(t *testing.T) {
	s := ChatSettings{Title: "Partner"}.WithDefaults()

	assert.Equal(t, DefaultDisplayName, s.DisplayName)
	assert.Equal(t, "Partner", s.Title)
	assert.Equal(t, DefaultAvatarURL, s.AvatarURL)
}

func TestConversationMatches(t *testing.T) {
	c := &Conversation{UserName: "Alice", UserEmail: "alice@x.com", LastMessage: "Is the villa available?"}

	assert.True(t, c.Matches(""))
	assert.True(t, c.Matches("ALI"))
	assert.True(t, c.Matches("villa"))
	assert.False(t, c.Matches("bob"))
}

func TestMessageTurnRoles(t *testing.T) {
	assert.Equal(t, "user", (&Message{Sender: SenderUser}).Turn().Role)
	assert.Equal(t, "assistant", (&Message{Sender: SenderAdmin}).Turn().Role)
	assert.Equal(t, "assistant", (&Message{Sender: SenderAI}).Turn().Role)
}
