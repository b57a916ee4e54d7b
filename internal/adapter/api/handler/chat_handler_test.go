package handler_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sulestate/internal/app"
	"sulestate/internal/domain/entity"
	"sulestate/internal/infrastructure/ratelimit"
)

func TestChatWithoutCompletionKey(t *testing.T) {
	s := newMemoryServer(t, nil)

	status, env := s.do(http.MethodPost, "/chat", map[string]interface{}{"message": "Hello"}, "")
	assert.Equal(t, http.StatusInternalServerError, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_CONFIGURED", env.Error.Code)
}

func TestChatTrimsHistoryToTenTurns(t *testing.T) {
	completer := &fakeCompleter{reply: "We have three villas available."}
	s := newMemoryServer(t, completer)

	history := make([]entity.ChatTurn, 0, 14)
	for i := 0; i < 14; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		history = append(history, entity.ChatTurn{Role: role, Content: fmt.Sprintf("turn %d", i)})
	}

	status, env := s.do(http.MethodPost, "/chat", map[string]interface{}{
		"message":             "Any villas?",
		"conversationHistory": history,
	}, "")
	require.Equal(t, http.StatusOK, status)
	var body struct {
		Reply string `json:"reply"`
	}
	decode(t, env, &body)
	assert.Equal(t, "We have three villas available.", body.Reply)

	require.Len(t, completer.turns, 1)
	sent := completer.turns[0]
	require.Len(t, sent, 11)
	assert.Equal(t, "turn 4", sent[0].Content)
	assert.Equal(t, "Any villas?", sent[10].Content)
}

func TestChatUpstreamFailureCarriesDetails(t *testing.T) {
	s := newMemoryServer(t, &fakeCompleter{err: fmt.Errorf("quota exceeded")})

	status, env := s.do(http.MethodPost, "/chat", map[string]interface{}{"message": "Hello"}, "")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "UPSTREAM_UNAVAILABLE", env.Error.Code)
	assert.Contains(t, env.Error.Details, "quota exceeded")
}

func TestChatIsRateLimited(t *testing.T) {
	infra := app.NewMemoryInfrastructure(nil, &fakeCompleter{reply: "ok"}, nil)
	infra.Limiter = ratelimit.NewRateLimiter(ratelimit.DefaultQuotas(1), time.Now)
	s := newServer(t, infra)

	status, _ := s.do(http.MethodPost, "/chat", map[string]interface{}{"message": "one"}, "")
	assert.Equal(t, http.StatusOK, status)

	status, env := s.do(http.MethodPost, "/chat", map[string]interface{}{"message": "two"}, "")
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "TOO_MANY_REQUESTS", env.Error.Code)
}

type visitorResult struct {
	MessageID string          `json:"messageId"`
	HandedOff bool            `json:"handedOff"`
	Reply     *entity.Message `json:"reply"`
	Fallback  string          `json:"fallback"`
}

func TestVisitorMessageAnsweredWhileAdminOffline(t *testing.T) {
	completer := &fakeCompleter{reply: "Our team will follow up shortly."}
	s := newMemoryServer(t, completer)
	session := s.createConversation("Alice", "alice@x.com")

	status, env := s.do(http.MethodPost, "/visitor-message", map[string]string{
		"conversationId": session.ConversationID,
		"message":        "Is the villa available?",
	}, "")
	require.Equal(t, http.StatusCreated, status)
	var result visitorResult
	decode(t, env, &result)
	assert.False(t, result.HandedOff)
	require.NotNil(t, result.Reply)
	assert.Equal(t, entity.SenderAI, result.Reply.Sender)

	_, env = s.do(http.MethodGet, "/messages?conversationId="+session.ConversationID, nil, "")
	var messages []entity.Message
	decode(t, env, &messages)
	require.Len(t, messages, 3)
	assert.Equal(t, entity.SenderUser, messages[1].Sender)
	assert.Equal(t, "Our team will follow up shortly.", messages[2].Text)
}

func TestVisitorMessageHandedOffWhileAdminOnline(t *testing.T) {
	completer := &fakeCompleter{reply: "unused"}
	s := newMemoryServer(t, completer)
	session := s.createConversation("Alice", "alice@x.com")

	status, _ := s.do(http.MethodPost, "/admin-status", map[string]bool{"isOnline": true}, "admin")
	require.Equal(t, http.StatusOK, status)

	status, env := s.do(http.MethodPost, "/visitor-message", map[string]string{
		"conversationId": session.ConversationID,
		"message":        "Hello?",
	}, "")
	require.Equal(t, http.StatusCreated, status)
	var result visitorResult
	decode(t, env, &result)
	assert.True(t, result.HandedOff)
	assert.Nil(t, result.Reply)
	assert.Empty(t, completer.turns)
}

func TestVisitorMessageFallsBackToApology(t *testing.T) {
	s := newMemoryServer(t, &fakeCompleter{err: fmt.Errorf("boom")})
	session := s.createConversation("Alice", "alice@x.com")

	_, env := s.do(http.MethodPost, "/visitor-message", map[string]string{
		"conversationId": session.ConversationID,
		"message":        "Hello?",
	}, "")
	var result visitorResult
	decode(t, env, &result)
	assert.Contains(t, result.Fallback, "info@sulestate.com")

	_, env = s.do(http.MethodGet, "/messages?conversationId="+session.ConversationID, nil, "")
	var messages []entity.Message
	decode(t, env, &messages)
	assert.Len(t, messages, 2)
}
