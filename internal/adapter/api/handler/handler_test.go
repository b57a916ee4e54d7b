package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sulestate/internal/app"
	"sulestate/internal/domain/entity"
	"sulestate/internal/domain/service"
	"sulestate/pkg/config"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Field   string `json:"field"`
		Details string `json:"details"`
	} `json:"error"`
}

type fakeCompleter struct {
	reply string
	err   error

	mu    sync.Mutex
	turns [][]entity.ChatTurn
}

func (f *fakeCompleter) Complete(ctx context.Context, systemPrompt string, turns []entity.ChatTurn) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns = append(f.turns, turns)
	return f.reply, f.err
}

type fakeObjectStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeObjectStorage) Upload(ctx context.Context, file io.Reader, size int64, contentType, folder string) (*service.UploadResult, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	name := folder + "/avatar.png"
	f.objects[name] = data
	return &service.UploadResult{URL: "https://storage.test/" + name, ObjectName: name, Size: int64(len(data))}, nil
}

func (f *fakeObjectStorage) Delete(ctx context.Context, objectName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, objectName)
	return nil
}

func (f *fakeObjectStorage) Close() error {
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Environment:  "test",
		CORSOrigins:  []string{"*"},
		ContactEmail: "info@sulestate.com",
		JWTSecret:    "test-secret",
		SessionTTL:   time.Hour,
	}
}

type server struct {
	t         *testing.T
	container *app.Container
}

func newServer(t *testing.T, infra *app.Infrastructure) *server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return &server{t: t, container: app.NewContainer(ctx, testConfig(), infra)}
}

func newMemoryServer(t *testing.T, completer service.TextCompleter) *server {
	return newServer(t, app.NewMemoryInfrastructure(nil, completer, nil))
}

func (s *server) do(method, target string, body interface{}, adminToken string) (int, envelope) {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if adminToken != "" {
		req.Header.Set("Authorization", "Bearer "+adminToken)
	}
	return s.serve(req)
}

func (s *server) serve(req *http.Request) (int, envelope) {
	s.t.Helper()
	rec := httptest.NewRecorder()
	s.container.Echo.ServeHTTP(rec, req)

	var env envelope
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func decode(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	require.True(t, env.Success, "expected success envelope")
	require.NoError(t, json.Unmarshal(env.Data, v))
}

type sessionData struct {
	ConversationID string    `json:"conversationId"`
	UserName       string    `json:"userName"`
	UserEmail      string    `json:"userEmail"`
	SessionToken   string    `json:"sessionToken"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

func (s *server) createConversation(name, email string) sessionData {
	s.t.Helper()
	status, env := s.do(http.MethodPost, "/create-conversation", map[string]string{"userName": name, "userEmail": email}, "")
	require.Equal(s.t, http.StatusCreated, status)
	var session sessionData
	decode(s.t, env, &session)
	return session
}
