package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"sulestate/internal/app"
	"sulestate/internal/domain/entity"
	"sulestate/internal/domain/service"
	"sulestate/pkg/config"
)

type fakeCompleter struct {
	reply string
	err   error

	mu    sync.Mutex
	calls int
}

func (f *fakeCompleter) Complete(ctx context.Context, systemPrompt string, turns []entity.ChatTurn) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.reply, f.err
}

func (f *fakeCompleter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type testServer struct {
	api   *API
	infra *app.Infrastructure
	url   string
}

func newTestServer(t *testing.T, completer *fakeCompleter) *testServer {
	t.Helper()
	return newWrappedTestServer(t, completer, nil)
}

// newWrappedTestServer serves the container through wrap when it is set.
func newWrappedTestServer(t *testing.T, completer *fakeCompleter, wrap func(http.Handler) http.Handler) *testServer {
	t.Helper()
	var textCompleter service.TextCompleter
	if completer != nil {
		textCompleter = completer
	}
	infra := app.NewMemoryInfrastructure(nil, textCompleter, nil)
	ctx, cancel := context.WithCancel(context.Background())
	container := app.NewContainer(ctx, &config.Config{
		Environment:  "test",
		CORSOrigins:  []string{"*"},
		ContactEmail: "info@sulestate.com",
		JWTSecret:    "test-secret",
		SessionTTL:   time.Hour,
	}, infra)
	var h http.Handler = container.Echo
	if wrap != nil {
		h = wrap(container.Echo)
	}
	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return &testServer{
		api:   NewAPI(srv.URL, WithAdminToken("admin")),
		infra: infra,
		url:   srv.URL,
	}
}

type recorder struct {
	mu            sync.Mutex
	notifications []Notification
}

func record(n *Notifier) *recorder {
	r := &recorder{}
	n.Subscribe(func(notification Notification) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.notifications = append(r.notifications, notification)
	})
	return r
}

func (r *recorder) all() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notifications...)
}

func senders(messages []entity.Message) []string {
	result := make([]string, 0, len(messages))
	for _, m := range messages {
		result = append(result, m.Sender)
	}
	return result
}
