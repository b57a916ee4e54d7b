package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	memrepo "sulestate/internal/adapter/repository"
	"sulestate/internal/domain/entity"
	"sulestate/internal/domain/repository"
)

// testClock is a settable clock shared by the store and the usecases.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeCompleter struct {
	reply string
	err   error

	mu    sync.Mutex
	calls [][]entity.ChatTurn
}

func (f *fakeCompleter) Complete(ctx context.Context, systemPrompt string, turns []entity.ChatTurn) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, turns)
	return f.reply, f.err
}

func (f *fakeCompleter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// flakyConversationRepository fails selected operations a fixed number of times.
type flakyConversationRepository struct {
	repository.ConversationRepository

	mu                 sync.Mutex
	summaryFailures    int
	summaryCalls       int
	deleteMessageError error
	deletedMessages    int
}

func (r *flakyConversationRepository) UpdateSummary(ctx context.Context, id string, summary entity.ConversationSummary) error {
	r.mu.Lock()
	r.summaryCalls++
	fail := r.summaryFailures > 0
	if fail {
		r.summaryFailures--
	}
	r.mu.Unlock()

	if fail {
		return context.DeadlineExceeded
	}
	return r.ConversationRepository.UpdateSummary(ctx, id, summary)
}

func (r *flakyConversationRepository) DeleteMessage(ctx context.Context, conversationID, messageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteMessageError != nil && r.deletedMessages >= 1 {
		return r.deleteMessageError
	}
	r.deletedMessages++
	return r.ConversationRepository.DeleteMessage(ctx, conversationID, messageID)
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []*entity.Message
	deleted  []string
}

func (p *recordingPublisher) PublishMessage(conversationID string, message *entity.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, message)
}

func (p *recordingPublisher) PublishConversationDeleted(conversationID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, conversationID)
}

type fixture struct {
	clock         *testClock
	store         *memrepo.MemoryStore
	conversations repository.ConversationRepository
	events        *recordingPublisher
	sessions      *SessionManager
	conversation  *ConversationUseCase
	presence      *PresenceUseCase
	completer     *fakeCompleter
	assistant     *AssistantUseCase
}

func newFixture(conversations func(repository.ConversationRepository) repository.ConversationRepository) *fixture {
	f := &fixture{
		clock:     newTestClock(),
		events:    &recordingPublisher{},
		completer: &fakeCompleter{reply: "Happy to help with that."},
	}
	f.store = memrepo.NewMemoryStore(f.clock.Now)
	f.conversations = f.store.Conversations()
	if conversations != nil {
		f.conversations = conversations(f.conversations)
	}
	f.sessions = NewSessionManager("test-secret", time.Hour, f.clock.Now)
	f.conversation = NewConversationUseCase(f.conversations, f.sessions, f.events)
	f.conversation.newBackOff = func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 3)
	}
	f.presence = NewPresenceUseCase(f.store.Presence(), f.clock.Now)
	f.assistant = NewAssistantUseCase(f.completer, f.conversation, f.presence, "info@sulestate.com")
	return f
}
