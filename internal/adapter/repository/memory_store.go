package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"sulestate/internal/domain/entity"
	"sulestate/internal/domain/repository"
	"sulestate/pkg/errors"
)

// MemoryStore keeps the document layout in-process. It backs STORE_DRIVER=memory
// and the test suites.
type MemoryStore struct {
	mu            sync.RWMutex
	now           func() time.Time
	lastStamp     time.Time
	conversations map[string]entity.Conversation
	messages      map[string][]entity.Message // conversation ID -> messages in insertion order
	presence      *entity.Presence
	settings      *entity.ChatSettings
	uploads       map[string]entity.FileMetadata
}

// NewMemoryStore initializes an empty store. now defaults to time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		now:           now,
		conversations: make(map[string]entity.Conversation),
		messages:      make(map[string][]entity.Message),
		uploads:       make(map[string]entity.FileMetadata),
	}
}

// stamp plays the role of the server timestamp; it never repeats. Callers hold mu.
func (m *MemoryStore) stamp() time.Time {
	t := m.now().UTC()
	if !t.After(m.lastStamp) {
		t = m.lastStamp.Add(time.Microsecond)
	}
	m.lastStamp = t
	return t
}

func (m *MemoryStore) Conversations() repository.ConversationRepository {
	return &memoryConversationRepository{store: m}
}

func (m *MemoryStore) Presence() repository.PresenceRepository {
	return &memoryPresenceRepository{store: m}
}

func (m *MemoryStore) Settings() repository.SettingsRepository {
	return &memorySettingsRepository{store: m}
}

func (m *MemoryStore) Uploads() repository.FileMetadataRepository {
	return &memoryFileMetadataRepository{store: m}
}

type memoryConversationRepository struct {
	store *MemoryStore
}

func (r *memoryConversationRepository) Create(ctx context.Context, conversation *entity.Conversation) error {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.stamp()
	conversation.ID = uuid.New().String()
	conversation.CreatedAt = now
	conversation.UpdatedAt = now
	m.conversations[conversation.ID] = *conversation
	return nil
}

func (r *memoryConversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	m := r.store
	m.mu.RLock()
	defer m.mu.RUnlock()

	conversation, ok := m.conversations[id]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}
	return &conversation, nil
}

func (r *memoryConversationRepository) List(ctx context.Context) ([]*entity.Conversation, error) {
	m := r.store
	m.mu.RLock()
	defer m.mu.RUnlock()

	conversations := make([]*entity.Conversation, 0, len(m.conversations))
	for _, c := range m.conversations {
		c := c
		conversations = append(conversations, &c)
	}
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].UpdatedAt.After(conversations[j].UpdatedAt)
	})
	return conversations, nil
}

func (r *memoryConversationRepository) UpdateSummary(ctx context.Context, id string, summary entity.ConversationSummary) error {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()

	conversation, ok := m.conversations[id]
	if !ok {
		return errors.NotFound("Conversation", nil)
	}
	conversation.LastMessage = summary.LastMessage
	conversation.LastMessageTime = summary.LastMessageTime
	conversation.LastMessageSender = summary.LastMessageSender
	conversation.UnreadCount = summary.UnreadCount
	if summary.UserName != "" {
		conversation.UserName = summary.UserName
	}
	if summary.UserEmail != "" {
		conversation.UserEmail = summary.UserEmail
	}
	conversation.UpdatedAt = m.stamp()
	m.conversations[id] = conversation
	return nil
}

func (r *memoryConversationRepository) Delete(ctx context.Context, id string) error {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.conversations, id)
	return nil
}

func (r *memoryConversationRepository) CreateMessage(ctx context.Context, conversationID string, message *entity.Message) error {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()

	message.ID = uuid.New().String()
	message.Timestamp = m.stamp()
	m.messages[conversationID] = append(m.messages[conversationID], *message)
	return nil
}

func (r *memoryConversationRepository) ListMessages(ctx context.Context, conversationID string, limit int) ([]*entity.Message, error) {
	m := r.store
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.messages[conversationID]
	messages := make([]*entity.Message, 0, len(stored))
	for _, msg := range stored {
		msg := msg
		messages = append(messages, &msg)
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
	if limit > 0 && len(messages) > limit {
		messages = messages[:limit]
	}
	return messages, nil
}

func (r *memoryConversationRepository) ListMessageIDs(ctx context.Context, conversationID string) ([]string, error) {
	m := r.store
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.messages[conversationID]))
	for _, msg := range m.messages[conversationID] {
		ids = append(ids, msg.ID)
	}
	return ids, nil
}

func (r *memoryConversationRepository) DeleteMessage(ctx context.Context, conversationID, messageID string) error {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := m.messages[conversationID]
	for i, msg := range stored {
		if msg.ID == messageID {
			m.messages[conversationID] = append(stored[:i:i], stored[i+1:]...)
			break
		}
	}
	if len(m.messages[conversationID]) == 0 {
		delete(m.messages, conversationID)
	}
	return nil
}

func (r *memoryConversationRepository) CountUnread(ctx context.Context, conversationID string) (int, error) {
	m := r.store
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, msg := range m.messages[conversationID] {
		if msg.Sender == entity.SenderUser && !msg.Read {
			count++
		}
	}
	return count, nil
}

type memoryPresenceRepository struct {
	store *MemoryStore
}

func (r *memoryPresenceRepository) Upsert(ctx context.Context, isOnline bool) (*entity.Presence, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()

	m.presence = &entity.Presence{IsOnline: isOnline, LastSeen: m.stamp()}
	presence := *m.presence
	return &presence, nil
}

func (r *memoryPresenceRepository) Get(ctx context.Context) (*entity.Presence, error) {
	m := r.store
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.presence == nil {
		return nil, errors.NotFound("Admin status", nil)
	}
	presence := *m.presence
	return &presence, nil
}

type memorySettingsRepository struct {
	store *MemoryStore
}

func (r *memorySettingsRepository) Get(ctx context.Context) (*entity.ChatSettings, error) {
	m := r.store
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.settings == nil {
		return nil, errors.NotFound("Chat settings", nil)
	}
	settings := *m.settings
	return &settings, nil
}

func (r *memorySettingsRepository) Save(ctx context.Context, settings *entity.ChatSettings) error {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()

	settings.UpdatedAt = m.stamp()
	stored := *settings
	m.settings = &stored
	return nil
}

type memoryFileMetadataRepository struct {
	store *MemoryStore
}

func (r *memoryFileMetadataRepository) Create(ctx context.Context, metadata *entity.FileMetadata) error {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()

	if metadata.ID == "" {
		metadata.ID = uuid.New().String()
	}
	if metadata.CreatedAt.IsZero() {
		metadata.CreatedAt = m.stamp()
	}
	m.uploads[metadata.ID] = *metadata
	return nil
}
