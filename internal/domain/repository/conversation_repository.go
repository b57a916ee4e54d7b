package repository

import (
	"context"

	"sulestate/internal/domain/entity"
)

type ConversationRepository interface {
	// Create stores a new conversation and sets its store-assigned ID.
	Create(ctx context.Context, conversation *entity.Conversation) error
	GetByID(ctx context.Context, id string) (*entity.Conversation, error)
	List(ctx context.Context) ([]*entity.Conversation, error)
	UpdateSummary(ctx context.Context, id string, summary entity.ConversationSummary) error
	Delete(ctx context.Context, id string) error

	// Message methods

	// CreateMessage stores a message and sets its ID and server timestamp.
	CreateMessage(ctx context.Context, conversationID string, message *entity.Message) error
	ListMessages(ctx context.Context, conversationID string, limit int) ([]*entity.Message, error)
	ListMessageIDs(ctx context.Context, conversationID string) ([]string, error)
	DeleteMessage(ctx context.Context, conversationID, messageID string) error
	CountUnread(ctx context.Context, conversationID string) (int, error)
}
