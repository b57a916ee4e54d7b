package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"sulestate/internal/domain/entity"
	"sulestate/internal/domain/repository"
	"sulestate/pkg/errors"
	"sulestate/pkg/logger"
)

const (
	// MessageHistoryLimit bounds every message listing. There is no cursor.
	MessageHistoryLimit = 200

	deleteConcurrency = 8
)

type ConversationUseCase struct {
	conversationRepo repository.ConversationRepository
	sessions         *SessionManager
	events           EventPublisher
	newBackOff       func() backoff.BackOff
}

func NewConversationUseCase(
	conversationRepo repository.ConversationRepository,
	sessions *SessionManager,
	events EventPublisher,
) *ConversationUseCase {
	if events == nil {
		events = noopPublisher{}
	}
	return &ConversationUseCase{
		conversationRepo: conversationRepo,
		sessions:         sessions,
		events:           events,
		newBackOff:       summaryBackOff,
	}
}

func summaryBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 5 * time.Second
	return backoff.WithMaxRetries(b, 5)
}

type CreateConversationInput struct {
	UserName  string
	UserEmail string
}

type CreateConversationResult struct {
	Conversation *entity.Conversation
	Session      *VisitorSession
}

type AppendMessageInput struct {
	ConversationID string
	Text           string
	Sender         string
	UserName       string
	UserEmail      string
}

func (uc *ConversationUseCase) CreateConversation(ctx context.Context, input CreateConversationInput) (*CreateConversationResult, error) {
	name := strings.TrimSpace(input.UserName)
	email := strings.TrimSpace(input.UserEmail)

	if name == "" {
		return nil, errors.Validation("userName", "Name is required")
	}
	if email == "" {
		return nil, errors.Validation("userEmail", "Email is required")
	}
	if !entity.IsValidEmail(email) {
		return nil, errors.Validation("userEmail", "Email address is not valid")
	}

	conversation := &entity.Conversation{
		UserName:  name,
		UserEmail: email,
		Status:    entity.ConversationActive,
	}
	if err := uc.conversationRepo.Create(ctx, conversation); err != nil {
		logger.Error("CreateConversation failed: email=%s, error=%v", email, err)
		return nil, err
	}

	seed := &entity.Message{Text: entity.WelcomeMessage, Sender: entity.SenderAI}
	if err := uc.conversationRepo.CreateMessage(ctx, conversation.ID, seed); err != nil {
		logger.LogConversationError(conversation.ID, "seed_message", err)
		return nil, err
	}
	uc.events.PublishMessage(conversation.ID, seed)

	session, err := uc.sessions.Issue(conversation)
	if err != nil {
		return nil, err
	}

	logger.Info("Conversation %s created for %s", conversation.ID, email)
	return &CreateConversationResult{Conversation: conversation, Session: session}, nil
}

// AppendMessage writes the message and then refreshes the conversation summary.
// The message is the source of truth: once it is stored the call succeeds even
// if the summary could not be brought up to date.
func (uc *ConversationUseCase) AppendMessage(ctx context.Context, input AppendMessageInput) (*entity.Message, error) {
	if strings.TrimSpace(input.ConversationID) == "" {
		return nil, errors.Validation("conversationId", "Conversation ID is required")
	}
	if strings.TrimSpace(input.Text) == "" {
		return nil, errors.Validation("message", "Message is required")
	}
	if input.Sender == "" {
		return nil, errors.Validation("sender", "Sender is required")
	}
	if !entity.IsValidSender(input.Sender) {
		return nil, errors.Validation("sender", "Sender must be one of user, admin, ai")
	}

	if _, err := uc.conversationRepo.GetByID(ctx, input.ConversationID); err != nil {
		return nil, err
	}

	message := &entity.Message{
		Text:   input.Text,
		Sender: input.Sender,
		Read:   false,
	}
	if err := uc.conversationRepo.CreateMessage(ctx, input.ConversationID, message); err != nil {
		logger.LogConversationError(input.ConversationID, "append_message", err)
		return nil, err
	}
	uc.events.PublishMessage(input.ConversationID, message)

	if err := uc.syncSummary(ctx, input, message); err != nil {
		logger.Warn("Summary for conversation %s is behind message %s: %v", input.ConversationID, message.ID, err)
	}

	return message, nil
}

// syncSummary is safe to repeat: the unread count is recounted on every attempt.
func (uc *ConversationUseCase) syncSummary(ctx context.Context, input AppendMessageInput, message *entity.Message) error {
	operation := func() error {
		unread, err := uc.conversationRepo.CountUnread(ctx, input.ConversationID)
		if err != nil {
			return err
		}

		err = uc.conversationRepo.UpdateSummary(ctx, input.ConversationID, entity.ConversationSummary{
			LastMessage:       message.Text,
			LastMessageTime:   message.Timestamp,
			LastMessageSender: message.Sender,
			UnreadCount:       unread,
			UserName:          strings.TrimSpace(input.UserName),
			UserEmail:         strings.TrimSpace(input.UserEmail),
		})
		if errors.Is(err, errors.CodeNotFound) {
			return backoff.Permanent(err)
		}
		return err
	}

	return backoff.RetryNotify(operation, backoff.WithContext(uc.newBackOff(), ctx), func(err error, wait time.Duration) {
		logger.Debug("Retrying summary update for conversation %s in %v: %v", input.ConversationID, wait, err)
	})
}

func (uc *ConversationUseCase) ListMessages(ctx context.Context, conversationID string, limit int) ([]*entity.Message, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, errors.Validation("conversationId", "Conversation ID is required")
	}
	if limit <= 0 || limit > MessageHistoryLimit {
		limit = MessageHistoryLimit
	}

	messages, err := uc.conversationRepo.ListMessages(ctx, conversationID, limit)
	if err != nil {
		logger.LogConversationError(conversationID, "list_messages", err)
		return nil, err
	}
	if messages == nil {
		messages = []*entity.Message{}
	}
	return messages, nil
}

// DeleteConversation removes every message, then the conversation itself. A
// failed message delete aborts before the parent is touched and may leave
// some messages behind.
func (uc *ConversationUseCase) DeleteConversation(ctx context.Context, conversationID string) error {
	if strings.TrimSpace(conversationID) == "" {
		return errors.Validation("conversationId", "Conversation ID is required")
	}

	ids, err := uc.conversationRepo.ListMessageIDs(ctx, conversationID)
	if err != nil {
		logger.LogConversationError(conversationID, "list_message_ids", err)
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(deleteConcurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			return uc.conversationRepo.DeleteMessage(gctx, conversationID, id)
		})
	}
	if err := g.Wait(); err != nil {
		logger.LogConversationError(conversationID, "delete_messages", err)
		return err
	}

	if err := uc.conversationRepo.Delete(ctx, conversationID); err != nil {
		logger.LogConversationError(conversationID, "delete_conversation", err)
		return err
	}
	uc.events.PublishConversationDeleted(conversationID)

	logger.Info("Conversation %s deleted with %d messages", conversationID, len(ids))
	return nil
}

func (uc *ConversationUseCase) ListConversations(ctx context.Context) ([]*entity.Conversation, error) {
	conversations, err := uc.conversationRepo.List(ctx)
	if err != nil {
		logger.Error("ListConversations failed: %v", err)
		return nil, err
	}
	if conversations == nil {
		conversations = []*entity.Conversation{}
	}
	return conversations, nil
}

func (uc *ConversationUseCase) GetConversation(ctx context.Context, conversationID string) (*entity.Conversation, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, errors.Validation("conversationId", "Conversation ID is required")
	}
	return uc.conversationRepo.GetByID(ctx, conversationID)
}

// ResolveSession turns a visitor token back into the session it was issued
// for, provided the conversation still exists.
func (uc *ConversationUseCase) ResolveSession(ctx context.Context, token string) (*VisitorSession, error) {
	claims, err := uc.sessions.Verify(token)
	if err != nil {
		return nil, err
	}

	conversation, err := uc.conversationRepo.GetByID(ctx, claims.ConversationID)
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return nil, errors.Unauthorized("Session no longer refers to a conversation", err)
		}
		return nil, err
	}

	return &VisitorSession{
		ConversationID: conversation.ID,
		UserName:       conversation.UserName,
		UserEmail:      conversation.UserEmail,
		Token:          token,
		ExpiresAt:      claims.ExpiresAt.Time,
	}, nil
}
