package usecase

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sulestate/internal/domain/entity"
	"sulestate/internal/domain/repository"
	"sulestate/pkg/errors"
)

func TestCreateConversationValidation(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		input CreateConversationInput
		field string
	}{
		{"blank name", CreateConversationInput{UserName: "", UserEmail: "a@b.com"}, "userName"},
		{"whitespace name", CreateConversationInput{UserName: "   ", UserEmail: "a@b.com"}, "userName"},
		{"blank email", CreateConversationInput{UserName: "Alice", UserEmail: ""}, "userEmail"},
		{"invalid email", CreateConversationInput{UserName: "Alice", UserEmail: "not-an-email"}, "userEmail"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.conversation.CreateConversation(ctx, tt.input)

			var appErr *errors.AppError
			require.True(t, stderrors.As(err, &appErr))
			assert.Equal(t, errors.CodeValidation, appErr.Code)
			assert.Equal(t, tt.field, appErr.Field)
		})
	}

	conversations, err := f.conversation.ListConversations(ctx)
	require.NoError(t, err)
	assert.Empty(t, conversations)
}

func TestCreateConversationSeedsWelcomeMessage(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	result, err := f.conversation.CreateConversation(ctx, CreateConversationInput{UserName: "Alice", UserEmail: "a@b.com"})
	require.NoError(t, err)
	assert.Equal(t, entity.ConversationActive, result.Conversation.Status)
	assert.Zero(t, result.Conversation.UnreadCount)
	assert.Empty(t, result.Conversation.LastMessage)

	messages, err := f.conversation.ListMessages(ctx, result.Conversation.ID, 0)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, entity.SenderAI, messages[0].Sender)
	assert.Equal(t, entity.WelcomeMessage, messages[0].Text)
	assert.False(t, messages[0].Read)

	require.NotNil(t, result.Session)
	assert.Equal(t, result.Conversation.ID, result.Session.ConversationID)
	assert.NotEmpty(t, result.Session.Token)
}

func TestAppendMessageUpdatesSummary(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	created, err := f.conversation.CreateConversation(ctx, CreateConversationInput{UserName: "Alice", UserEmail: "a@b.com"})
	require.NoError(t, err)
	id := created.Conversation.ID

	message, err := f.conversation.AppendMessage(ctx, AppendMessageInput{ConversationID: id, Text: "Hi", Sender: entity.SenderUser})
	require.NoError(t, err)
	assert.NotEmpty(t, message.ID)

	messages, err := f.conversation.ListMessages(ctx, id, 0)
	require.NoError(t, err)
	assert.Len(t, messages, 2)

	conversation, err := f.conversation.GetConversation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Hi", conversation.LastMessage)
	assert.Equal(t, entity.SenderUser, conversation.LastMessageSender)
	assert.Equal(t, message.Timestamp, conversation.LastMessageTime)
	assert.Equal(t, 1, conversation.UnreadCount)

	f.events.mu.Lock()
	assert.Len(t, f.events.messages, 2)
	f.events.mu.Unlock()
}

func TestAppendMessageValidation(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	_, err := f.conversation.AppendMessage(ctx, AppendMessageInput{Text: "Hi", Sender: entity.SenderUser})
	assert.True(t, errors.Is(err, errors.CodeValidation))

	_, err = f.conversation.AppendMessage(ctx, AppendMessageInput{ConversationID: "c1", Sender: entity.SenderUser})
	assert.True(t, errors.Is(err, errors.CodeValidation))

	_, err = f.conversation.AppendMessage(ctx, AppendMessageInput{ConversationID: "c1", Text: "Hi"})
	assert.True(t, errors.Is(err, errors.CodeValidation))

	_, err = f.conversation.AppendMessage(ctx, AppendMessageInput{ConversationID: "c1", Text: "Hi", Sender: "bot"})
	assert.True(t, errors.Is(err, errors.CodeValidation))

	_, err = f.conversation.AppendMessage(ctx, AppendMessageInput{ConversationID: "missing", Text: "Hi", Sender: entity.SenderUser})
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestAppendMessageRetriesSummaryUpdate(t *testing.T) {
	var flaky *flakyConversationRepository
	f := newFixture(func(inner repository.ConversationRepository) repository.ConversationRepository {
		flaky = &flakyConversationRepository{ConversationRepository: inner, summaryFailures: 2}
		return flaky
	})
	ctx := context.Background()

	created, err := f.conversation.CreateConversation(ctx, CreateConversationInput{UserName: "Alice", UserEmail: "a@b.com"})
	require.NoError(t, err)

	_, err = f.conversation.AppendMessage(ctx, AppendMessageInput{ConversationID: created.Conversation.ID, Text: "Hi", Sender: entity.SenderUser})
	require.NoError(t, err)

	assert.Equal(t, 3, flaky.summaryCalls)
	conversation, err := f.conversation.GetConversation(ctx, created.Conversation.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hi", conversation.LastMessage)
	assert.Equal(t, 1, conversation.UnreadCount)
}

func TestAppendMessageKeepsMessageWhenSummaryNeverCatchesUp(t *testing.T) {
	f := newFixture(func(inner repository.ConversationRepository) repository.ConversationRepository {
		return &flakyConversationRepository{ConversationRepository: inner, summaryFailures: 100}
	})
	ctx := context.Background()

	created, err := f.conversation.CreateConversation(ctx, CreateConversationInput{UserName: "Alice", UserEmail: "a@b.com"})
	require.NoError(t, err)

	message, err := f.conversation.AppendMessage(ctx, AppendMessageInput{ConversationID: created.Conversation.ID, Text: "Hi", Sender: entity.SenderUser})
	require.NoError(t, err)
	assert.NotEmpty(t, message.ID)

	messages, err := f.conversation.ListMessages(ctx, created.Conversation.ID, 0)
	require.NoError(t, err)
	assert.Len(t, messages, 2)

	conversation, err := f.conversation.GetConversation(ctx, created.Conversation.ID)
	require.NoError(t, err)
	assert.Empty(t, conversation.LastMessage)
}

func TestListMessagesIsOrderedAndCapped(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	created, err := f.conversation.CreateConversation(ctx, CreateConversationInput{UserName: "Alice", UserEmail: "a@b.com"})
	require.NoError(t, err)
	for i := 0; i < MessageHistoryLimit+5; i++ {
		require.NoError(t, f.conversations.CreateMessage(ctx, created.Conversation.ID, &entity.Message{Text: "x", Sender: entity.SenderUser}))
	}

	messages, err := f.conversation.ListMessages(ctx, created.Conversation.ID, 1000)
	require.NoError(t, err)
	require.Len(t, messages, MessageHistoryLimit)
	assert.Equal(t, entity.WelcomeMessage, messages[0].Text)
	for i := 1; i < len(messages); i++ {
		assert.False(t, messages[i].Timestamp.Before(messages[i-1].Timestamp))
	}
}

func TestDeleteConversationRemovesMessagesAndParent(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	created, err := f.conversation.CreateConversation(ctx, CreateConversationInput{UserName: "Alice", UserEmail: "a@b.com"})
	require.NoError(t, err)
	id := created.Conversation.ID
	for _, text := range []string{"one", "two", "three"} {
		_, err := f.conversation.AppendMessage(ctx, AppendMessageInput{ConversationID: id, Text: text, Sender: entity.SenderUser})
		require.NoError(t, err)
	}

	require.NoError(t, f.conversation.DeleteConversation(ctx, id))

	messages, err := f.conversation.ListMessages(ctx, id, 0)
	require.NoError(t, err)
	assert.Empty(t, messages)

	conversations, err := f.conversation.ListConversations(ctx)
	require.NoError(t, err)
	for _, c := range conversations {
		assert.NotEqual(t, id, c.ID)
	}
	assert.Equal(t, []string{id}, f.events.deleted)
}

func TestDeleteConversationStopsOnMessageFailure(t *testing.T) {
	f := newFixture(func(inner repository.ConversationRepository) repository.ConversationRepository {
		return &flakyConversationRepository{
			ConversationRepository: inner,
			deleteMessageError:     errors.UpstreamUnavailable("Failed to delete message", context.DeadlineExceeded),
		}
	})
	ctx := context.Background()

	created, err := f.conversation.CreateConversation(ctx, CreateConversationInput{UserName: "Alice", UserEmail: "a@b.com"})
	require.NoError(t, err)
	id := created.Conversation.ID
	_, err = f.conversation.AppendMessage(ctx, AppendMessageInput{ConversationID: id, Text: "Hi", Sender: entity.SenderUser})
	require.NoError(t, err)

	err = f.conversation.DeleteConversation(ctx, id)
	assert.True(t, errors.Is(err, errors.CodeUpstreamUnavailable))

	_, err = f.conversation.GetConversation(ctx, id)
	assert.NoError(t, err)
	assert.Empty(t, f.events.deleted)
}

func TestListConversationsNewestFirst(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	first, err := f.conversation.CreateConversation(ctx, CreateConversationInput{UserName: "Alice", UserEmail: "a@b.com"})
	require.NoError(t, err)
	second, err := f.conversation.CreateConversation(ctx, CreateConversationInput{UserName: "Bob", UserEmail: "b@b.com"})
	require.NoError(t, err)
	_, err = f.conversation.AppendMessage(ctx, AppendMessageInput{ConversationID: first.Conversation.ID, Text: "bump", Sender: entity.SenderUser})
	require.NoError(t, err)

	conversations, err := f.conversation.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, conversations, 2)
	assert.Equal(t, first.Conversation.ID, conversations[0].ID)
	assert.Equal(t, second.Conversation.ID, conversations[1].ID)
}

func TestResolveSession(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	created, err := f.conversation.CreateConversation(ctx, CreateConversationInput{UserName: "Alice", UserEmail: "a@b.com"})
	require.NoError(t, err)

	session, err := f.conversation.ResolveSession(ctx, created.Session.Token)
	require.NoError(t, err)
	assert.Equal(t, created.Conversation.ID, session.ConversationID)
	assert.Equal(t, "Alice", session.UserName)

	require.NoError(t, f.conversation.DeleteConversation(ctx, created.Conversation.ID))
	_, err = f.conversation.ResolveSession(ctx, created.Session.Token)
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))
}
