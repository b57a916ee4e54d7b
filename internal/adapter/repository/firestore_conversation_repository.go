package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"sulestate/internal/domain/entity"
	"sulestate/internal/domain/repository"
	"sulestate/pkg/errors"
	"sulestate/pkg/logger"
)

const (
	conversationsCollection = "conversations"
	messagesCollection      = "messages"
)

type firestoreConversationRepository struct {
	client *firestore.Client
}

func NewFirestoreConversationRepository(client *firestore.Client) repository.ConversationRepository {
	return &firestoreConversationRepository{
		client: client,
	}
}

func (r *firestoreConversationRepository) messages(conversationID string) *firestore.CollectionRef {
	return r.client.Collection(conversationsCollection).Doc(conversationID).Collection(messagesCollection)
}

func (r *firestoreConversationRepository) Create(ctx context.Context, conversation *entity.Conversation) error {
	ref := r.client.Collection(conversationsCollection).NewDoc()

	wr, err := ref.Set(ctx, conversation)
	if err != nil {
		return errors.UpstreamUnavailable("Failed to create conversation", err)
	}

	conversation.ID = ref.ID
	conversation.CreatedAt = wr.UpdateTime
	conversation.UpdatedAt = wr.UpdateTime
	return nil
}

func (r *firestoreConversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	doc, err := r.client.Collection(conversationsCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, storeError("Conversation", "Failed to get conversation", err)
	}

	var conversation entity.Conversation
	if err := doc.DataTo(&conversation); err != nil {
		return nil, errors.Internal("Failed to parse conversation data", err)
	}
	conversation.ID = doc.Ref.ID

	return &conversation, nil
}

func (r *firestoreConversationRepository) List(ctx context.Context) ([]*entity.Conversation, error) {
	iter := r.client.Collection(conversationsCollection).OrderBy("updatedAt", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	var conversations []*entity.Conversation
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.UpstreamUnavailable("Failed to list conversations", err)
		}

		var conversation entity.Conversation
		if err := doc.DataTo(&conversation); err != nil {
			logger.Warn("Skipping malformed conversation %s: %v", doc.Ref.ID, err)
			continue
		}
		conversation.ID = doc.Ref.ID
		conversations = append(conversations, &conversation)
	}

	return conversations, nil
}

func (r *firestoreConversationRepository) UpdateSummary(ctx context.Context, id string, summary entity.ConversationSummary) error {
	updates := []firestore.Update{
		{Path: "lastMessage", Value: summary.LastMessage},
		{Path: "lastMessageTime", Value: summary.LastMessageTime},
		{Path: "lastMessageSender", Value: summary.LastMessageSender},
		{Path: "unreadCount", Value: summary.UnreadCount},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	}
	if summary.UserName != "" {
		updates = append(updates, firestore.Update{Path: "userName", Value: summary.UserName})
	}
	if summary.UserEmail != "" {
		updates = append(updates, firestore.Update{Path: "userEmail", Value: summary.UserEmail})
	}

	if _, err := r.client.Collection(conversationsCollection).Doc(id).Update(ctx, updates); err != nil {
		return storeError("Conversation", "Failed to update conversation summary", err)
	}
	return nil
}

func (r *firestoreConversationRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.client.Collection(conversationsCollection).Doc(id).Delete(ctx); err != nil {
		return errors.UpstreamUnavailable("Failed to delete conversation", err)
	}
	return nil
}

func (r *firestoreConversationRepository) CreateMessage(ctx context.Context, conversationID string, message *entity.Message) error {
	ref := r.messages(conversationID).NewDoc()

	wr, err := ref.Set(ctx, message)
	if err != nil {
		return errors.UpstreamUnavailable("Failed to save message", err)
	}

	// The serverTimestamp transform resolves to the commit time.
	message.ID = ref.ID
	message.Timestamp = wr.UpdateTime
	return nil
}

func (r *firestoreConversationRepository) ListMessages(ctx context.Context, conversationID string, limit int) ([]*entity.Message, error) {
	query := r.messages(conversationID).OrderBy("timestamp", firestore.Asc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	messages := []*entity.Message{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.UpstreamUnavailable("Failed to load messages", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			logger.Warn("Skipping malformed message %s in conversation %s: %v", doc.Ref.ID, conversationID, err)
			continue
		}
		message.ID = doc.Ref.ID
		messages = append(messages, &message)
	}

	return messages, nil
}

func (r *firestoreConversationRepository) ListMessageIDs(ctx context.Context, conversationID string) ([]string, error) {
	docs, err := r.messages(conversationID).Select().Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.UpstreamUnavailable("Failed to list messages for deletion", err)
	}

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.Ref.ID)
	}
	return ids, nil
}

func (r *firestoreConversationRepository) DeleteMessage(ctx context.Context, conversationID, messageID string) error {
	if _, err := r.messages(conversationID).Doc(messageID).Delete(ctx); err != nil {
		return errors.UpstreamUnavailable("Failed to delete message", err)
	}
	return nil
}

func (r *firestoreConversationRepository) CountUnread(ctx context.Context, conversationID string) (int, error) {
	query := r.messages(conversationID).
		Where("sender", "==", entity.SenderUser).
		Where("read", "==", false)

	results, err := query.NewAggregationQuery().WithCount("unread").Get(ctx)
	if err != nil {
		return 0, errors.UpstreamUnavailable("Failed to count unread messages", err)
	}

	count, ok := results["unread"]
	if !ok {
		return 0, nil
	}
	value, ok := count.(*firestorepb.Value)
	if !ok {
		return 0, errors.Internal("Unexpected unread count type", nil)
	}
	return int(value.GetIntegerValue()), nil
}

// storeError maps a Firestore NotFound onto the domain NotFound and everything
// else onto UpstreamUnavailable.
func storeError(resource, message string, err error) error {
	if status.Code(err) == codes.NotFound {
		return errors.NotFound(resource, err)
	}
	return errors.UpstreamUnavailable(message, err)
}
