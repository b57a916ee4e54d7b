package usecase

import "sulestate/internal/domain/entity"

// EventPublisher pushes conversation changes to live subscribers. Polling
// readers see the same changes through the store.
type EventPublisher interface {
	PublishMessage(conversationID string, message *entity.Message)
	PublishConversationDeleted(conversationID string)
}

type noopPublisher struct{}

func (noopPublisher) PublishMessage(string, *entity.Message) {}

func (noopPublisher) PublishConversationDeleted(string) {}
