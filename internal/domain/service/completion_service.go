package service

import (
	"context"

	"sulestate/internal/domain/entity"
)

// TextCompleter generates an assistant reply for a system prompt and an ordered
// conversation whose last turn is the visitor's message.
type TextCompleter interface {
	Complete(ctx context.Context, systemPrompt string, turns []entity.ChatTurn) (string, error)
}
