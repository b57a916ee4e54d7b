package usecase

import (
	"context"
	"fmt"
	"strings"

	"sulestate/internal/domain/entity"
	"sulestate/internal/domain/service"
	"sulestate/pkg/errors"
	"sulestate/pkg/logger"
)

// HistoryTurnLimit is how many prior turns accompany a completion request.
const HistoryTurnLimit = 10

const systemPrompt = `You are the virtual assistant of SUL ESTATE, a real estate consultancy.
Answer questions about buying, selling, renting and investing in property in a warm, professional tone.
Keep replies short. When a question needs a human consultant, say that the team will follow up in this chat.
Never invent listings, prices or legal advice.`

type AssistantUseCase struct {
	completer     service.TextCompleter
	conversations *ConversationUseCase
	presence      *PresenceUseCase
	contactEmail  string
}

// NewAssistantUseCase accepts a nil completer; Reply then reports NOT_CONFIGURED.
func NewAssistantUseCase(
	completer service.TextCompleter,
	conversations *ConversationUseCase,
	presence *PresenceUseCase,
	contactEmail string,
) *AssistantUseCase {
	return &AssistantUseCase{
		completer:     completer,
		conversations: conversations,
		presence:      presence,
		contactEmail:  contactEmail,
	}
}

// Apology is shown to a visitor when no reply could be generated. It is never stored.
func (uc *AssistantUseCase) Apology() string {
	return ApologyText(uc.contactEmail)
}

func ApologyText(contactEmail string) string {
	return fmt.Sprintf("I'm sorry, I'm having trouble responding right now. Please reach us directly at %s and we'll get back to you.", contactEmail)
}

func (uc *AssistantUseCase) Reply(ctx context.Context, message string, history []entity.ChatTurn) (string, error) {
	if uc.completer == nil {
		return "", errors.NotConfigured("AI completion service is not configured")
	}
	if strings.TrimSpace(message) == "" {
		return "", errors.Validation("message", "Message is required")
	}

	turns := append(TrimHistory(history), entity.ChatTurn{Role: "user", Content: message})

	reply, err := uc.completer.Complete(ctx, systemPrompt, turns)
	if err != nil {
		logger.Error("Completion request failed: %v", err)
		var appErr *errors.AppError
		if errors.As(err, &appErr) {
			return "", appErr
		}
		return "", errors.UpstreamUnavailable("AI completion request failed", err)
	}
	return reply, nil
}

// TrimHistory keeps the most recent HistoryTurnLimit turns and drops empty ones.
func TrimHistory(history []entity.ChatTurn) []entity.ChatTurn {
	turns := make([]entity.ChatTurn, 0, len(history))
	for _, turn := range history {
		if strings.TrimSpace(turn.Content) == "" {
			continue
		}
		if turn.Role != "user" {
			turn.Role = "assistant"
		}
		turns = append(turns, turn)
	}
	if len(turns) > HistoryTurnLimit {
		turns = turns[len(turns)-HistoryTurnLimit:]
	}
	return turns
}

type VisitorMessageInput struct {
	ConversationID string
	Text           string
	UserName       string
	UserEmail      string
}

type VisitorMessageResult struct {
	MessageID string `json:"messageId"`
	// HandedOff is set when a fresh admin heartbeat means a human will answer.
	HandedOff bool            `json:"handedOff"`
	Reply     *entity.Message `json:"reply,omitempty"`
	// Fallback carries the apology when the assistant could not answer.
	Fallback string `json:"fallback,omitempty"`
}

// RespondIfOffline stores a visitor message and, unless the admin is online,
// answers it with a stored ai message.
func (uc *AssistantUseCase) RespondIfOffline(ctx context.Context, input VisitorMessageInput) (*VisitorMessageResult, error) {
	message, err := uc.conversations.AppendMessage(ctx, AppendMessageInput{
		ConversationID: input.ConversationID,
		Text:           input.Text,
		Sender:         entity.SenderUser,
		UserName:       input.UserName,
		UserEmail:      input.UserEmail,
	})
	if err != nil {
		return nil, err
	}
	result := &VisitorMessageResult{MessageID: message.ID}

	online, err := uc.presence.IsAdminOnline(ctx)
	if err != nil {
		logger.Warn("Presence check failed for conversation %s, answering with assistant: %v", input.ConversationID, err)
	}
	if online {
		result.HandedOff = true
		return result, nil
	}

	history, err := uc.history(ctx, input.ConversationID, message.ID)
	if err != nil {
		logger.Warn("Could not load history for conversation %s: %v", input.ConversationID, err)
	}

	text, err := uc.Reply(ctx, input.Text, history)
	if err != nil {
		result.Fallback = uc.Apology()
		return result, nil
	}

	reply, err := uc.conversations.AppendMessage(ctx, AppendMessageInput{
		ConversationID: input.ConversationID,
		Text:           text,
		Sender:         entity.SenderAI,
	})
	if err != nil {
		logger.LogConversationError(input.ConversationID, "append_ai_reply", err)
		result.Fallback = uc.Apology()
		return result, nil
	}
	result.Reply = reply
	return result, nil
}

// history returns the stored turns that precede messageID.
func (uc *AssistantUseCase) history(ctx context.Context, conversationID, messageID string) ([]entity.ChatTurn, error) {
	messages, err := uc.conversations.ListMessages(ctx, conversationID, MessageHistoryLimit)
	if err != nil {
		return nil, err
	}

	turns := make([]entity.ChatTurn, 0, len(messages))
	for _, m := range messages {
		if m.ID == messageID {
			break
		}
		turns = append(turns, m.Turn())
	}
	return TrimHistory(turns), nil
}
