package client

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"sulestate/internal/domain/entity"
	"sulestate/pkg/errors"
	"sulestate/pkg/logger"
)

const DefaultHeartbeatInterval = 60 * time.Second

// ErrNotConfirmed is returned when a delete was not confirmed by the operator.
var ErrNotConfirmed = errors.New("NOT_CONFIRMED", "Deleting a conversation requires confirmation", http.StatusPreconditionRequired, nil)

type ConsoleConfig struct {
	API      *API
	Notifier *Notifier

	HeartbeatInterval time.Duration
	PollInterval      time.Duration
	Now               func() time.Time
}

// Console is the admin chat console: presence heartbeat, conversation list
// and the selected conversation's transcript.
type Console struct {
	api               *API
	notifier          *Notifier
	heartbeatInterval time.Duration
	pollInterval      time.Duration
	now               func() time.Time

	mu            sync.Mutex
	mounted       bool
	conversations []entity.Conversation
	selectedID    string
	messages      []entity.Message
	pending       []entity.Message
	localSeq      int
	stop          context.CancelFunc
	wg            sync.WaitGroup
}

func NewConsole(cfg ConsoleConfig) *Console {
	c := &Console{
		api:               cfg.API,
		notifier:          cfg.Notifier,
		heartbeatInterval: cfg.HeartbeatInterval,
		pollInterval:      cfg.PollInterval,
		now:               cfg.Now,
	}
	if c.notifier == nil {
		c.notifier = NewNotifier()
	}
	if c.heartbeatInterval <= 0 {
		c.heartbeatInterval = DefaultHeartbeatInterval
	}
	if c.pollInterval <= 0 {
		c.pollInterval = DefaultPollInterval
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Mount marks the admin online and starts the heartbeat and poll loops.
func (c *Console) Mount(ctx context.Context) error {
	c.mu.Lock()
	if c.mounted {
		c.mu.Unlock()
		return nil
	}
	loopCtx, stop := context.WithCancel(ctx)
	c.mounted = true
	c.stop = stop
	c.wg.Add(2)
	c.mu.Unlock()

	if err := c.api.SetAdminStatus(ctx, true); err != nil {
		c.notifier.Toast("go online", err)
	}
	if err := c.refreshConversations(ctx); err != nil {
		c.notifier.Toast("load conversations", err)
	}

	go c.heartbeatLoop(loopCtx)
	go c.pollLoop(loopCtx)
	return nil
}

// Unmount stops both loops and sends a final offline heartbeat.
func (c *Console) Unmount(ctx context.Context) error {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return nil
	}
	c.mounted = false
	stop := c.stop
	c.stop = nil
	c.mu.Unlock()

	stop()
	c.wg.Wait()

	return c.api.SetAdminStatus(ctx, false)
}

func (c *Console) Conversations() []entity.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]entity.Conversation(nil), c.conversations...)
}

func (c *Console) Selected() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedID
}

// Messages is the selected transcript including replies still being sent.
func (c *Console) Messages() []entity.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	merged := make([]entity.Message, 0, len(c.messages)+len(c.pending))
	merged = append(merged, c.messages...)
	merged = append(merged, c.pending...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})
	return merged
}

// Filter narrows the conversation list by status ("" or "all" for any) and
// a case-insensitive search over name, email and last message.
func (c *Console) Filter(status, query string) []entity.Conversation {
	status = strings.ToLower(strings.TrimSpace(status))
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]entity.Conversation, 0, len(c.conversations))
	for i := range c.conversations {
		conversation := c.conversations[i]
		if status != "" && status != "all" && conversation.Status != status {
			continue
		}
		if !conversation.Matches(query) {
			continue
		}
		result = append(result, conversation)
	}
	return result
}

// Select loads a conversation's messages now and keeps them in the poll.
func (c *Console) Select(ctx context.Context, conversationID string) error {
	c.mu.Lock()
	if c.selectedID != conversationID {
		c.selectedID = conversationID
		c.messages = nil
		c.pending = nil
	}
	c.mu.Unlock()

	if err := c.loadMessages(ctx, conversationID); err != nil {
		c.notifier.Toast("load messages", err)
		return err
	}
	return nil
}

// Reply sends an admin message to the selected conversation. On failure the
// optimistic message is removed and a toast is published.
func (c *Console) Reply(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.Validation("message", "Message is required")
	}

	c.mu.Lock()
	conversationID := c.selectedID
	if conversationID == "" {
		c.mu.Unlock()
		return errors.Validation("conversationId", "Select a conversation first")
	}
	c.localSeq++
	optimistic := entity.Message{
		ID:        fmt.Sprintf("%s%d", localIDPrefix, c.localSeq),
		Text:      text,
		Sender:    entity.SenderAdmin,
		Timestamp: c.now().UTC(),
	}
	c.pending = append(c.pending, optimistic)
	c.mu.Unlock()

	_, err := c.api.SaveMessage(ctx, SaveMessageRequest{
		ConversationID: conversationID,
		Message:        text,
		Sender:         entity.SenderAdmin,
	})
	if err != nil {
		c.removePending(optimistic.ID)
		c.notifier.Toast("send reply", err)
		return err
	}

	if err := c.loadMessages(ctx, conversationID); err != nil {
		logger.Warn("Reload after reply failed for %s: %v", conversationID, err)
	}
	c.removePending(optimistic.ID)
	if err := c.refreshConversations(ctx); err != nil {
		logger.Warn("Conversation list refresh failed: %v", err)
	}
	return nil
}

// Delete removes a conversation once confirmed. A failure leaves the console
// unchanged and publishes a toast.
func (c *Console) Delete(ctx context.Context, conversationID string, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}

	if err := c.api.DeleteConversation(ctx, conversationID); err != nil {
		c.notifier.Toast("delete conversation", err)
		return err
	}

	c.mu.Lock()
	if c.selectedID == conversationID {
		c.selectedID = ""
		c.messages = nil
		c.pending = nil
	}
	c.mu.Unlock()

	if err := c.refreshConversations(ctx); err != nil {
		logger.Warn("Conversation list refresh failed: %v", err)
	}
	return nil
}

// Refresh reloads the conversation list without going online.
func (c *Console) Refresh(ctx context.Context) error {
	return c.refreshConversations(ctx)
}

func (c *Console) removePending(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, message := range c.pending {
		if message.ID == id {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return
		}
	}
}

func (c *Console) loadMessages(ctx context.Context, conversationID string) error {
	messages, err := c.api.Messages(ctx, conversationID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selectedID == conversationID {
		c.messages = messages
	}
	return nil
}

func (c *Console) refreshConversations(ctx context.Context) error {
	conversations, err := c.api.Conversations(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conversations = conversations
	c.mu.Unlock()
	return nil
}

func (c *Console) heartbeatLoop(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.api.SetAdminStatus(ctx, true); err != nil && ctx.Err() == nil {
				logger.Warn("Presence heartbeat failed: %v", err)
			}
		}
	}
}

func (c *Console) pollLoop(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if err := c.refreshConversations(ctx); err != nil && ctx.Err() == nil {
			logger.Debug("Conversation poll failed: %v", err)
		}
		if selected := c.Selected(); selected != "" {
			if err := c.loadMessages(ctx, selected); err != nil && ctx.Err() == nil {
				logger.Debug("Message poll failed for %s: %v", selected, err)
			}
		}
	}
}
