package client

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"sulestate/internal/domain/entity"
	"sulestate/internal/usecase"
	"sulestate/pkg/errors"
	"sulestate/pkg/logger"
)

const (
	DefaultPollInterval     = 2 * time.Second
	DefaultSettingsInterval = 30 * time.Second

	localIDPrefix = "local-"
)

type VisitorState int

const (
	StateClosed VisitorState = iota
	StateCollectingIdentity
	StateRestoring
	StateReady
	StateSending
)

func (s VisitorState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateCollectingIdentity:
		return "collecting_identity"
	case StateRestoring:
		return "restoring"
	case StateReady:
		return "ready"
	case StateSending:
		return "sending"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ErrNotReady is returned when an action does not fit the current state.
var ErrNotReady = errors.New("NOT_READY", "Chat is not ready for this action", http.StatusConflict, nil)

type VisitorConfig struct {
	API          *API
	Sessions     SessionStore
	Notifier     *Notifier
	ContactEmail string

	PollInterval     time.Duration
	SettingsInterval time.Duration
	// Stream subscribes to the websocket feed; each event triggers an
	// immediate refresh. Polling continues either way.
	Stream bool
	Now    func() time.Time
}

// Visitor is the website chat widget. Local-only messages (the pending
// message being sent and assistant apologies) are shown alongside the
// server transcript.
type Visitor struct {
	api              *API
	sessions         SessionStore
	notifier         *Notifier
	contactEmail     string
	pollInterval     time.Duration
	settingsInterval time.Duration
	stream           bool
	now              func() time.Time

	mu         sync.Mutex
	state      VisitorState
	session    *Session
	server     []entity.Message
	local      []entity.Message
	settings   entity.ChatSettings
	lastID     string
	generation uint64
	localSeq   int
	stop       context.CancelFunc
	refresh    chan struct{}
	wg         sync.WaitGroup
}

func NewVisitor(cfg VisitorConfig) *Visitor {
	v := &Visitor{
		api:              cfg.API,
		sessions:         cfg.Sessions,
		notifier:         cfg.Notifier,
		contactEmail:     cfg.ContactEmail,
		pollInterval:     cfg.PollInterval,
		settingsInterval: cfg.SettingsInterval,
		stream:           cfg.Stream,
		now:              cfg.Now,
		settings:         entity.ChatSettings{}.WithDefaults(),
	}
	if v.sessions == nil {
		v.sessions = NewMemorySessionStore()
	}
	if v.notifier == nil {
		v.notifier = NewNotifier()
	}
	if v.pollInterval <= 0 {
		v.pollInterval = DefaultPollInterval
	}
	if v.settingsInterval <= 0 {
		v.settingsInterval = DefaultSettingsInterval
	}
	if v.now == nil {
		v.now = time.Now
	}
	return v
}

func (v *Visitor) State() VisitorState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *Visitor) Session() *Session {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.session == nil {
		return nil
	}
	copied := *v.session
	return &copied
}

func (v *Visitor) Settings() entity.ChatSettings {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.settings
}

// Messages returns the visible transcript ordered by timestamp.
func (v *Visitor) Messages() []entity.Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.transcriptLocked()
}

func (v *Visitor) transcriptLocked() []entity.Message {
	merged := make([]entity.Message, 0, len(v.server)+len(v.local))
	merged = append(merged, v.server...)
	merged = append(merged, v.local...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})
	return merged
}

// Open restores a cached session if the server still accepts it, otherwise
// waits for the visitor's identity. Background polling lives until Close or
// until ctx is done.
func (v *Visitor) Open(ctx context.Context) error {
	v.mu.Lock()
	if v.state != StateClosed {
		v.mu.Unlock()
		return nil
	}
	v.state = StateRestoring
	v.generation++
	gen := v.generation
	v.session = nil
	v.server = nil
	v.local = nil
	v.lastID = ""
	v.mu.Unlock()

	v.loadSettings(ctx, gen)

	session, err := v.restore(ctx)
	if err != nil {
		logger.Warn("Could not restore chat session: %v", err)
	}
	if session == nil {
		v.transition(gen, StateCollectingIdentity)
		return nil
	}

	v.start(ctx, gen, session)
	return nil
}

func (v *Visitor) restore(ctx context.Context) (*Session, error) {
	cached, err := v.sessions.Load()
	if err != nil || cached == nil {
		return nil, err
	}
	if cached.Expired(v.now()) {
		return nil, v.sessions.Clear()
	}

	session, err := v.api.GetSession(ctx, cached.Token)
	if err != nil {
		if IsStatus(err, http.StatusUnauthorized) || IsStatus(err, http.StatusNotFound) {
			return nil, v.sessions.Clear()
		}
		return nil, err
	}
	return session, nil
}

// SubmitIdentity opens a conversation for the visitor.
func (v *Visitor) SubmitIdentity(ctx context.Context, userName, userEmail string) error {
	userName = strings.TrimSpace(userName)
	userEmail = strings.TrimSpace(userEmail)
	if userName == "" {
		return errors.Validation("userName", "Name is required")
	}
	if !entity.IsValidEmail(userEmail) {
		return errors.Validation("userEmail", "A valid email is required")
	}

	v.mu.Lock()
	if v.state != StateCollectingIdentity {
		v.mu.Unlock()
		return ErrNotReady
	}
	gen := v.generation
	v.mu.Unlock()

	session, err := v.api.CreateConversation(ctx, userName, userEmail)
	if err != nil {
		return err
	}
	if err := v.sessions.Save(session); err != nil {
		logger.Warn("Could not cache chat session: %v", err)
	}

	v.start(ctx, gen, session)
	return nil
}

func (v *Visitor) start(ctx context.Context, gen uint64, session *Session) {
	loopCtx, stop := context.WithCancel(ctx)

	v.mu.Lock()
	if v.generation != gen {
		v.mu.Unlock()
		stop()
		return
	}
	v.session = session
	v.stop = stop
	v.refresh = make(chan struct{}, 1)
	v.state = StateReady
	loops := 2
	if v.stream {
		loops++
	}
	v.wg.Add(loops)
	v.mu.Unlock()

	if err := v.refreshMessages(loopCtx, gen); err != nil {
		logger.Warn("Initial message load failed for %s: %v", session.ConversationID, err)
	}

	go v.pollLoop(loopCtx, gen)
	go v.settingsLoop(loopCtx, gen)
	if v.stream {
		go v.streamLoop(loopCtx, session.Token)
	}
}

// Close stops background work. Results that arrive afterwards are dropped.
func (v *Visitor) Close() {
	v.mu.Lock()
	if v.state == StateClosed {
		v.mu.Unlock()
		return
	}
	v.state = StateClosed
	v.generation++
	stop := v.stop
	v.stop = nil
	v.mu.Unlock()

	if stop != nil {
		stop()
	}
	v.wg.Wait()
}

// Send posts a visitor message. The message stays visible even when a later
// step fails; a failed assistant reply is replaced by a local apology. Closing
// the widget mid-send does not stop the relay, it only drops local updates.
func (v *Visitor) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.Validation("message", "Message is required")
	}

	v.mu.Lock()
	if v.state != StateReady {
		v.mu.Unlock()
		return ErrNotReady
	}
	v.state = StateSending
	gen := v.generation
	session := *v.session
	pending := v.addLocalLocked(text, entity.SenderUser)
	history := v.historyLocked(pending.ID)
	v.mu.Unlock()
	defer v.transition(gen, StateReady)

	messageID, err := v.api.SaveMessage(ctx, SaveMessageRequest{
		ConversationID: session.ConversationID,
		Message:        text,
		Sender:         entity.SenderUser,
		UserName:       session.UserName,
		UserEmail:      session.UserEmail,
	})
	if err != nil {
		v.withGeneration(gen, func() {
			v.addLocalLocked(usecase.ApologyText(v.contactEmail), entity.SenderAI)
		})
		return err
	}
	v.withGeneration(gen, func() { v.confirmLocked(pending.ID, messageID) })

	status, err := v.api.AdminStatus(ctx)
	if err != nil {
		logger.Warn("Presence check failed, answering with assistant: %v", err)
	}
	if err == nil && status.IsOnline {
		return nil
	}

	reply, err := v.api.Chat(ctx, text, history)
	if err != nil {
		logger.Warn("Assistant reply failed for %s: %v", session.ConversationID, err)
		v.withGeneration(gen, func() {
			v.addLocalLocked(usecase.ApologyText(v.contactEmail), entity.SenderAI)
		})
		return nil
	}

	replyID, err := v.api.SaveMessage(ctx, SaveMessageRequest{
		ConversationID: session.ConversationID,
		Message:        reply,
		Sender:         entity.SenderAI,
	})
	v.withGeneration(gen, func() {
		local := v.addLocalLocked(reply, entity.SenderAI)
		if err == nil {
			v.confirmLocked(local.ID, replyID)
		}
	})
	if err != nil {
		logger.Warn("Could not store assistant reply for %s: %v", session.ConversationID, err)
	}
	return nil
}

// withGeneration runs fn under the lock unless the widget was closed or
// reopened since gen. It reports whether fn ran.
func (v *Visitor) withGeneration(gen uint64, fn func()) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.generation != gen {
		return false
	}
	fn()
	return true
}

func (v *Visitor) transition(gen uint64, state VisitorState) {
	v.withGeneration(gen, func() { v.state = state })
}

func (v *Visitor) addLocalLocked(text, sender string) entity.Message {
	v.localSeq++
	message := entity.Message{
		ID:        fmt.Sprintf("%s%d", localIDPrefix, v.localSeq),
		Text:      text,
		Sender:    sender,
		Timestamp: v.now().UTC(),
	}
	v.local = append(v.local, message)
	return message
}

// confirmLocked moves a local message into the server transcript under its stored ID.
func (v *Visitor) confirmLocked(localID, serverID string) {
	for i, message := range v.local {
		if message.ID != localID {
			continue
		}
		v.local = append(v.local[:i], v.local[i+1:]...)
		for _, existing := range v.server {
			if existing.ID == serverID {
				return
			}
		}
		message.ID = serverID
		v.server = append(v.server, message)
		return
	}
}

// historyLocked returns the turns preceding messageID for the assistant.
func (v *Visitor) historyLocked(messageID string) []entity.ChatTurn {
	transcript := v.transcriptLocked()
	turns := make([]entity.ChatTurn, 0, len(transcript))
	for _, message := range transcript {
		if message.ID == messageID {
			break
		}
		turns = append(turns, message.Turn())
	}
	return usecase.TrimHistory(turns)
}

func (v *Visitor) refreshMessages(ctx context.Context, gen uint64) error {
	v.mu.Lock()
	if v.session == nil {
		v.mu.Unlock()
		return nil
	}
	conversationID := v.session.ConversationID
	v.mu.Unlock()

	messages, err := v.api.Messages(ctx, conversationID)
	if err != nil {
		return err
	}

	var notify *entity.Message
	v.withGeneration(gen, func() {
		v.server = messages
		if len(messages) == 0 {
			return
		}
		newest := messages[len(messages)-1]
		if v.lastID != "" && newest.ID != v.lastID &&
			(newest.Sender == entity.SenderAdmin || newest.Sender == entity.SenderAI) {
			notify = &newest
		}
		v.lastID = newest.ID
	})

	if notify != nil {
		v.notifier.Publish(Notification{
			Kind:   NotifyMessage,
			Sender: notify.Sender,
			Text:   notify.Text,
		})
	}
	return nil
}

func (v *Visitor) loadSettings(ctx context.Context, gen uint64) {
	settings, err := v.api.Settings(ctx)
	if err != nil {
		logger.Debug("Could not load chat settings: %v", err)
		return
	}
	v.withGeneration(gen, func() { v.settings = settings.WithDefaults() })
}

func (v *Visitor) pollLoop(ctx context.Context, gen uint64) {
	defer v.wg.Done()
	ticker := time.NewTicker(v.pollInterval)
	defer ticker.Stop()

	v.mu.Lock()
	refresh := v.refresh
	v.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-refresh:
		}
		if err := v.refreshMessages(ctx, gen); err != nil && ctx.Err() == nil {
			logger.Debug("Message poll failed: %v", err)
		}
	}
}

func (v *Visitor) settingsLoop(ctx context.Context, gen uint64) {
	defer v.wg.Done()
	ticker := time.NewTicker(v.settingsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			v.loadSettings(ctx, gen)
		}
	}
}

// streamLoop nudges the poll loop whenever the server pushes an event.
func (v *Visitor) streamLoop(ctx context.Context, token string) {
	defer v.wg.Done()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, v.api.StreamURL(token), nil)
	if err != nil {
		logger.Warn("Event stream unavailable, relying on polling: %v", err)
		return
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	v.mu.Lock()
	refresh := v.refresh
	v.mu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if ctx.Err() == nil {
				logger.Debug("Event stream closed: %v", err)
			}
			return
		}
		select {
		case refresh <- struct{}{}:
		default:
		}
	}
}
