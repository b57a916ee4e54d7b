package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sulestate/internal/domain/entity"
	"sulestate/pkg/errors"
)

const defaultTimeout = 15 * time.Second

// API talks to the chat relay over its JSON envelope.
type API struct {
	baseURL    string
	httpClient *http.Client
	adminToken string
}

type Option func(*API)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(a *API) { a.httpClient = httpClient }
}

// WithAdminToken sets the bearer token sent to admin endpoints.
func WithAdminToken(token string) Option {
	return func(a *API) { a.adminToken = token }
}

func NewAPI(baseURL string, opts ...Option) *API {
	api := &API{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(api)
	}
	return api
}

// APIError is a failed envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
	Field   string
	Details string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s (%d): %s: %s", e.Code, e.Status, e.Message, e.Details)
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Field   string `json:"field"`
		Details string `json:"details"`
	} `json:"error"`
}

// Session is the visitor's cached identity.
type Session struct {
	ConversationID string    `json:"conversationId"`
	UserName       string    `json:"userName"`
	UserEmail      string    `json:"userEmail"`
	Token          string    `json:"sessionToken"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

// Expired reports whether the session is unusable at now.
func (s *Session) Expired(now time.Time) bool {
	return s == nil || s.Token == "" || !now.Before(s.ExpiresAt)
}

type PresenceStatus struct {
	IsOnline bool       `json:"isOnline"`
	LastSeen *time.Time `json:"lastSeen"`
}

type SaveMessageRequest struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
	Sender         string `json:"sender"`
	UserName       string `json:"userName,omitempty"`
	UserEmail      string `json:"userEmail,omitempty"`
}

func (a *API) CreateConversation(ctx context.Context, userName, userEmail string) (*Session, error) {
	var session Session
	err := a.do(ctx, http.MethodPost, "/create-conversation", nil, map[string]string{
		"userName":  userName,
		"userEmail": userEmail,
	}, "", &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSession validates a visitor token with the server.
func (a *API) GetSession(ctx context.Context, token string) (*Session, error) {
	var session Session
	if err := a.do(ctx, http.MethodGet, "/session", nil, nil, token, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// SaveMessage stores a message. Admin replies carry the admin token.
func (a *API) SaveMessage(ctx context.Context, req SaveMessageRequest) (string, error) {
	var saved struct {
		MessageID string `json:"messageId"`
	}
	bearer := ""
	if req.Sender == entity.SenderAdmin {
		bearer = a.adminToken
	}
	if err := a.do(ctx, http.MethodPost, "/save-message", nil, req, bearer, &saved); err != nil {
		return "", err
	}
	return saved.MessageID, nil
}

func (a *API) Messages(ctx context.Context, conversationID string) ([]entity.Message, error) {
	var messages []entity.Message
	query := url.Values{"conversationId": {conversationID}}
	if err := a.do(ctx, http.MethodGet, "/messages", query, nil, "", &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (a *API) Conversations(ctx context.Context) ([]entity.Conversation, error) {
	var conversations []entity.Conversation
	if err := a.do(ctx, http.MethodGet, "/conversations", nil, nil, a.adminToken, &conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}

func (a *API) DeleteConversation(ctx context.Context, conversationID string) error {
	query := url.Values{"conversationId": {conversationID}}
	return a.do(ctx, http.MethodDelete, "/delete-conversation", query, nil, a.adminToken, nil)
}

func (a *API) AdminStatus(ctx context.Context) (*PresenceStatus, error) {
	var status PresenceStatus
	if err := a.do(ctx, http.MethodGet, "/admin-status", nil, nil, "", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (a *API) SetAdminStatus(ctx context.Context, isOnline bool) error {
	return a.do(ctx, http.MethodPost, "/admin-status", nil, map[string]bool{"isOnline": isOnline}, a.adminToken, nil)
}

func (a *API) Settings(ctx context.Context) (*entity.ChatSettings, error) {
	var settings entity.ChatSettings
	if err := a.do(ctx, http.MethodGet, "/admin-settings", nil, nil, "", &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

func (a *API) UpdateSettings(ctx context.Context, settings entity.ChatSettings) (*entity.ChatSettings, error) {
	var updated entity.ChatSettings
	body := map[string]string{
		"avatarUrl":   settings.AvatarURL,
		"displayName": settings.DisplayName,
		"title":       settings.Title,
	}
	if err := a.do(ctx, http.MethodPost, "/admin-settings", nil, body, a.adminToken, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Chat asks the assistant for a reply to message given the prior turns.
func (a *API) Chat(ctx context.Context, message string, history []entity.ChatTurn) (string, error) {
	var reply struct {
		Reply string `json:"reply"`
	}
	body := map[string]interface{}{
		"message":             message,
		"conversationHistory": history,
	}
	if err := a.do(ctx, http.MethodPost, "/chat", nil, body, "", &reply); err != nil {
		return "", err
	}
	return reply.Reply, nil
}

// StreamURL is the websocket endpoint for a visitor token, or for the admin
// token when visitorToken is empty.
func (a *API) StreamURL(visitorToken string) string {
	base := a.baseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	query := url.Values{}
	if visitorToken != "" {
		query.Set("token", visitorToken)
	} else {
		query.Set("admin_token", a.adminToken)
	}
	return base + "/ws?" + query.Encode()
}

func (a *API) do(ctx context.Context, method, path string, query url.Values, body interface{}, bearer string, out interface{}) error {
	target := a.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &APIError{Status: resp.StatusCode, Code: errors.CodeInternal, Message: "Malformed response", Details: err.Error()}
	}

	if !env.Success || resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode, Code: errors.CodeInternal, Message: http.StatusText(resp.StatusCode)}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			apiErr.Field = env.Error.Field
			apiErr.Details = env.Error.Details
		}
		return apiErr
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
