package entity

import (
	"regexp"
	"strings"
	"time"
)

const (
	ConversationActive   = "active"
	ConversationClosed   = "closed"
	ConversationArchived = "archived"
)

// WelcomeMessage seeds every new conversation.
const WelcomeMessage = "Hello! Welcome to SUL ESTATE. How can we help you with your property journey today?"

type Conversation struct {
	ID                string    `json:"id" firestore:"-"`
	UserName          string    `json:"userName" firestore:"userName"`
	UserEmail         string    `json:"userEmail" firestore:"userEmail"`
	Status            string    `json:"status" firestore:"status"`
	LastMessage       string    `json:"lastMessage" firestore:"lastMessage"`
	LastMessageTime   time.Time `json:"lastMessageTime" firestore:"lastMessageTime"`
	LastMessageSender string    `json:"lastMessageSender" firestore:"lastMessageSender"`
	UnreadCount       int       `json:"unreadCount" firestore:"unreadCount"`
	CreatedAt         time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	UpdatedAt         time.Time `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`
}

// ConversationSummary is the denormalized view of the newest message. Applying
// the same summary twice yields the same document.
type ConversationSummary struct {
	LastMessage       string
	LastMessageTime   time.Time
	LastMessageSender string
	UnreadCount       int
	UserName          string
	UserEmail         string
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsValidEmail reports whether s has the local@domain.tld shape required of visitors.
func IsValidEmail(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}

// Matches reports whether the conversation contains query in its name, email or
// last message, case-insensitively.
func (c *Conversation) Matches(query string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.UserName), query) ||
		strings.Contains(strings.ToLower(c.UserEmail), query) ||
		strings.Contains(strings.ToLower(c.LastMessage), query)
}
