package entity

import "time"

const (
	SenderUser  = "user"
	SenderAdmin = "admin"
	SenderAI    = "ai"
)

type Message struct {
	ID     string `json:"id" firestore:"-"`
	Text   string `json:"text" firestore:"text"`
	Sender string `json:"sender" firestore:"sender"` // "user", "admin", "ai"
	// Timestamp is assigned by the store and defines message order.
	Timestamp time.Time `json:"timestamp" firestore:"timestamp,serverTimestamp"`
	Read      bool      `json:"read" firestore:"read"`
}

func IsValidSender(sender string) bool {
	switch sender {
	case SenderUser, SenderAdmin, SenderAI:
		return true
	}
	return false
}

// ChatTurn is one entry of the rolling history sent to the completion service.
type ChatTurn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Turn maps a stored message onto the completion history roles.
func (m *Message) Turn() ChatTurn {
	role := "assistant"
	if m.Sender == SenderUser {
		role = "user"
	}
	return ChatTurn{Role: role, Content: m.Text}
}
