package websocket

import (
	"encoding/json"
	"time"

	"sulestate/pkg/logger"
)

// WebSocket Message Types
const (
	MessageTypePing                = "ping"
	MessageTypePong                = "pong"
	MessageTypeError               = "error"
	MessageTypeMessage             = "message"
	MessageTypeConversationDeleted = "conversation_deleted"
)

// WSMessage is the frame exchanged in both directions.
type WSMessage struct {
	Type           string      `json:"type"`
	ConversationID string      `json:"conversationId,omitempty"`
	Data           interface{} `json:"data,omitempty"`
	Timestamp      string      `json:"timestamp"`
}

// HandleClientMessage answers client frames. The stream is server-to-client;
// clients only ping.
func (m *Manager) HandleClientMessage(client *Client, messageBytes []byte) {
	var wsMessage WSMessage
	if err := json.Unmarshal(messageBytes, &wsMessage); err != nil {
		logger.Debug("WebSocket: invalid frame from client %s: %v", client.ID, err)
		m.sendToClient(client, errorFrame("Invalid message format"))
		return
	}

	switch wsMessage.Type {
	case MessageTypePing:
		m.sendToClient(client, WSMessage{
			Type:      MessageTypePong,
			Data:      map[string]string{"status": "alive"},
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	default:
		m.sendToClient(client, errorFrame("Unknown message type"))
	}
}

func errorFrame(message string) WSMessage {
	return WSMessage{
		Type:      MessageTypeError,
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func (m *Manager) sendToClient(client *Client, message WSMessage) {
	payload, err := json.Marshal(message)
	if err != nil {
		logger.Error("WebSocket: failed to marshal frame for %s: %v", client.ID, err)
		return
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if _, ok := m.clients[client]; !ok {
		return
	}
	select {
	case client.Send <- payload:
	default:
		logger.Warn("WebSocket: send buffer full for %s, frame dropped", client.ID)
	}
}
