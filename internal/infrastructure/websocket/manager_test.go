package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sulestate/internal/domain/entity"
)

func receive(t *testing.T, client *Client) WSMessage {
	t.Helper()
	select {
	case payload := <-client.Send:
		var frame WSMessage
		require.NoError(t, json.Unmarshal(payload, &frame))
		return frame
	case <-time.After(time.Second):
		t.Fatalf("no frame delivered to %s", client.ID)
		return WSMessage{}
	}
}

func TestManagerRoutesEventsByConversation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	manager := NewManager()
	manager.Start(ctx)

	visitorA := NewClient("visitor-a", "conv-a", nil)
	visitorB := NewClient("visitor-b", "conv-b", nil)
	admin := NewClient("admin", "", nil)
	manager.Register <- visitorA
	manager.Register <- visitorB
	manager.Register <- admin
	require.Eventually(t, func() bool { return manager.ClientCount() == 3 }, time.Second, 10*time.Millisecond)

	manager.PublishMessage("conv-a", &entity.Message{ID: "m1", Text: "Hi", Sender: entity.SenderUser})

	frame := receive(t, visitorA)
	assert.Equal(t, MessageTypeMessage, frame.Type)
	assert.Equal(t, "conv-a", frame.ConversationID)

	frame = receive(t, admin)
	assert.Equal(t, "conv-a", frame.ConversationID)

	select {
	case <-visitorB.Send:
		t.Fatal("visitor of another conversation received the event")
	default:
	}

	manager.PublishConversationDeleted("conv-b")
	assert.Equal(t, MessageTypeConversationDeleted, receive(t, visitorB).Type)
	assert.Equal(t, MessageTypeConversationDeleted, receive(t, admin).Type)
}

func TestManagerAnswersPing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	manager := NewManager()
	manager.Start(ctx)

	client := NewClient("c1", "conv", nil)
	manager.Register <- client
	require.Eventually(t, func() bool { return manager.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	manager.HandleClientMessage(client, []byte(`{"type":"ping"}`))
	assert.Equal(t, MessageTypePong, receive(t, client).Type)

	manager.HandleClientMessage(client, []byte(`not json`))
	assert.Equal(t, MessageTypeError, receive(t, client).Type)
}

func TestManagerDisconnectsOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	manager := NewManager()
	manager.Start(ctx)

	client := NewClient("c1", "conv", nil)
	manager.Register <- client
	require.Eventually(t, func() bool { return manager.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	require.Eventually(t, func() bool { return manager.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
	_, open := <-client.Send
	assert.False(t, open)
}

func TestConnectAfterShutdownIsRejected(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	manager := NewManager()
	manager.Start(ctx)

	assert.True(t, manager.Connect(NewClient("c1", "conv", nil)))
	cancel()
	require.Eventually(t, func() bool { return manager.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
	assert.False(t, manager.Connect(NewClient("c2", "conv", nil)))
}
