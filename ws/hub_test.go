package ws

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/redis/go-redis/v9"

	"github.com/yuewan10000-ops/task-platform/models"
)

// Test helper functions

func createTestHub(history HistoryLoader) *Hub {
	return NewHub(history)
}

func createTestClient() *Client {
	return &Client{
		Send:          make(chan []byte, 256),
		Subscriptions: make(map[string]bool),
	}
}

func createTestMessage(id, conversationID int64, content string) models.SupportMessage {
	return models.SupportMessage{
		ID:             id,
		ConversationID: conversationID,
		SenderType:     models.SenderTypeUser,
		SenderID:       1,
		Content:        content,
		CreatedAt:      time.Now(),
	}
}

// Basic unit tests

func TestHub_Creation(t *testing.T) {
	hub := createTestHub(nil)
	if hub == nil {
		t.Fatal("Failed to create hub")
	}
	if hub.Clients == nil {
		t.Error("Hub.Clients should not be nil")
	}
	if hub.Subscriptions == nil {
		t.Error("Hub.Subscriptions should not be nil")
	}
}

func TestHub_Subscribe(t *testing.T) {
	hub := createTestHub(nil)
	client := createTestClient()

	channel := "support:conv:42"
	hub.Subscribe(client, channel)

	// Give some time for async snapshot send
	time.Sleep(50 * time.Millisecond)

	hub.subMutex.RLock()
	clients, exists := hub.Subscriptions[channel]
	hub.subMutex.RUnlock()

	if !exists {
		t.Error("Channel should exist in subscriptions")
	}
	if !clients[client] {
		t.Error("Client should be subscribed to channel")
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := createTestHub(nil)
	client := createTestClient()

	channel := "support:conv:42"
	hub.Subscribe(client, channel)
	time.Sleep(50 * time.Millisecond)

	hub.Unsubscribe(client, channel)

	hub.subMutex.RLock()
	clients, exists := hub.Subscriptions[channel]
	hub.subMutex.RUnlock()

	if exists && clients[client] {
		t.Error("Client should not be subscribed after unsubscribe")
	}
}

func TestHub_SnapshotOnSubscribe(t *testing.T) {
	history := func(conversationID int64) ([]models.SupportMessage, error) {
		return []models.SupportMessage{
			createTestMessage(1, conversationID, "你好"),
			createTestMessage(2, conversationID, "请问有什么可以帮您"),
		}, nil
	}

	hub := createTestHub(history)
	client := createTestClient()

	hub.Subscribe(client, "support:conv:7")
	time.Sleep(100 * time.Millisecond)

	if len(client.Send) == 0 {
		t.Fatal("Client should receive a snapshot on subscribe")
	}

	var snapshot SnapshotMessage
	if err := json.Unmarshal(<-client.Send, &snapshot); err != nil {
		t.Fatalf("Failed to unmarshal snapshot: %v", err)
	}
	if snapshot.Type != "snapshot" {
		t.Errorf("Expected type 'snapshot', got '%s'", snapshot.Type)
	}
	if snapshot.ConversationID != 7 {
		t.Errorf("Expected conversation 7, got %d", snapshot.ConversationID)
	}
	if len(snapshot.Data) != 2 {
		t.Errorf("Expected 2 messages, got %d", len(snapshot.Data))
	}
}

func TestHub_ForwardOnlyToSubscribedConversation(t *testing.T) {
	hub := createTestHub(nil)
	subscribed := createTestClient()
	other := createTestClient()

	hub.Subscribe(subscribed, "support:conv:1")
	hub.Subscribe(other, "support:conv:2")
	time.Sleep(50 * time.Millisecond)

	msg := createTestMessage(10, 1, "只发给会话1")
	payload, _ := json.Marshal(msg)
	hub.handleSupportMessage(&redis.Message{
		Channel: "support:conv:1",
		Payload: string(payload),
	})

	if len(subscribed.Send) == 0 {
		t.Fatal("Subscribed client should receive the message")
	}
	if len(other.Send) != 0 {
		t.Error("Client of another conversation should receive nothing")
	}

	var update UpdateMessage
	if err := json.Unmarshal(<-subscribed.Send, &update); err != nil {
		t.Fatalf("Failed to unmarshal update: %v", err)
	}
	if update.Type != "message" {
		t.Errorf("Expected type 'message', got '%s'", update.Type)
	}
	if update.Message.Content != "只发给会话1" {
		t.Errorf("Unexpected content: %s", update.Message.Content)
	}
}

func TestHub_CleanUpSubscriptions(t *testing.T) {
	hub := createTestHub(nil)
	client := createTestClient()

	channels := []string{"support:conv:1", "support:conv:2"}
	for _, channel := range channels {
		hub.Subscribe(client, channel)
		client.Subscriptions[channel] = true
	}
	time.Sleep(50 * time.Millisecond)

	hub.cleanUpSubscriptions(client)

	hub.subMutex.RLock()
	defer hub.subMutex.RUnlock()
	for _, channel := range channels {
		if clients, ok := hub.Subscriptions[channel]; ok && clients[client] {
			t.Errorf("Channel %s should be cleaned up", channel)
		}
	}
}

func TestSplitChannel(t *testing.T) {
	parts := splitChannel("support:conv:123")
	if len(parts) != 3 || parts[0] != "support" || parts[1] != "conv" || parts[2] != "123" {
		t.Errorf("Unexpected parts: %v", parts)
	}

	parts = splitChannel("nocolon")
	if len(parts) != 1 || parts[0] != "nocolon" {
		t.Errorf("Unexpected parts: %v", parts)
	}
}

// Property-based tests

// **Property: every subscriber of a conversation receives every forwarded message**
// For any support message published on a conversation channel, all clients
// subscribed to that channel (and only those) receive exactly one update.
func TestProperty_MessageFanout(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("all subscribers receive the update", prop.ForAll(
		func(numSubscribers int, conversationID int64) bool {
			hub := createTestHub(nil)
			channel := fmt.Sprintf("support:conv:%d", conversationID)

			clients := make([]*Client, numSubscribers)
			for i := range clients {
				clients[i] = createTestClient()
				hub.Subscribe(clients[i], channel)
			}
			time.Sleep(20 * time.Millisecond)

			msg := createTestMessage(1, conversationID, "广播内容")
			payload, _ := json.Marshal(msg)
			hub.handleSupportMessage(&redis.Message{
				Channel: channel,
				Payload: string(payload),
			})

			for _, client := range clients {
				if len(client.Send) != 1 {
					return false
				}
				var update UpdateMessage
				if err := json.Unmarshal(<-client.Send, &update); err != nil {
					return false
				}
				if update.ConversationID != conversationID {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 10),
		gen.Int64Range(1, 1000),
	))

	properties.TestingRun(t)
}
