package ws

import (
	"encoding/json"
	"log"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/yuewan10000-ops/task-platform/models"
)

// HistoryLoader 加载会话的历史消息（订阅时的快照）
type HistoryLoader func(conversationID int64) ([]models.SupportMessage, error)

// Hub 维护所有活跃的客户端和订阅关系
type Hub struct {
	Clients       map[*Client]bool
	Subscriptions map[string]map[*Client]bool // Key: 频道, Value: 客户端Set
	subMutex      sync.RWMutex                // 保护 subscriptions
	RedisMessages chan *redis.Message         // 从 Redis 传入的消息
	Register      chan *Client                // 注册
	Unregister    chan *Client                // 注销
	history       HistoryLoader               // 历史消息加载器 (可为nil)
}

// NewHub 创建Hub
func NewHub(history HistoryLoader) *Hub {
	return &Hub{
		Clients:       make(map[*Client]bool),
		Subscriptions: make(map[string]map[*Client]bool),
		RedisMessages: make(chan *redis.Message, 1024),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		history:       history,
	}
}

// Run 启动 Hub 的主循环
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.Clients[client] = true
			log.Printf("Client registered: %s", client.remoteAddr())

		case client := <-h.Unregister:
			if _, ok := h.Clients[client]; ok {
				delete(h.Clients, client)
				close(client.Send)             // 关闭发送通道
				h.cleanUpSubscriptions(client) // 关键清理
				log.Printf("Client unregistered: %s", client.remoteAddr())
			}

		case msg := <-h.RedisMessages:
			// 从 Redis 收到客服消息, 转发给该会话的所有订阅者
			h.handleSupportMessage(msg)
		}
	}
}

// handleSupportMessage 处理客服消息
func (h *Hub) handleSupportMessage(msg *redis.Message) {
	channel := msg.Channel

	var supportMsg models.SupportMessage
	if err := json.Unmarshal([]byte(msg.Payload), &supportMsg); err != nil {
		log.Printf("Failed to parse support message: %v", err)
		return
	}

	update := UpdateMessage{
		Type:           "message",
		ConversationID: supportMsg.ConversationID,
		Message:        supportMsg,
	}
	payload, err := json.Marshal(update)
	if err != nil {
		log.Printf("Failed to marshal update message: %v", err)
		return
	}

	h.forwardMessage(channel, payload)
	log.Printf("Forwarded support message %d to conversation %d (subscribers=%d)",
		supportMsg.ID, supportMsg.ConversationID, h.getSubscriberCount(channel))
}

// forwardMessage 转发消息给订阅者
func (h *Hub) forwardMessage(channel string, payload []byte) {
	h.subMutex.RLock()
	defer h.subMutex.RUnlock()

	if clients, ok := h.Subscriptions[channel]; ok {
		for client := range clients {
			select {
			case client.Send <- payload: // 发送
			default: // 客户端缓冲满, 丢弃
				log.Printf("Client send buffer full. Dropping message for %s", client.remoteAddr())
			}
		}
	}
}

func (h *Hub) Subscribe(client *Client, channel string) {
	h.subMutex.Lock()
	if _, ok := h.Subscriptions[channel]; !ok {
		h.Subscriptions[channel] = make(map[*Client]bool)
	}
	h.Subscriptions[channel][client] = true
	h.subMutex.Unlock()

	log.Printf("Client %s subscribed to %s", client.remoteAddr(), channel)

	// 在锁外发送快照消息（避免死锁）
	go h.sendSnapshot(client, channel)
}

func (h *Hub) Unsubscribe(client *Client, channel string) {
	h.subMutex.Lock()
	defer h.subMutex.Unlock()
	if clients, ok := h.Subscriptions[channel]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.Subscriptions, channel)
		}
	}
}

// cleanUpSubscriptions 当客户端断开时, 清理其所有订阅
func (h *Hub) cleanUpSubscriptions(client *Client) {
	h.subMutex.Lock()
	defer h.subMutex.Unlock()
	for channel := range client.Subscriptions { // 遍历客户端的订阅列表
		if clients, ok := h.Subscriptions[channel]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.Subscriptions, channel) // 如果频道空了, 也删除
			}
		}
	}
}

// getSubscriberCount 获取频道订阅者数量
func (h *Hub) getSubscriberCount(channel string) int {
	h.subMutex.RLock()
	defer h.subMutex.RUnlock()
	if clients, ok := h.Subscriptions[channel]; ok {
		return len(clients)
	}
	return 0
}

// SnapshotMessage 快照消息（订阅时的历史消息列表）
type SnapshotMessage struct {
	Type           string                  `json:"type"` // "snapshot"
	ConversationID int64                   `json:"conversation_id"`
	Data           []models.SupportMessage `json:"data"`
}

// UpdateMessage 增量消息
type UpdateMessage struct {
	Type           string                `json:"type"` // "message"
	ConversationID int64                 `json:"conversation_id"`
	Message        models.SupportMessage `json:"message"`
}

// sendSnapshot 发送快照消息给客户端
func (h *Hub) sendSnapshot(client *Client, channel string) {
	if h.history == nil {
		return
	}

	// 解析channel: support:conv:ID
	parts := splitChannel(channel)
	if len(parts) != 3 || parts[0] != "support" || parts[1] != "conv" {
		log.Printf("Invalid channel format: %s", channel)
		return
	}
	conversationID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		log.Printf("Invalid conversation id in channel %s: %v", channel, err)
		return
	}

	messages, err := h.history(conversationID)
	if err != nil {
		log.Printf("Failed to load history for conversation %d: %v", conversationID, err)
		return
	}

	snapshot := SnapshotMessage{
		Type:           "snapshot",
		ConversationID: conversationID,
		Data:           messages,
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		log.Printf("Failed to marshal snapshot: %v", err)
		return
	}

	select {
	case client.Send <- payload:
		log.Printf("Sent snapshot to client %s: conversation %d (%d messages)",
			client.remoteAddr(), conversationID, len(messages))
	default:
		log.Printf("Client send buffer full, dropping snapshot")
	}
}

// splitChannel 分割频道字符串
func splitChannel(channel string) []string {
	result := []string{}
	start := 0
	for i := 0; i < len(channel); i++ {
		if channel[i] == ':' {
			result = append(result, channel[start:i])
			start = i + 1
		}
	}
	result = append(result, channel[start:])
	return result
}
