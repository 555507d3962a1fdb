package ws

import "fmt"

// ClientMessage 前端发送给我们的订阅/取消订阅消息
type ClientMessage struct {
	Action         string `json:"action"`          // "subscribe" 或 "unsubscribe"
	ConversationID int64  `json:"conversation_id"` // 会话ID
}

// ToChannelName 将客户端消息转换为Redis的频道名称
func (cm *ClientMessage) ToChannelName() (string, error) {
	if cm.ConversationID <= 0 {
		return "", fmt.Errorf("invalid message: conversation_id is required")
	}
	return fmt.Sprintf("support:conv:%d", cm.ConversationID), nil
}
