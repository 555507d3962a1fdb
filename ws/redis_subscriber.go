package ws

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
)

// PubSubManager Redis订阅管理器
type PubSubManager struct {
	rdb *redis.Client
	hub *Hub
	ctx context.Context
}

// NewPubSubManager 创建订阅管理器
func NewPubSubManager(rdb *redis.Client, hub *Hub) *PubSubManager {
	return &PubSubManager{
		rdb: rdb,
		hub: hub,
		ctx: context.Background(),
	}
}

// Run 启动订阅
func (pm *PubSubManager) Run() {
	// 订阅所有客服会话频道
	pubsub := pm.rdb.PSubscribe(pm.ctx, "support:conv:*")
	defer pubsub.Close()

	log.Println("Subscribed to Redis channel: support:conv:*")

	// 接收消息
	ch := pubsub.Channel()
	for msg := range ch {
		pm.hub.RedisMessages <- msg
	}

	log.Println("WARN: Redis subscription channel closed")
}
