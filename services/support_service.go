package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/yuewan10000-ops/task-platform/models"
)

// 系统客服ID（欢迎语等系统消息的发送方）
const SystemServiceID = 0

// 欢迎语
const welcomeMessage = "您好，欢迎咨询在线客服，请问有什么可以帮您？"

// SupportChannelPrefix 客服消息的Redis频道前缀，频道名为前缀+会话ID
const SupportChannelPrefix = "support:conv:"

// SupportService 客服会话服务
type SupportService struct {
	db  *sqlx.DB
	rdb *redis.Client
}

// NewSupportService 创建客服服务，rdb可为nil（不做实时推送）
func NewSupportService(db *sqlx.DB, rdb *redis.Client) *SupportService {
	return &SupportService{db: db, rdb: rdb}
}

const conversationColumns = `id, user_id, service_id, status, created_at, updated_at`

const messageColumns = `id, conversation_id, sender_type, sender_id, content, is_read, created_at, updated_at`

// ConversationWithUnread 会话及未读数（B端列表用）
type ConversationWithUnread struct {
	models.SupportConversation
	UserAccount string  `json:"user_account" db:"user_account"` // 会员账号
	UserName    *string `json:"user_name" db:"user_name"`       // 会员姓名
	UnreadCount int     `json:"unread_count" db:"unread_count"` // 会员侧未读消息数
	LastMessage *string `json:"last_message" db:"last_message"` // 最后一条消息
}

// OpenConversation 获取或创建该会员的进行中会话。新会话附带一条系统欢迎语。
func (s *SupportService) OpenConversation(userID int64) (*models.SupportConversation, error) {
	var conv models.SupportConversation
	err := s.db.Get(&conv,
		`SELECT `+conversationColumns+` FROM support_conversations WHERE user_id = ? AND status = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		userID, models.ConversationStatusOpen)
	if err == nil {
		return &conv, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	tx, err := s.db.Beginx()
	if err != nil {
		log.Printf("ERROR: Failed to begin transaction: %v", err)
		return nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
			log.Printf("INFO: Transaction rolled back")
		}
	}()

	now := time.Now()
	conv = models.SupportConversation{
		UserID:    userID,
		Status:    models.ConversationStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var result sql.Result
	result, err = tx.Exec(
		`INSERT INTO support_conversations (user_id, service_id, status, created_at, updated_at) VALUES (?, NULL, ?, ?, ?)`,
		userID, conv.Status, now, now,
	)
	if err != nil {
		log.Printf("ERROR: Failed to insert support conversation: %v", err)
		return nil, err
	}
	conv.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(
		`INSERT INTO support_messages (conversation_id, sender_type, sender_id, content, is_read, created_at, updated_at)
		 VALUES (?, ?, ?, ?, false, ?, ?)`,
		conv.ID, models.SenderTypeService, SystemServiceID, welcomeMessage, now, now,
	)
	if err != nil {
		log.Printf("ERROR: Failed to insert welcome message: %v", err)
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		log.Printf("ERROR: Failed to commit transaction: %v", err)
		return nil, err
	}

	log.Printf("INFO: Support conversation created: id=%d, user_id=%d", conv.ID, userID)
	return &conv, nil
}

// UserConversations 某会员的全部会话
func (s *SupportService) UserConversations(userID int64) ([]models.SupportConversation, error) {
	conversations := []models.SupportConversation{}
	query := `SELECT ` + conversationColumns + ` FROM support_conversations WHERE user_id = ? ORDER BY updated_at DESC, id DESC`
	if err := s.db.Select(&conversations, query, userID); err != nil {
		return nil, err
	}
	return conversations, nil
}

// ListWithUnread B端会话列表：每个会话带会员摘要、会员侧未读数和最后一条消息
func (s *SupportService) ListWithUnread() ([]ConversationWithUnread, error) {
	conversations := []ConversationWithUnread{}
	query := `
		SELECT c.id, c.user_id, c.service_id, c.status, c.created_at, c.updated_at,
		       u.account AS user_account, u.name AS user_name,
		       (SELECT COUNT(*) FROM support_messages m
		        WHERE m.conversation_id = c.id AND m.sender_type = ? AND m.is_read = false) AS unread_count,
		       (SELECT m.content FROM support_messages m
		        WHERE m.conversation_id = c.id ORDER BY m.created_at DESC, m.id DESC LIMIT 1) AS last_message
		FROM support_conversations c
		JOIN users u ON u.id = c.user_id
		ORDER BY c.updated_at DESC, c.id DESC
	`
	if err := s.db.Select(&conversations, query, models.SenderTypeUser); err != nil {
		return nil, err
	}
	return conversations, nil
}

// GlobalUnreadCount 全部会话的会员侧未读消息总数（B端角标）
func (s *SupportService) GlobalUnreadCount() (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM support_messages WHERE sender_type = ? AND is_read = false`
	if err := s.db.Get(&count, query, models.SenderTypeUser); err != nil {
		return 0, err
	}
	return count, nil
}

// MarkRead 把会话里对方发来的消息标记为已读。readerType为读取方身份，
// 标记的是另一方发送的消息。
func (s *SupportService) MarkRead(conversationID int64, readerType string) error {
	senderType := models.SenderTypeUser
	if readerType == models.SenderTypeUser {
		senderType = models.SenderTypeService
	}

	_, err := s.db.Exec(
		`UPDATE support_messages SET is_read = true, updated_at = ? WHERE conversation_id = ? AND sender_type = ? AND is_read = false`,
		time.Now(), conversationID, senderType,
	)
	return err
}

// ClearMessages 清空会话消息并刷新会话时间
func (s *SupportService) ClearMessages(conversationID int64) error {
	tx, err := s.db.Beginx()
	if err != nil {
		log.Printf("ERROR: Failed to begin transaction: %v", err)
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
			log.Printf("INFO: Transaction rolled back")
		}
	}()

	if _, err = tx.Exec(`DELETE FROM support_messages WHERE conversation_id = ?`, conversationID); err != nil {
		log.Printf("ERROR: Failed to clear messages of conversation %d: %v", conversationID, err)
		return err
	}
	if _, err = tx.Exec(`UPDATE support_conversations SET updated_at = ? WHERE id = ?`, time.Now(), conversationID); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		log.Printf("ERROR: Failed to commit transaction: %v", err)
		return err
	}
	return nil
}

// AssignService 指派客服
func (s *SupportService) AssignService(conversationID, serviceID int64) error {
	result, err := s.db.Exec(
		`UPDATE support_conversations SET service_id = ?, updated_at = ? WHERE id = ?`,
		serviceID, time.Now(), conversationID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("会话不存在")
	}
	return nil
}

// SendMessage 发送消息并刷新会话时间；成功后把消息发布到该会话的
// Redis频道，WebSocket端实时推送。发布失败只记日志。
func (s *SupportService) SendMessage(conversationID int64, senderType string, senderID int64, content string) (*models.SupportMessage, error) {
	if content == "" {
		return nil, fmt.Errorf("消息内容不能为空")
	}

	var conv models.SupportConversation
	err := s.db.Get(&conv, `SELECT `+conversationColumns+` FROM support_conversations WHERE id = ?`, conversationID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("会话不存在")
		}
		return nil, err
	}

	now := time.Now()
	msg := &models.SupportMessage{
		ConversationID: conversationID,
		SenderType:     senderType,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	tx, err := s.db.Beginx()
	if err != nil {
		log.Printf("ERROR: Failed to begin transaction: %v", err)
		return nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
			log.Printf("INFO: Transaction rolled back")
		}
	}()

	var result sql.Result
	result, err = tx.Exec(
		`INSERT INTO support_messages (conversation_id, sender_type, sender_id, content, is_read, created_at, updated_at)
		 VALUES (?, ?, ?, ?, false, ?, ?)`,
		conversationID, senderType, senderID, content, now, now,
	)
	if err != nil {
		log.Printf("ERROR: Failed to insert support message: %v", err)
		return nil, err
	}
	msg.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}

	if _, err = tx.Exec(`UPDATE support_conversations SET updated_at = ? WHERE id = ?`, now, conversationID); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		log.Printf("ERROR: Failed to commit transaction: %v", err)
		return nil, err
	}

	s.publish(msg)
	return msg, nil
}

// Messages 会话消息（按时间升序）
func (s *SupportService) Messages(conversationID int64) ([]models.SupportMessage, error) {
	messages := []models.SupportMessage{}
	query := `SELECT ` + messageColumns + ` FROM support_messages WHERE conversation_id = ? ORDER BY created_at ASC, id ASC`
	if err := s.db.Select(&messages, query, conversationID); err != nil {
		return nil, err
	}
	return messages, nil
}

// publish 把消息发到会话频道
func (s *SupportService) publish(msg *models.SupportMessage) {
	if s.rdb == nil {
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("WARN: Failed to marshal support message %d: %v", msg.ID, err)
		return
	}

	channel := fmt.Sprintf("%s%d", SupportChannelPrefix, msg.ConversationID)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		log.Printf("WARN: Failed to publish support message to %s: %v", channel, err)
	}
}
