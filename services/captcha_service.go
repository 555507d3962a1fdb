package services

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yuewan10000-ops/task-platform/models"
)

// 验证码参数
const (
	captchaAlphabet = "0123456789" // 纯数字，便于渲染图片
	captchaLength   = 6
	captchaTTL      = 5 * time.Minute
)

// CaptchaStore 验证码存储接口
type CaptchaStore interface {
	// 删除所有已过期的验证码
	DeleteExpired(now time.Time) error
	// 按会话ID查询验证码（不存在时返回nil）
	GetBySession(sessionID string) (*models.Captcha, error)
	// 删除指定会话的验证码
	DeleteBySession(sessionID string) error
	// 按ID删除验证码
	Delete(id int64) error
	// 插入验证码
	Insert(captcha *models.Captcha) error
}

// CaptchaService 图形验证码服务。
// 验证码一次性使用：无论验证结果如何都立即删除；
// 过期记录在每次生成/验证前顺带清理，不单独起定时任务。
type CaptchaService struct {
	store CaptchaStore
}

// NewCaptchaService 创建图形验证码服务
func NewCaptchaService(db *sqlx.DB) *CaptchaService {
	return &CaptchaService{store: &sqlCaptchaStore{db: db}}
}

// NewCaptchaServiceWithStore 使用自定义存储创建图形验证码服务
func NewCaptchaServiceWithStore(store CaptchaStore) *CaptchaService {
	return &CaptchaService{store: store}
}

// Generate 生成验证码。sessionID为空时随机生成一个；
// 同一会话的旧验证码会被新的替换。
func (s *CaptchaService) Generate(sessionID string) (*models.Captcha, error) {
	// 顺带清理过期验证码
	if err := s.store.DeleteExpired(time.Now()); err != nil {
		log.Printf("WARN: Failed to sweep expired captchas: %v", err)
	}

	if sessionID == "" {
		sessionID = randomSessionID()
	}

	// 同一会话只保留最新一条
	if err := s.store.DeleteBySession(sessionID); err != nil {
		return nil, err
	}

	now := time.Now()
	captcha := &models.Captcha{
		SessionID: sessionID,
		Code:      RandomCode(captchaAlphabet, captchaLength),
		ExpiresAt: now.Add(captchaTTL),
		CreatedAt: now,
	}
	if err := s.store.Insert(captcha); err != nil {
		log.Printf("ERROR: Failed to store captcha for session %s: %v", sessionID, err)
		return nil, fmt.Errorf("生成验证码失败")
	}

	log.Printf("INFO: Captcha generated for session: %s", sessionID)
	return captcha, nil
}

// Peek 获取会话当前未过期的验证码（渲染图片用，不消耗验证码）
func (s *CaptchaService) Peek(sessionID string) (*models.Captcha, error) {
	captcha, err := s.store.GetBySession(sessionID)
	if err != nil {
		return nil, err
	}
	if captcha == nil || time.Now().After(captcha.ExpiresAt) {
		return nil, nil
	}
	return captcha, nil
}

// Verify 校验验证码（不区分大小写）。
// 无论匹配与否，记录都会被删除，同一验证码不可重放。
func (s *CaptchaService) Verify(sessionID, code string) bool {
	if err := s.store.DeleteExpired(time.Now()); err != nil {
		log.Printf("WARN: Failed to sweep expired captchas: %v", err)
	}

	captcha, err := s.store.GetBySession(sessionID)
	if err != nil {
		log.Printf("ERROR: Failed to load captcha for session %s: %v", sessionID, err)
		return false
	}
	if captcha == nil {
		log.Printf("WARN: Captcha not found for session: %s", sessionID)
		return false
	}

	if time.Now().After(captcha.ExpiresAt) {
		if err := s.store.Delete(captcha.ID); err != nil {
			log.Printf("ERROR: Failed to delete expired captcha %d: %v", captcha.ID, err)
		}
		log.Printf("WARN: Captcha expired for session: %s", sessionID)
		return false
	}

	matched := strings.EqualFold(captcha.Code, code)

	// 一次性使用：验证后立即删除
	if err := s.store.Delete(captcha.ID); err != nil {
		log.Printf("ERROR: Failed to delete captcha %d: %v", captcha.ID, err)
	}

	if !matched {
		log.Printf("WARN: Invalid captcha code for session: %s", sessionID)
	}
	return matched
}

// randomSessionID 生成随机会话ID
func randomSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

// sqlCaptchaStore MySQL验证码存储
type sqlCaptchaStore struct {
	db *sqlx.DB
}

func (s *sqlCaptchaStore) DeleteExpired(now time.Time) error {
	_, err := s.db.Exec(`DELETE FROM captchas WHERE expires_at < ?`, now)
	return err
}

func (s *sqlCaptchaStore) GetBySession(sessionID string) (*models.Captcha, error) {
	var captcha models.Captcha
	err := s.db.Get(&captcha, `SELECT id, session_id, code, expires_at, created_at FROM captchas WHERE session_id = ?`, sessionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &captcha, nil
}

func (s *sqlCaptchaStore) DeleteBySession(sessionID string) error {
	_, err := s.db.Exec(`DELETE FROM captchas WHERE session_id = ?`, sessionID)
	return err
}

func (s *sqlCaptchaStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM captchas WHERE id = ?`, id)
	return err
}

func (s *sqlCaptchaStore) Insert(captcha *models.Captcha) error {
	result, err := s.db.Exec(
		`INSERT INTO captchas (session_id, code, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		captcha.SessionID, captcha.Code, captcha.ExpiresAt, captcha.CreatedAt,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	captcha.ID = id
	return nil
}
