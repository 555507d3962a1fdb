package services

import (
	"testing"
	"time"

	"github.com/yuewan10000-ops/task-platform/models"
)

// fakeCaptchaStore in-memory store for testing
type fakeCaptchaStore struct {
	nextID   int64
	captchas map[int64]*models.Captcha
}

func newFakeCaptchaStore() *fakeCaptchaStore {
	return &fakeCaptchaStore{captchas: make(map[int64]*models.Captcha)}
}

func (s *fakeCaptchaStore) DeleteExpired(now time.Time) error {
	for id, c := range s.captchas {
		if c.ExpiresAt.Before(now) {
			delete(s.captchas, id)
		}
	}
	return nil
}

func (s *fakeCaptchaStore) GetBySession(sessionID string) (*models.Captcha, error) {
	for _, c := range s.captchas {
		if c.SessionID == sessionID {
			copied := *c
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeCaptchaStore) DeleteBySession(sessionID string) error {
	for id, c := range s.captchas {
		if c.SessionID == sessionID {
			delete(s.captchas, id)
		}
	}
	return nil
}

func (s *fakeCaptchaStore) Delete(id int64) error {
	delete(s.captchas, id)
	return nil
}

func (s *fakeCaptchaStore) Insert(captcha *models.Captcha) error {
	s.nextID++
	captcha.ID = s.nextID
	copied := *captcha
	s.captchas[captcha.ID] = &copied
	return nil
}

func createTestCaptchaService() (*CaptchaService, *fakeCaptchaStore) {
	store := newFakeCaptchaStore()
	return NewCaptchaServiceWithStore(store), store
}

func TestCaptchaGenerate_ReplacesOldCode(t *testing.T) {
	svc, store := createTestCaptchaService()

	first, err := svc.Generate("sess-1")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if len(first.Code) != captchaLength {
		t.Errorf("code length = %d, want %d", len(first.Code), captchaLength)
	}

	// 同一会话重新生成后旧验证码失效
	second, err := svc.Generate("sess-1")
	if err != nil {
		t.Fatalf("regenerate failed: %v", err)
	}
	if len(store.captchas) != 1 {
		t.Errorf("store holds %d captchas, want 1", len(store.captchas))
	}
	if !svc.Verify("sess-1", second.Code) {
		t.Error("latest code should verify")
	}
}

func TestCaptchaGenerate_RandomSessionID(t *testing.T) {
	svc, _ := createTestCaptchaService()

	captcha, err := svc.Generate("")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if captcha.SessionID == "" {
		t.Error("expected a generated session id")
	}
}

func TestCaptchaVerify_SingleUse(t *testing.T) {
	svc, _ := createTestCaptchaService()

	captcha, err := svc.Generate("sess-1")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if !svc.Verify("sess-1", captcha.Code) {
		t.Fatal("first verify should succeed")
	}
	// 重放同一验证码必须失败
	if svc.Verify("sess-1", captcha.Code) {
		t.Error("replayed code should fail")
	}
}

func TestCaptchaVerify_WrongCodeConsumes(t *testing.T) {
	svc, _ := createTestCaptchaService()

	captcha, err := svc.Generate("sess-1")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if svc.Verify("sess-1", "000000x") {
		t.Error("wrong code should fail")
	}
	// 验证失败也会消耗验证码
	if svc.Verify("sess-1", captcha.Code) {
		t.Error("code should be consumed even after a failed attempt")
	}
}

func TestCaptchaVerify_CaseInsensitive(t *testing.T) {
	svc, store := createTestCaptchaService()

	now := time.Now()
	stored := &models.Captcha{
		SessionID: "sess-1",
		Code:      "AbC123",
		ExpiresAt: now.Add(time.Minute),
		CreatedAt: now,
	}
	if err := store.Insert(stored); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if !svc.Verify("sess-1", "abc123") {
		t.Error("verification should ignore case")
	}
}

func TestCaptchaVerify_Expired(t *testing.T) {
	svc, store := createTestCaptchaService()

	now := time.Now()
	stored := &models.Captcha{
		SessionID: "sess-1",
		Code:      "123456",
		ExpiresAt: now.Add(-time.Second),
		CreatedAt: now.Add(-captchaTTL),
	}
	if err := store.Insert(stored); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if svc.Verify("sess-1", "123456") {
		t.Error("expired code should fail")
	}
	if len(store.captchas) != 0 {
		t.Error("expired code should be swept")
	}
}

func TestCaptchaPeek_DoesNotConsume(t *testing.T) {
	svc, _ := createTestCaptchaService()

	captcha, err := svc.Generate("sess-1")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	peeked, err := svc.Peek("sess-1")
	if err != nil {
		t.Fatalf("peek failed: %v", err)
	}
	if peeked == nil || peeked.Code != captcha.Code {
		t.Fatal("peek should return the current code")
	}
	// 渲染图片不消耗验证码
	if !svc.Verify("sess-1", captcha.Code) {
		t.Error("code should still verify after peek")
	}
}

func TestCaptchaPeek_ExpiredReturnsNil(t *testing.T) {
	svc, store := createTestCaptchaService()

	now := time.Now()
	stored := &models.Captcha{
		SessionID: "sess-1",
		Code:      "123456",
		ExpiresAt: now.Add(-time.Second),
		CreatedAt: now.Add(-captchaTTL),
	}
	if err := store.Insert(stored); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	peeked, err := svc.Peek("sess-1")
	if err != nil {
		t.Fatalf("peek failed: %v", err)
	}
	if peeked != nil {
		t.Error("peek of expired captcha should return nil")
	}
}
