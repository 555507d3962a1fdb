package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yuewan10000-ops/task-platform/models"
	"github.com/yuewan10000-ops/task-platform/services"
)

// memoryCaptchaStore in-memory store for handler tests
type memoryCaptchaStore struct {
	nextID   int64
	captchas map[int64]*models.Captcha
}

func newMemoryCaptchaStore() *memoryCaptchaStore {
	return &memoryCaptchaStore{captchas: make(map[int64]*models.Captcha)}
}

func (s *memoryCaptchaStore) DeleteExpired(now time.Time) error {
	for id, c := range s.captchas {
		if c.ExpiresAt.Before(now) {
			delete(s.captchas, id)
		}
	}
	return nil
}

func (s *memoryCaptchaStore) GetBySession(sessionID string) (*models.Captcha, error) {
	for _, c := range s.captchas {
		if c.SessionID == sessionID {
			copied := *c
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *memoryCaptchaStore) DeleteBySession(sessionID string) error {
	for id, c := range s.captchas {
		if c.SessionID == sessionID {
			delete(s.captchas, id)
		}
	}
	return nil
}

func (s *memoryCaptchaStore) Delete(id int64) error {
	delete(s.captchas, id)
	return nil
}

func (s *memoryCaptchaStore) Insert(captcha *models.Captcha) error {
	s.nextID++
	captcha.ID = s.nextID
	copied := *captcha
	s.captchas[captcha.ID] = &copied
	return nil
}

func createCaptchaTestRouter(store services.CaptchaStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	controller := NewCaptchaController(services.NewCaptchaServiceWithStore(store))
	controller.RegisterRoutes(router, nil)
	return router
}

func TestGetCaptchaImage_UnknownSession(t *testing.T) {
	router := createCaptchaTestRouter(newMemoryCaptchaStore())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/captcha/image/no-such-session", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestGetCaptchaImage_ExpiredSession(t *testing.T) {
	store := newMemoryCaptchaStore()
	now := time.Now()
	if err := store.Insert(&models.Captcha{
		SessionID: "sess-1",
		Code:      "123456",
		ExpiresAt: now.Add(-time.Second),
		CreatedAt: now.Add(-5 * time.Minute),
	}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	router := createCaptchaTestRouter(store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/captcha/image/sess-1", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestGetCaptchaImage_RendersStoredCode(t *testing.T) {
	store := newMemoryCaptchaStore()
	now := time.Now()
	if err := store.Insert(&models.Captcha{
		SessionID: "sess-1",
		Code:      "123456",
		ExpiresAt: now.Add(5 * time.Minute),
		CreatedAt: now,
	}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	router := createCaptchaTestRouter(store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/captcha/image/sess-1", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q, want image/png", ct)
	}
	if w.Body.Len() == 0 {
		t.Error("expected PNG payload")
	}
}
