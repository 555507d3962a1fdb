package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestUser_PasswordHashesNullable(t *testing.T) {
	// 管理员占位行等场景下两个hash列都可能为NULL
	var user User
	if user.LoginPasswordHash != nil {
		t.Error("zero-value user should have no login password hash")
	}
	if user.PayPasswordHash != nil {
		t.Error("zero-value user should have no pay password hash")
	}

	hash := "$2a$10$abcdefghijklmnopqrstuv"
	user.LoginPasswordHash = &hash
	user.PayPasswordHash = &hash

	// hash永远不进JSON响应
	payload, err := json.Marshal(user)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if strings.Contains(string(payload), hash) {
		t.Error("password hashes must not appear in JSON output")
	}
}
