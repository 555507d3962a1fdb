package services

import (
	"strings"
	"testing"
)

func TestListQuery_ExcludesAdminAndSubUsers(t *testing.T) {
	svc := &UserService{adminAccount: "admin"}

	query, args := svc.listQuery(nil)
	if !strings.Contains(query, "is_sub_user = false") {
		t.Error("query should exclude sub-users")
	}
	if !strings.Contains(query, "account != ?") {
		t.Error("query should exclude the admin account")
	}
	if len(args) != 1 || args[0] != "admin" {
		t.Errorf("args = %v, want [admin]", args)
	}
}

func TestListQuery_SubUserScope(t *testing.T) {
	svc := &UserService{adminAccount: "admin"}

	subUserID := int64(7)
	query, args := svc.listQuery(&subUserID)
	if !strings.Contains(query, "managed_by_sub_user_id = ?") {
		t.Error("query should scope to managed members")
	}
	if len(args) != 2 || args[1] != int64(7) {
		t.Errorf("args = %v, want [admin 7]", args)
	}
}
