package services

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/yuewan10000-ops/task-platform/models"
)

// 子用户邀请码生成的重试上限（比会员注册宽松，批量补发时用）
const subUserInviteCodeMaxAttempts = 100

// SubUserService 子用户（B端客服账号）服务
type SubUserService struct {
	db           *sqlx.DB
	users        *UserService
	adminAccount string
}

// NewSubUserService 创建子用户服务
func NewSubUserService(db *sqlx.DB, users *UserService, adminAccount string) *SubUserService {
	return &SubUserService{db: db, users: users, adminAccount: adminAccount}
}

// SubUserWithAdmin 子用户及其所属管理员摘要
type SubUserWithAdmin struct {
	models.User
	ParentAdmin *UserSummary `json:"parent_admin"` // 所属管理员
}

// List 全部子用户（按创建时间倒序，带所属管理员）
func (s *SubUserService) List() ([]SubUserWithAdmin, error) {
	subUsers := []models.User{}
	query := `SELECT ` + userColumns + ` FROM users WHERE is_sub_user = true ORDER BY created_at DESC, id DESC`
	if err := s.db.Select(&subUsers, query); err != nil {
		return nil, err
	}

	result := make([]SubUserWithAdmin, 0, len(subUsers))
	for _, subUser := range subUsers {
		item := SubUserWithAdmin{User: subUser}
		if subUser.ParentAdminID != nil {
			var admin UserSummary
			err := s.db.Get(&admin, `SELECT id, account, name FROM users WHERE id = ?`, *subUser.ParentAdminID)
			if err != nil && err != sql.ErrNoRows {
				return nil, err
			}
			if err == nil {
				item.ParentAdmin = &admin
			}
		}
		result = append(result, item)
	}
	return result, nil
}

// ensureAdminUser 管理员在users表中的占位行，不存在时按需创建。
// 子用户通过parent_admin_id挂在该行下。
func (s *SubUserService) ensureAdminUser() (int64, error) {
	var id int64
	err := s.db.Get(&id, `SELECT id FROM users WHERE account = ? AND is_sub_user = false`, s.adminAccount)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	now := time.Now()
	name := "管理员"
	result, err := s.db.Exec(
		`INSERT INTO users (account, name, balance, invite_code, is_online, is_sub_user, created_at, updated_at)
		 VALUES (?, ?, 0, '', false, false, ?, ?)`,
		s.adminAccount, name, now, now,
	)
	if err != nil {
		log.Printf("ERROR: Failed to create admin user row: %v", err)
		return 0, err
	}
	id, err = result.LastInsertId()
	if err != nil {
		return 0, err
	}
	log.Printf("INFO: Admin user row created: id=%d, account=%s", id, s.adminAccount)
	return id, nil
}

// Create 创建子用户：账号唯一、双密码bcrypt、生成唯一邀请码并挂到管理员名下
func (s *SubUserService) Create(account, loginPassword, payPassword string) (*models.User, error) {
	existing, err := s.users.GetByAccount(account)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("账号已存在")
	}

	adminID, err := s.ensureAdminUser()
	if err != nil {
		return nil, err
	}

	inviteCode, err := GenerateUniqueCode(InviteCodeAlphabet, InviteCodeLength, subUserInviteCodeMaxAttempts, s.users.inviteCodeExists)
	if err != nil {
		return nil, err
	}

	loginHash, err := bcrypt.GenerateFromPassword([]byte(loginPassword), bcryptCost)
	if err != nil {
		return nil, err
	}
	payHash, err := bcrypt.GenerateFromPassword([]byte(payPassword), bcryptCost)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	loginHashStr := string(loginHash)
	payHashStr := string(payHash)
	user := &models.User{
		Account:           account,
		Name:              &account,
		LoginPasswordHash: &loginHashStr,
		PayPasswordHash:   &payHashStr,
		MyInviteCode:      &inviteCode,
		IsSubUser:         true,
		ParentAdminID:     &adminID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	result, err := s.db.Exec(
		`INSERT INTO users (account, name, login_password_hash, pay_password_hash, balance, invite_code,
		 my_invite_code, is_online, is_sub_user, parent_admin_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 0, '', ?, false, true, ?, ?, ?)`,
		user.Account, user.Name, user.LoginPasswordHash, user.PayPasswordHash,
		user.MyInviteCode, user.ParentAdminID, now, now,
	)
	if err != nil {
		log.Printf("ERROR: Failed to insert sub user %s: %v", account, err)
		return nil, err
	}
	user.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}

	log.Printf("INFO: Sub user created: id=%d, account=%s", user.ID, account)
	return user, nil
}

// Update 更新子用户账号或密码（未传字段保持不变）
func (s *SubUserService) Update(id int64, account, loginPassword, payPassword *string) (*models.User, error) {
	user, err := s.users.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !user.IsSubUser {
		return nil, fmt.Errorf("目标用户不是子用户")
	}

	if account != nil && *account != user.Account {
		existing, err := s.users.GetByAccount(*account)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, fmt.Errorf("账号已存在")
		}
		user.Account = *account
	}
	if loginPassword != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*loginPassword), bcryptCost)
		if err != nil {
			return nil, err
		}
		hashStr := string(hash)
		user.LoginPasswordHash = &hashStr
	}
	if payPassword != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*payPassword), bcryptCost)
		if err != nil {
			return nil, err
		}
		hashStr := string(hash)
		user.PayPasswordHash = &hashStr
	}
	user.UpdatedAt = time.Now()

	_, err = s.db.Exec(
		`UPDATE users SET account = ?, login_password_hash = ?, pay_password_hash = ?, updated_at = ? WHERE id = ?`,
		user.Account, user.LoginPasswordHash, user.PayPasswordHash, user.UpdatedAt, id,
	)
	if err != nil {
		log.Printf("ERROR: Failed to update sub user %d: %v", id, err)
		return nil, err
	}
	return user, nil
}

// Delete 删除子用户，名下会员解除归属
func (s *SubUserService) Delete(id int64) error {
	user, err := s.users.GetByID(id)
	if err != nil {
		return err
	}
	if !user.IsSubUser {
		return fmt.Errorf("目标用户不是子用户")
	}

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

	now := time.Now()
	if _, err = tx.Exec(`UPDATE users SET managed_by_sub_user_id = NULL, updated_at = ? WHERE managed_by_sub_user_id = ?`, now, id); err != nil {
		log.Printf("ERROR: Failed to detach members of sub user %d: %v", id, err)
		return err
	}
	if _, err = tx.Exec(`DELETE FROM users WHERE id = ?`, id); err != nil {
		log.Printf("ERROR: Failed to delete sub user %d: %v", id, err)
		return err
	}

	if err = tx.Commit(); err != nil {
		log.Printf("ERROR: Failed to commit transaction: %v", err)
		return err
	}

	log.Printf("INFO: Sub user %d deleted", id)
	return nil
}

// GenerateMissingInviteCodes 为没有邀请码的子用户补发邀请码，返回补发数量
func (s *SubUserService) GenerateMissingInviteCodes() (int, error) {
	subUsers := []models.User{}
	query := `SELECT ` + userColumns + ` FROM users WHERE is_sub_user = true AND (my_invite_code IS NULL OR my_invite_code = '')`
	if err := s.db.Select(&subUsers, query); err != nil {
		return 0, err
	}

	generated := 0
	for _, subUser := range subUsers {
		code, err := GenerateUniqueCode(InviteCodeAlphabet, InviteCodeLength, subUserInviteCodeMaxAttempts, s.users.inviteCodeExists)
		if err != nil {
			return generated, err
		}
		if _, err := s.db.Exec(`UPDATE users SET my_invite_code = ?, updated_at = ? WHERE id = ?`, code, time.Now(), subUser.ID); err != nil {
			log.Printf("ERROR: Failed to backfill invite code for sub user %d: %v", subUser.ID, err)
			return generated, err
		}
		generated++
	}

	log.Printf("INFO: Backfilled invite codes for %d sub users", generated)
	return generated, nil
}
