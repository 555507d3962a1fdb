package services

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yuewan10000-ops/task-platform/models"
)

// RechargeService 充值申请服务
type RechargeService struct {
	db *sqlx.DB
}

// NewRechargeService 创建充值服务
func NewRechargeService(db *sqlx.DB) *RechargeService {
	return &RechargeService{db: db}
}

// RechargeWithUser 充值申请及其所属用户摘要
type RechargeWithUser struct {
	models.RechargeRequest
	UserAccount string  `json:"user_account" db:"user_account"` // 用户账号
	UserName    *string `json:"user_name" db:"user_name"`       // 用户姓名
}

const rechargeJoinQuery = `
	SELECT r.id, r.user_id, r.amount, r.status, r.note, r.voucher_image,
	       r.created_by_sub_user_id, r.created_at, r.updated_at,
	       u.account AS user_account, u.name AS user_name
	FROM recharge_requests r
	JOIN users u ON u.id = r.user_id
`

// Create 提交充值申请（始终pending，不动余额）。子用户代提交时记录
// 创建人，并把该会员划归到该子用户名下（已有归属时不覆盖）。
func (s *RechargeService) Create(userID int64, amount float64, voucherImage *string, createdBySubUserID *int64) (*models.RechargeRequest, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("充值金额必须大于0")
	}

	now := time.Now()
	req := &models.RechargeRequest{
		UserID:             userID,
		Amount:             amount,
		Status:             models.RequestStatusPending,
		VoucherImage:       voucherImage,
		CreatedBySubUserID: createdBySubUserID,
		CreatedAt:          now,
		UpdatedAt:          now,
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
		`INSERT INTO recharge_requests (user_id, amount, status, voucher_image, created_by_sub_user_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		req.UserID, req.Amount, req.Status, req.VoucherImage, req.CreatedBySubUserID, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		log.Printf("ERROR: Failed to insert recharge request: %v", err)
		return nil, err
	}
	req.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}

	if createdBySubUserID != nil {
		if _, err = tx.Exec(
			`UPDATE users SET managed_by_sub_user_id = ?, updated_at = ? WHERE id = ? AND managed_by_sub_user_id IS NULL`,
			*createdBySubUserID, now, userID,
		); err != nil {
			log.Printf("ERROR: Failed to assign user %d to sub user %d: %v", userID, *createdBySubUserID, err)
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		log.Printf("ERROR: Failed to commit transaction: %v", err)
		return nil, err
	}

	log.Printf("INFO: Recharge request created: id=%d, user_id=%d, amount=%f", req.ID, req.UserID, req.Amount)
	return req, nil
}

// List 全部充值申请（按创建时间倒序，带用户摘要）
func (s *RechargeService) List() ([]RechargeWithUser, error) {
	requests := []RechargeWithUser{}
	query := rechargeJoinQuery + ` ORDER BY r.created_at DESC, r.id DESC`
	if err := s.db.Select(&requests, query); err != nil {
		return nil, err
	}
	return requests, nil
}

// ListForSubUser 子用户可见的充值申请：自己创建的 + 名下会员的
func (s *RechargeService) ListForSubUser(subUserID int64) ([]RechargeWithUser, error) {
	requests := []RechargeWithUser{}
	query := rechargeJoinQuery + `
		WHERE r.created_by_sub_user_id = ? OR u.managed_by_sub_user_id = ?
		ORDER BY r.created_at DESC, r.id DESC
	`
	if err := s.db.Select(&requests, query, subUserID, subUserID); err != nil {
		return nil, err
	}
	return requests, nil
}

// ListByUser 某用户的充值申请
func (s *RechargeService) ListByUser(userID int64) ([]models.RechargeRequest, error) {
	requests := []models.RechargeRequest{}
	query := `
		SELECT id, user_id, amount, status, note, voucher_image, created_by_sub_user_id, created_at, updated_at
		FROM recharge_requests
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
	`
	if err := s.db.Select(&requests, query, userID); err != nil {
		return nil, err
	}
	return requests, nil
}

// PendingCount 待审核充值申请数
func (s *RechargeService) PendingCount() (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM recharge_requests WHERE status = ?`
	if err := s.db.Get(&count, query, models.RequestStatusPending); err != nil {
		return 0, err
	}
	return count, nil
}

// UpdateStatus 审核充值申请。通过时在同一事务内改状态并给用户余额入账，
// 驳回仅改状态；已审核过的申请不可再次审核。子用户审核时若申请没有
// 创建人则回填为该子用户。
func (s *RechargeService) UpdateStatus(id int64, status string, note *string, subUserID *int64) (*models.RechargeRequest, error) {
	if status != models.RequestStatusApproved && status != models.RequestStatusRejected {
		return nil, fmt.Errorf("无效的审核状态")
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

	var req models.RechargeRequest
	err = tx.Get(&req,
		`SELECT id, user_id, amount, status, note, voucher_image, created_by_sub_user_id, created_at, updated_at
		 FROM recharge_requests WHERE id = ? FOR UPDATE`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			err = fmt.Errorf("充值申请不存在")
		}
		return nil, err
	}

	if err = EnsurePending(req.Status); err != nil {
		return nil, err
	}

	now := time.Now()
	req.Status = status
	req.Note = note
	req.UpdatedAt = now
	if subUserID != nil && req.CreatedBySubUserID == nil {
		req.CreatedBySubUserID = subUserID
	}

	_, err = tx.Exec(
		`UPDATE recharge_requests SET status = ?, note = ?, created_by_sub_user_id = ?, updated_at = ? WHERE id = ?`,
		req.Status, req.Note, req.CreatedBySubUserID, req.UpdatedAt, id,
	)
	if err != nil {
		log.Printf("ERROR: Failed to update recharge request %d: %v", id, err)
		return nil, err
	}

	if status == models.RequestStatusApproved {
		if _, err = tx.Exec(`UPDATE users SET balance = balance + ?, updated_at = ? WHERE id = ?`, req.Amount, now, req.UserID); err != nil {
			log.Printf("ERROR: Failed to credit recharge to user %d: %v", req.UserID, err)
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		log.Printf("ERROR: Failed to commit transaction: %v", err)
		return nil, err
	}

	log.Printf("INFO: Recharge request %d reviewed: status=%s", id, status)
	return &req, nil
}

// ApprovedTotal 某用户历史通过的充值总额（注资缺口计算用）
func (s *RechargeService) ApprovedTotal(userID int64) (float64, error) {
	var total float64
	query := `SELECT COALESCE(SUM(amount), 0) FROM recharge_requests WHERE user_id = ? AND status = ?`
	if err := s.db.Get(&total, query, userID, models.RequestStatusApproved); err != nil {
		return 0, err
	}
	return total, nil
}
