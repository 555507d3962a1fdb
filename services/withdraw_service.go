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

// 最小取款金额
const MinWithdrawAmount = 10.0

// WithdrawNotifier 取款审核结果通知
type WithdrawNotifier interface {
	NotifyWithdrawDecision(email string, amount float64, status string, note *string) error
}

// WithdrawService 取款申请服务
type WithdrawService struct {
	db       *sqlx.DB
	notifier WithdrawNotifier
}

// NewWithdrawService 创建取款服务，notifier可为nil（不发通知）
func NewWithdrawService(db *sqlx.DB, notifier WithdrawNotifier) *WithdrawService {
	return &WithdrawService{db: db, notifier: notifier}
}

// WithdrawWithUser 取款申请及其所属用户摘要
type WithdrawWithUser struct {
	models.WithdrawRequest
	UserAccount string  `json:"user_account" db:"user_account"` // 用户账号
	UserName    *string `json:"user_name" db:"user_name"`       // 用户姓名
}

const withdrawJoinQuery = `
	SELECT w.id, w.user_id, w.amount, w.status, w.note, w.wallet_address,
	       w.processed_by_sub_user_id, w.created_at, w.updated_at,
	       u.account AS user_account, u.name AS user_name
	FROM withdraw_requests w
	JOIN users u ON u.id = w.user_id
`

// Create 提交取款申请。校验支付密码与最小金额，在同一事务内冻结余额
// （先扣减）并写入pending申请；传入钱包地址时顺带更新用户钱包地址。
func (s *WithdrawService) Create(userID int64, amount float64, payPassword string, walletAddress *string) (*models.WithdrawRequest, error) {
	if amount < MinWithdrawAmount {
		return nil, fmt.Errorf("取款金额不能低于%.0f", MinWithdrawAmount)
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

	var user models.User
	err = tx.Get(&user, `SELECT id, balance, pay_password_hash, wallet_address FROM users WHERE id = ? FOR UPDATE`, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			err = fmt.Errorf("用户不存在")
		}
		return nil, err
	}

	if user.PayPasswordHash == nil {
		err = fmt.Errorf("请先设置支付密码")
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(*user.PayPasswordHash), []byte(payPassword)) != nil {
		err = fmt.Errorf("支付密码错误")
		return nil, err
	}

	var newBalance float64
	newBalance, err = ApplyWithdrawSubmit(user.Balance, amount)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if walletAddress != nil && *walletAddress != "" {
		user.WalletAddress = walletAddress
	}

	if _, err = tx.Exec(`UPDATE users SET balance = ?, wallet_address = ?, updated_at = ? WHERE id = ?`,
		newBalance, user.WalletAddress, now, userID); err != nil {
		log.Printf("ERROR: Failed to reserve balance for user %d: %v", userID, err)
		return nil, err
	}

	req := &models.WithdrawRequest{
		UserID:        userID,
		Amount:        amount,
		Status:        models.RequestStatusPending,
		WalletAddress: user.WalletAddress,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var result sql.Result
	result, err = tx.Exec(
		`INSERT INTO withdraw_requests (user_id, amount, status, wallet_address, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		req.UserID, req.Amount, req.Status, req.WalletAddress, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		log.Printf("ERROR: Failed to insert withdraw request: %v", err)
		return nil, err
	}
	req.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		log.Printf("ERROR: Failed to commit transaction: %v", err)
		return nil, err
	}

	log.Printf("INFO: Withdraw request created: id=%d, user_id=%d, amount=%f", req.ID, req.UserID, req.Amount)
	return req, nil
}

// List 全部取款申请（按创建时间倒序，带用户摘要）
func (s *WithdrawService) List() ([]WithdrawWithUser, error) {
	requests := []WithdrawWithUser{}
	query := withdrawJoinQuery + ` ORDER BY w.created_at DESC, w.id DESC`
	if err := s.db.Select(&requests, query); err != nil {
		return nil, err
	}
	return requests, nil
}

// ListForSubUser 子用户可见的取款申请：自己处理过的 + 名下会员的
func (s *WithdrawService) ListForSubUser(subUserID int64) ([]WithdrawWithUser, error) {
	requests := []WithdrawWithUser{}
	query := withdrawJoinQuery + `
		WHERE w.processed_by_sub_user_id = ? OR u.managed_by_sub_user_id = ?
		ORDER BY w.created_at DESC, w.id DESC
	`
	if err := s.db.Select(&requests, query, subUserID, subUserID); err != nil {
		return nil, err
	}
	return requests, nil
}

// ListByUser 某用户的取款申请
func (s *WithdrawService) ListByUser(userID int64) ([]models.WithdrawRequest, error) {
	requests := []models.WithdrawRequest{}
	query := `
		SELECT id, user_id, amount, status, note, wallet_address, processed_by_sub_user_id, created_at, updated_at
		FROM withdraw_requests
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
	`
	if err := s.db.Select(&requests, query, userID); err != nil {
		return nil, err
	}
	return requests, nil
}

// PendingCount 待审核取款申请数
func (s *WithdrawService) PendingCount() (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM withdraw_requests WHERE status = ?`
	if err := s.db.Get(&count, query, models.RequestStatusPending); err != nil {
		return 0, err
	}
	return count, nil
}

// UpdateStatus 审核取款申请。余额在提交时已扣减：通过仅改状态，驳回在
// 同一事务内改状态并把金额退回余额；已审核过的申请不可再次审核。子用户
// 审核时记录处理人并把该会员划归到该子用户名下（已有归属时不覆盖）。
// 审核结果邮件在事务提交后尽力发送，失败不影响审核。
func (s *WithdrawService) UpdateStatus(id int64, status string, note *string, subUserID *int64) (*models.WithdrawRequest, error) {
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

	var req models.WithdrawRequest
	err = tx.Get(&req,
		`SELECT id, user_id, amount, status, note, wallet_address, processed_by_sub_user_id, created_at, updated_at
		 FROM withdraw_requests WHERE id = ? FOR UPDATE`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			err = fmt.Errorf("取款申请不存在")
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
	if subUserID != nil {
		req.ProcessedBySubUserID = subUserID
	}

	_, err = tx.Exec(
		`UPDATE withdraw_requests SET status = ?, note = ?, processed_by_sub_user_id = ?, updated_at = ? WHERE id = ?`,
		req.Status, req.Note, req.ProcessedBySubUserID, req.UpdatedAt, id,
	)
	if err != nil {
		log.Printf("ERROR: Failed to update withdraw request %d: %v", id, err)
		return nil, err
	}

	// 驳回时退回冻结的余额
	if status == models.RequestStatusRejected {
		if _, err = tx.Exec(`UPDATE users SET balance = balance + ?, updated_at = ? WHERE id = ?`, req.Amount, now, req.UserID); err != nil {
			log.Printf("ERROR: Failed to refund withdraw amount to user %d: %v", req.UserID, err)
			return nil, err
		}
	}

	if subUserID != nil {
		if _, err = tx.Exec(
			`UPDATE users SET managed_by_sub_user_id = ?, updated_at = ? WHERE id = ? AND managed_by_sub_user_id IS NULL`,
			*subUserID, now, req.UserID,
		); err != nil {
			log.Printf("ERROR: Failed to assign user %d to sub user %d: %v", req.UserID, *subUserID, err)
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		log.Printf("ERROR: Failed to commit transaction: %v", err)
		return nil, err
	}

	log.Printf("INFO: Withdraw request %d reviewed: status=%s", id, status)

	if s.notifier != nil {
		var email string
		if getErr := s.db.Get(&email, `SELECT COALESCE(email, '') FROM users WHERE id = ?`, req.UserID); getErr != nil {
			log.Printf("WARN: Failed to load email for user %d: %v", req.UserID, getErr)
		} else if email != "" {
			if notifyErr := s.notifier.NotifyWithdrawDecision(email, req.Amount, status, note); notifyErr != nil {
				log.Printf("WARN: Failed to send withdraw notification to %s: %v", email, notifyErr)
			}
		}
	}

	return &req, nil
}
