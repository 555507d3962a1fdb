package services

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yuewan10000-ops/task-platform/models"
)

// OrderService 做单设置与做单记录服务
type OrderService struct {
	db    *sqlx.DB
	rates *CommissionRateService
}

// NewOrderService 创建做单服务
func NewOrderService(db *sqlx.DB, rates *CommissionRateService) *OrderService {
	return &OrderService{db: db, rates: rates}
}

const orderSettingColumns = `id, user_id, max_orders, commission_rate, order_type, amount, description, status, created_at, updated_at`

const orderRecordColumns = `id, user_id, order_type, amount, status, description, created_at, updated_at`

// LatestSetting 用户最新一条做单设置（不限状态，用于比例解析；没有时返回nil）
func (s *OrderService) LatestSetting(userID int64) (*models.OrderSetting, error) {
	var setting models.OrderSetting
	query := `
		SELECT ` + orderSettingColumns + `
		FROM order_settings
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	err := s.db.Get(&setting, query, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &setting, nil
}

// LatestEnabledSetting 用户最新一条已启用的做单设置（A端展示用）
func (s *OrderService) LatestEnabledSetting(userID int64) (*models.OrderSetting, error) {
	var setting models.OrderSetting
	query := `
		SELECT ` + orderSettingColumns + `
		FROM order_settings
		WHERE user_id = ? AND status = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	err := s.db.Get(&setting, query, userID, models.SettingStatusEnabled)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &setting, nil
}

// SettingsHistory 用户全部做单设置（按创建时间倒序）
func (s *OrderService) SettingsHistory(userID int64) ([]models.OrderSetting, error) {
	settings := []models.OrderSetting{}
	query := `
		SELECT ` + orderSettingColumns + `
		FROM order_settings
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
	`
	if err := s.db.Select(&settings, query, userID); err != nil {
		return nil, err
	}
	return settings, nil
}

// CreateSetting 创建做单设置（状态固定enabled，成为用户的当前批次）
func (s *OrderService) CreateSetting(setting *models.OrderSetting) error {
	now := time.Now()
	setting.Status = models.SettingStatusEnabled
	setting.CreatedAt = now
	setting.UpdatedAt = now

	result, err := s.db.Exec(
		`INSERT INTO order_settings (user_id, max_orders, commission_rate, order_type, amount, description, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		setting.UserID, setting.MaxOrders, setting.CommissionRate, setting.OrderType,
		setting.Amount, setting.Description, setting.Status, setting.CreatedAt, setting.UpdatedAt,
	)
	if err != nil {
		log.Printf("ERROR: Failed to insert order setting: %v", err)
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	setting.ID = id

	log.Printf("INFO: Order setting created: id=%d, user_id=%d, max_orders=%d", id, setting.UserID, setting.MaxOrders)
	return nil
}

// UpdateSetting 更新做单设置（仅允许改数量、比例和描述）
func (s *OrderService) UpdateSetting(id int64, maxOrders *int, commissionRate *float64, description *string) (*models.OrderSetting, error) {
	var setting models.OrderSetting
	err := s.db.Get(&setting, `SELECT `+orderSettingColumns+` FROM order_settings WHERE id = ?`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("做单设置不存在")
		}
		return nil, err
	}

	if maxOrders != nil {
		setting.MaxOrders = *maxOrders
	}
	if commissionRate != nil {
		setting.CommissionRate = *commissionRate
	}
	if description != nil {
		setting.Description = description
	}
	setting.UpdatedAt = time.Now()

	_, err = s.db.Exec(
		`UPDATE order_settings SET max_orders = ?, commission_rate = ?, description = ?, updated_at = ? WHERE id = ?`,
		setting.MaxOrders, setting.CommissionRate, setting.Description, setting.UpdatedAt, id,
	)
	if err != nil {
		log.Printf("ERROR: Failed to update order setting id=%d: %v", id, err)
		return nil, err
	}
	return &setting, nil
}

// DeleteSetting 删除做单设置
func (s *OrderService) DeleteSetting(id int64) error {
	result, err := s.db.Exec(`DELETE FROM order_settings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("做单设置不存在")
	}
	return nil
}

// CumulativeOpened 累计开启订单总数（该用户所有做单设置maxOrders之和）
func (s *OrderService) CumulativeOpened(userID int64) (int, error) {
	var total int
	query := `SELECT COALESCE(SUM(max_orders), 0) FROM order_settings WHERE user_id = ?`
	if err := s.db.Get(&total, query, userID); err != nil {
		return 0, err
	}
	return total, nil
}

// Records 用户全部做单记录（按创建时间倒序）
func (s *OrderService) Records(userID int64) ([]models.OrderRecord, error) {
	records := []models.OrderRecord{}
	query := `
		SELECT ` + orderRecordColumns + `
		FROM order_records
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
	`
	if err := s.db.Select(&records, query, userID); err != nil {
		return nil, err
	}
	return records, nil
}

// UserRateValue 用户个人佣金比例（最新做单设置，没有时为0）
func (s *OrderService) UserRateValue(userID int64) (float64, error) {
	setting, err := s.LatestSetting(userID)
	if err != nil {
		return 0, err
	}
	if setting == nil {
		return 0, nil
	}
	return setting.CommissionRate, nil
}

// EffectiveRateFor 用户当前最终佣金比例 = 全局激活比例 + 用户个人比例
func (s *OrderService) EffectiveRateFor(userID int64) (float64, error) {
	globalRate, err := s.rates.ActiveRateValue()
	if err != nil {
		return 0, err
	}
	userRate, err := s.UserRateValue(userID)
	if err != nil {
		return 0, err
	}
	return EffectiveRate(globalRate, userRate), nil
}

// CreateRecord 创建做单记录。请求显式传入非0佣金则原样使用，否则按当前
// 最终比例计算；记录状态为completed且佣金大于0时，插入记录与余额入账
// 在同一事务内完成，要么都生效要么都不生效。
func (s *OrderService) CreateRecord(record *models.OrderRecord, requestedCommission float64) error {
	rate, err := s.EffectiveRateFor(record.UserID)
	if err != nil {
		return err
	}
	commission := CreationCommission(requestedCommission, record.Amount, rate)

	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now

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

	var result sql.Result
	result, err = tx.Exec(
		`INSERT INTO order_records (user_id, order_type, amount, status, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.UserID, record.OrderType, record.Amount, record.Status, record.Description, record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		log.Printf("ERROR: Failed to insert order record: %v", err)
		return err
	}
	record.ID, err = result.LastInsertId()
	if err != nil {
		return err
	}

	// 已完成记录的佣金入账
	if record.Status == models.OrderStatusCompleted && commission > 0 {
		if _, err = tx.Exec(`UPDATE users SET balance = balance + ?, updated_at = ? WHERE id = ?`, commission, now, record.UserID); err != nil {
			log.Printf("ERROR: Failed to credit commission to user %d: %v", record.UserID, err)
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		log.Printf("ERROR: Failed to commit transaction: %v", err)
		return err
	}

	log.Printf("INFO: Order record created: id=%d, user_id=%d, status=%s, commission=%f", record.ID, record.UserID, record.Status, commission)
	return nil
}
