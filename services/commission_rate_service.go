package services

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yuewan10000-ops/task-platform/models"
)

// CommissionRateService 全局佣金比例服务。
// 不变式：任意时刻最多一条记录处于激活状态，激活操作与"取消其他激活"
// 在同一事务内完成。
type CommissionRateService struct {
	db *sqlx.DB
}

// NewCommissionRateService 创建全局佣金比例服务
func NewCommissionRateService(db *sqlx.DB) *CommissionRateService {
	return &CommissionRateService{db: db}
}

// GetActive 获取当前激活的佣金比例（没有时返回nil）
func (s *CommissionRateService) GetActive() (*models.CommissionRate, error) {
	var rate models.CommissionRate
	query := `
		SELECT id, rate, is_active, description, created_at, updated_at
		FROM commission_rates
		WHERE is_active = TRUE
		ORDER BY updated_at DESC, id DESC
		LIMIT 1
	`
	err := s.db.Get(&rate, query)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &rate, nil
}

// ActiveRateValue 当前激活的全局比例数值，没有激活记录时为0
func (s *CommissionRateService) ActiveRateValue() (float64, error) {
	rate, err := s.GetActive()
	if err != nil {
		return 0, err
	}
	if rate == nil {
		return 0, nil
	}
	return rate.Rate, nil
}

// List 获取全部佣金比例记录
func (s *CommissionRateService) List() ([]models.CommissionRate, error) {
	rates := []models.CommissionRate{}
	query := `
		SELECT id, rate, is_active, description, created_at, updated_at
		FROM commission_rates
		ORDER BY updated_at DESC, id DESC
	`
	if err := s.db.Select(&rates, query); err != nil {
		return nil, err
	}
	return rates, nil
}

// Create 创建佣金比例。isActive为true时在同一事务内先取消其他激活记录。
func (s *CommissionRateService) Create(rate float64, isActive bool, description *string) (*models.CommissionRate, error) {
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

	if isActive {
		if _, err = tx.Exec(`UPDATE commission_rates SET is_active = FALSE, updated_at = ? WHERE is_active = TRUE`, time.Now()); err != nil {
			log.Printf("ERROR: Failed to deactivate commission rates: %v", err)
			return nil, err
		}
	}

	now := time.Now()
	record := &models.CommissionRate{
		Rate:        rate,
		IsActive:    isActive,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var result sql.Result
	result, err = tx.Exec(
		`INSERT INTO commission_rates (rate, is_active, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		record.Rate, record.IsActive, record.Description, record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		log.Printf("ERROR: Failed to insert commission rate: %v", err)
		return nil, err
	}
	record.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		log.Printf("ERROR: Failed to commit transaction: %v", err)
		return nil, err
	}

	log.Printf("INFO: Commission rate created: id=%d, rate=%f, active=%v", record.ID, rate, isActive)
	return record, nil
}

// Update 更新佣金比例。激活时在同一事务内取消其他激活记录。
func (s *CommissionRateService) Update(id int64, rate float64, isActive *bool, description *string) (*models.CommissionRate, error) {
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

	if isActive == nil || *isActive {
		if _, err = tx.Exec(`UPDATE commission_rates SET is_active = FALSE, updated_at = ? WHERE is_active = TRUE AND id != ?`, time.Now(), id); err != nil {
			log.Printf("ERROR: Failed to deactivate commission rates: %v", err)
			return nil, err
		}
	}

	now := time.Now()
	var result sql.Result
	if isActive != nil {
		result, err = tx.Exec(
			`UPDATE commission_rates SET rate = ?, is_active = ?, description = ?, updated_at = ? WHERE id = ?`,
			rate, *isActive, description, now, id,
		)
	} else {
		result, err = tx.Exec(
			`UPDATE commission_rates SET rate = ?, description = ?, updated_at = ? WHERE id = ?`,
			rate, description, now, id,
		)
	}
	if err != nil {
		log.Printf("ERROR: Failed to update commission rate id=%d: %v", id, err)
		return nil, err
	}

	var rows int64
	rows, err = result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		err = fmt.Errorf("佣金比例不存在")
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		log.Printf("ERROR: Failed to commit transaction: %v", err)
		return nil, err
	}

	var record models.CommissionRate
	if err := s.db.Get(&record, `SELECT id, rate, is_active, description, created_at, updated_at FROM commission_rates WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// Delete 删除佣金比例
func (s *CommissionRateService) Delete(id int64) error {
	result, err := s.db.Exec(`DELETE FROM commission_rates WHERE id = ?`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("佣金比例不存在")
	}
	return nil
}
