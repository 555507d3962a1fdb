package services

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yuewan10000-ops/task-platform/models"
)

// 打针计划展示状态
const (
	PlanStatusCompleted = "completed"
	PlanStatusPending   = "pending"
)

// InjectionService 打针计划服务
type InjectionService struct {
	db        *sqlx.DB
	orders    *OrderService
	recharges *RechargeService
}

// NewInjectionService 创建打针计划服务
func NewInjectionService(db *sqlx.DB, orders *OrderService, recharges *RechargeService) *InjectionService {
	return &InjectionService{db: db, orders: orders, recharges: recharges}
}

// PlanWithStatus 打针计划及其相对当前订单序号的状态
type PlanWithStatus struct {
	models.InjectionPlan
	PlanStatus *string `json:"plan_status"` // completed/pending，无做单设置时为null
}

const injectionPlanColumns = `id, user_id, order_setting_id, commission_rate, injection_amount, is_active, created_at, updated_at`

// Plans 某用户的全部打针计划（按创建时间倒序）
func (s *InjectionService) Plans(userID int64) ([]models.InjectionPlan, error) {
	plans := []models.InjectionPlan{}
	query := `
		SELECT ` + injectionPlanColumns + `
		FROM injection_plans
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
	`
	if err := s.db.Select(&plans, query, userID); err != nil {
		return nil, err
	}
	return plans, nil
}

// PlansWithStatus 某用户的打针计划，标注相对当前订单序号的状态：
// 指定订单序号且序号已过为completed，通用计划（未指定序号）在完成过
// 至少1单后为completed，否则为pending；用户没有做单设置时当前序号
// 未知，状态为null。
func (s *InjectionService) PlansWithStatus(userID int64) ([]PlanWithStatus, error) {
	plans, err := s.Plans(userID)
	if err != nil {
		return nil, err
	}

	latest, err := s.orders.LatestSetting(userID)
	if err != nil {
		return nil, err
	}

	current := 0
	if latest != nil {
		records, err := s.orders.Records(userID)
		if err != nil {
			return nil, err
		}
		current = CurrentOrderNumber(latest.CreatedAt, records)
	}

	result := make([]PlanWithStatus, 0, len(plans))
	for _, plan := range plans {
		item := PlanWithStatus{InjectionPlan: plan}
		if latest != nil {
			status := planStatusFor(plan, current)
			item.PlanStatus = &status
		}
		result = append(result, item)
	}
	return result, nil
}

// planStatusFor 单个计划相对当前订单序号的状态。
// 指定序号的计划在序号已过时completed；通用计划（未指定序号）在完成
// 过至少1单后completed。
func planStatusFor(plan models.InjectionPlan, currentOrderNumber int) string {
	if plan.OrderSettingID != nil {
		if int64(currentOrderNumber) > *plan.OrderSettingID {
			return PlanStatusCompleted
		}
		return PlanStatusPending
	}
	if currentOrderNumber > 1 {
		return PlanStatusCompleted
	}
	return PlanStatusPending
}

// Shortfall 某用户当前的打针订单差额。无做单设置或无匹配的激活计划时
// 返回nil（前端显示为未知，区别于0）。
func (s *InjectionService) Shortfall(userID int64) (*float64, error) {
	latest, err := s.orders.LatestSetting(userID)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, nil
	}

	records, err := s.orders.Records(userID)
	if err != nil {
		return nil, err
	}
	current := CurrentOrderNumber(latest.CreatedAt, records)

	plans, err := s.Plans(userID)
	if err != nil {
		return nil, err
	}

	totalRecharged, err := s.recharges.ApprovedTotal(userID)
	if err != nil {
		return nil, err
	}

	return ComputeShortfall(plans, current, totalRecharged), nil
}

// Create 创建打针计划
func (s *InjectionService) Create(plan *models.InjectionPlan) error {
	now := time.Now()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	result, err := s.db.Exec(
		`INSERT INTO injection_plans (user_id, order_setting_id, commission_rate, injection_amount, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		plan.UserID, plan.OrderSettingID, plan.CommissionRate, plan.InjectionAmount, plan.IsActive, plan.CreatedAt, plan.UpdatedAt,
	)
	if err != nil {
		log.Printf("ERROR: Failed to insert injection plan: %v", err)
		return err
	}

	plan.ID, err = result.LastInsertId()
	if err != nil {
		return err
	}

	log.Printf("INFO: Injection plan created: id=%d, user_id=%d, amount=%f", plan.ID, plan.UserID, plan.InjectionAmount)
	return nil
}

// Update 更新打针计划（未传字段保持不变）
func (s *InjectionService) Update(id int64, orderSettingID *int64, clearOrderSetting bool, commissionRate, injectionAmount *float64, isActive *bool) (*models.InjectionPlan, error) {
	var plan models.InjectionPlan
	err := s.db.Get(&plan, `SELECT `+injectionPlanColumns+` FROM injection_plans WHERE id = ?`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("打针计划不存在")
		}
		return nil, err
	}

	if clearOrderSetting {
		plan.OrderSettingID = nil
	} else if orderSettingID != nil {
		plan.OrderSettingID = orderSettingID
	}
	if commissionRate != nil {
		plan.CommissionRate = *commissionRate
	}
	if injectionAmount != nil {
		plan.InjectionAmount = *injectionAmount
	}
	if isActive != nil {
		plan.IsActive = *isActive
	}
	plan.UpdatedAt = time.Now()

	_, err = s.db.Exec(
		`UPDATE injection_plans SET order_setting_id = ?, commission_rate = ?, injection_amount = ?, is_active = ?, updated_at = ? WHERE id = ?`,
		plan.OrderSettingID, plan.CommissionRate, plan.InjectionAmount, plan.IsActive, plan.UpdatedAt, id,
	)
	if err != nil {
		log.Printf("ERROR: Failed to update injection plan %d: %v", id, err)
		return nil, err
	}
	return &plan, nil
}

// Delete 删除打针计划
func (s *InjectionService) Delete(id int64) error {
	result, err := s.db.Exec(`DELETE FROM injection_plans WHERE id = ?`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("打针计划不存在")
	}
	return nil
}
