package services

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/yuewan10000-ops/task-platform/models"
)

// 佣金与余额对账逻辑。所有货币运算集中在本文件内（与原始数据一致使用
// float64，不做定点舍入），后续如需迁移定点数只改这里。

var (
	// ErrInsufficientBalance 余额不足
	ErrInsufficientBalance = errors.New("余额不足")
	// ErrAlreadyProcessed 申请已审核，不允许重复处理
	ErrAlreadyProcessed = errors.New("该申请已处理，不能重复审核")
)

// EffectiveRate 最终佣金比例 = 全局激活比例 + 用户个人比例（最新做单设置）。
// 每次读取时实时计算，不缓存不落库，因此修改全局比例会改变未落账佣金的展示值，
// 但不会改写历史记录。
func EffectiveRate(globalRate, userRate float64) float64 {
	return globalRate + userRate
}

// ParseCommissionOverride 解析做单记录描述中内嵌的佣金覆盖值。
// 描述为 {"commission":N} 或 {"c":N} 的JSON时返回该数值；commission为
// null时退到c；数值字符串（如"5"）按数值处理，历史数据两种写法都有。
// 该覆盖只影响累计佣金统计，不影响订单创建时的余额入账。
func ParseCommissionOverride(description *string) (float64, bool) {
	if description == nil || *description == "" {
		return 0, false
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(*description), &payload); err != nil {
		return 0, false
	}

	raw, ok := payload["commission"]
	if !ok || isJSONNull(raw) {
		raw, ok = payload["c"]
	}
	if !ok || isJSONNull(raw) {
		return 0, false
	}

	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return 0, false
		}
		value = parsed
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

// isJSONNull 判断原始JSON值是否为null字面量
func isJSONNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

// RecordCommission 单条已完成记录计入累计佣金的金额：
// 优先取描述中的覆盖值，否则按当前比例计算（金额 × 最终比例）。
func RecordCommission(amount float64, description *string, effectiveRate float64) float64 {
	if override, ok := ParseCommissionOverride(description); ok {
		return override
	}
	return amount * effectiveRate
}

// CreationCommission 订单创建时的入账佣金：
// 请求显式传入非0佣金则原样使用；传0或不传都按比例计算。
// 注意：这里不读取描述中的覆盖值，与累计统计口径刻意不同。
func CreationCommission(requested float64, amount float64, effectiveRate float64) float64 {
	if requested != 0 {
		return requested
	}
	return amount * effectiveRate
}

// OrderStats 做单统计
type OrderStats struct {
	Total           int     `json:"total"`           // 最近一次开启的订单数量（单次开启）
	Cumulative      int     `json:"cumulative"`      // 累计开启订单数量（所有开启记录maxOrders之和）
	Completed       int     `json:"completed"`       // 最新一次开启中已完成的订单数
	Pending         int     `json:"pending"`         // 未完成订单数
	TotalCommission float64 `json:"totalCommission"` // 累计佣金（所有历史完成订单）
}

// CompletedInBatch 最新一批做单设置创建之后完成的订单数。
// 历史批次的记录不会删除，靠创建时间过滤排除；结果不超过maxOrders（防御上限）。
func CompletedInBatch(settingCreatedAt time.Time, maxOrders int, records []models.OrderRecord) int {
	completed := 0
	for _, r := range records {
		if r.Status != models.OrderStatusCompleted {
			continue
		}
		if r.CreatedAt.Before(settingCreatedAt) {
			continue
		}
		completed++
	}
	if completed > maxOrders {
		completed = maxOrders
	}
	return completed
}

// CurrentOrderNumber 当前订单序号 = 本批已完成数 + 1（下一单的序号）。
// 没有做单设置时序号无意义，调用方返回null。
func CurrentOrderNumber(settingCreatedAt time.Time, records []models.OrderRecord) int {
	completed := 0
	for _, r := range records {
		if r.Status != models.OrderStatusCompleted {
			continue
		}
		if r.CreatedAt.Before(settingCreatedAt) {
			continue
		}
		completed++
	}
	return completed + 1
}

// ComputeOrderStats 汇总一个用户的做单统计。
// latest为最新做单设置（可为nil），cumulativeOpened为全部设置maxOrders之和，
// records为该用户全部做单记录，effectiveRate为当前最终佣金比例。
func ComputeOrderStats(latest *models.OrderSetting, cumulativeOpened int, records []models.OrderRecord, effectiveRate float64) OrderStats {
	stats := OrderStats{Cumulative: cumulativeOpened}

	if latest != nil {
		stats.Total = latest.MaxOrders
		stats.Completed = CompletedInBatch(latest.CreatedAt, latest.MaxOrders, records)
		stats.Pending = stats.Total - stats.Completed
		if stats.Pending < 0 {
			stats.Pending = 0
		}
	}

	// 累计佣金：全部历史完成记录，描述覆盖优先，其余按当前比例计算
	for _, r := range records {
		if r.Status != models.OrderStatusCompleted {
			continue
		}
		stats.TotalCommission += RecordCommission(r.Amount, r.Description, effectiveRate)
	}

	return stats
}

// ComputeShortfall 打针订单差额 = max(0, 打针金额 - 历史已审核充值总额)。
// 计划的orderSettingId为空表示适用所有订单，否则须等于当前订单序号；
// 按遇到顺序取第一个匹配的激活计划。无匹配计划时返回nil（未知，区别于0）。
func ComputeShortfall(plans []models.InjectionPlan, currentOrderNumber int, totalRecharged float64) *float64 {
	for _, plan := range plans {
		if !plan.IsActive {
			continue
		}
		if plan.OrderSettingID != nil && *plan.OrderSettingID != int64(currentOrderNumber) {
			continue
		}

		diff := plan.InjectionAmount - totalRecharged
		if diff < 0 {
			diff = 0
		}
		return &diff
	}
	return nil
}

// ApplyWithdrawSubmit 取款提交时的余额预扣。余额不足返回错误，余额不变。
func ApplyWithdrawSubmit(balance, amount float64) (float64, error) {
	if balance < amount {
		return balance, ErrInsufficientBalance
	}
	return balance - amount, nil
}

// ApplyWithdrawReject 取款驳回时退回预扣金额。
func ApplyWithdrawReject(balance, amount float64) float64 {
	return balance + amount
}

// ApplyRechargeApprove 充值审核通过时入账。
func ApplyRechargeApprove(balance, amount float64) float64 {
	return balance + amount
}

// EnsurePending 校验申请仍处于待审核状态（approved/rejected均为终态）。
func EnsurePending(status string) error {
	if status != models.RequestStatusPending {
		return ErrAlreadyProcessed
	}
	return nil
}
