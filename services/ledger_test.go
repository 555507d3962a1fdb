package services

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/yuewan10000-ops/task-platform/models"
)

// Test helper functions

func strPtr(s string) *string {
	return &s
}

func createCompletedRecord(createdAt time.Time, amount float64, description *string) models.OrderRecord {
	return models.OrderRecord{
		UserID:      1,
		OrderType:   "pre-order",
		Amount:      amount,
		Status:      models.OrderStatusCompleted,
		Description: description,
		CreatedAt:   createdAt,
	}
}

// Basic unit tests

func TestParseCommissionOverride(t *testing.T) {
	tests := []struct {
		name        string
		description *string
		want        float64
		wantOK      bool
	}{
		{"nil description", nil, 0, false},
		{"empty description", strPtr(""), 0, false},
		{"plain text", strPtr("一些备注"), 0, false},
		{"commission key", strPtr(`{"commission":12.5}`), 12.5, true},
		{"short key", strPtr(`{"c":3}`), 3, true},
		{"commission wins over c", strPtr(`{"commission":5,"c":9}`), 5, true},
		{"numeric string coerced", strPtr(`{"commission":"5.5"}`), 5.5, true},
		{"null commission falls through to c", strPtr(`{"commission":null,"c":9}`), 9, true},
		{"null both keys", strPtr(`{"commission":null,"c":null}`), 0, false},
		{"non-numeric value", strPtr(`{"commission":"abc"}`), 0, false},
		{"not a json object", strPtr(`[1,2,3]`), 0, false},
		{"zero override is still an override", strPtr(`{"commission":0}`), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseCommissionOverride(tt.description)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("value = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecordCommission_OverridePrecedence(t *testing.T) {
	// 描述覆盖时不按比例计算
	got := RecordCommission(1000, strPtr(`{"commission":7.77}`), 0.15)
	if got != 7.77 {
		t.Errorf("override commission = %v, want 7.77", got)
	}

	// 无覆盖按金额×比例
	got = RecordCommission(1000, nil, 0.15)
	if got != 150 {
		t.Errorf("rate commission = %v, want 150", got)
	}
}

func TestCreationCommission_ZeroFallsThrough(t *testing.T) {
	// 显式非0佣金原样使用
	if got := CreationCommission(88, 1000, 0.1); got != 88 {
		t.Errorf("explicit commission = %v, want 88", got)
	}
	// 0视为未指定，按比例计算
	if got := CreationCommission(0, 1000, 0.1); got != 100 {
		t.Errorf("computed commission = %v, want 100", got)
	}
}

func TestCompletedInBatch_FiltersOldRecords(t *testing.T) {
	settingCreated := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	records := []models.OrderRecord{
		createCompletedRecord(settingCreated.Add(-time.Hour), 100, nil), // 历史批次
		createCompletedRecord(settingCreated.Add(time.Hour), 100, nil),
		createCompletedRecord(settingCreated.Add(2*time.Hour), 100, nil),
		{Status: models.OrderStatusPending, CreatedAt: settingCreated.Add(3 * time.Hour)},
	}

	if got := CompletedInBatch(settingCreated, 10, records); got != 2 {
		t.Errorf("completed = %d, want 2", got)
	}
	// 防御上限
	if got := CompletedInBatch(settingCreated, 1, records); got != 1 {
		t.Errorf("clamped completed = %d, want 1", got)
	}
}

func TestCurrentOrderNumber(t *testing.T) {
	settingCreated := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	records := []models.OrderRecord{
		createCompletedRecord(settingCreated.Add(time.Hour), 100, nil),
		createCompletedRecord(settingCreated.Add(2*time.Hour), 100, nil),
	}

	if got := CurrentOrderNumber(settingCreated, records); got != 3 {
		t.Errorf("current order number = %d, want 3", got)
	}
	if got := CurrentOrderNumber(settingCreated, nil); got != 1 {
		t.Errorf("current order number with no records = %d, want 1", got)
	}
}

func TestComputeShortfall(t *testing.T) {
	anyOrder := models.InjectionPlan{InjectionAmount: 500, IsActive: true}
	orderTwo := int64(2)
	specific := models.InjectionPlan{OrderSettingID: &orderTwo, InjectionAmount: 300, IsActive: true}
	inactive := models.InjectionPlan{InjectionAmount: 900, IsActive: false}

	// 无匹配计划返回nil，区别于0
	if got := ComputeShortfall([]models.InjectionPlan{inactive}, 1, 0); got != nil {
		t.Errorf("shortfall = %v, want nil", *got)
	}

	// 指定序号的计划只在序号相等时生效
	if got := ComputeShortfall([]models.InjectionPlan{specific}, 1, 0); got != nil {
		t.Errorf("shortfall for mismatched order = %v, want nil", *got)
	}
	if got := ComputeShortfall([]models.InjectionPlan{specific}, 2, 100); got == nil || *got != 200 {
		t.Errorf("shortfall = %v, want 200", got)
	}

	// 按遇到顺序取第一个匹配计划
	if got := ComputeShortfall([]models.InjectionPlan{specific, anyOrder}, 1, 0); got == nil || *got != 500 {
		t.Errorf("shortfall = %v, want 500 (first matching plan)", got)
	}

	// 充值超过打针金额时差额收敛到0
	if got := ComputeShortfall([]models.InjectionPlan{anyOrder}, 1, 9999); got == nil || *got != 0 {
		t.Errorf("shortfall = %v, want 0", got)
	}
}

func TestPlanStatusFor(t *testing.T) {
	orderThree := int64(3)
	specific := models.InjectionPlan{OrderSettingID: &orderThree, InjectionAmount: 100, IsActive: true}
	general := models.InjectionPlan{InjectionAmount: 100, IsActive: true}

	// 指定序号的计划：序号已过才算completed
	if got := planStatusFor(specific, 3); got != PlanStatusPending {
		t.Errorf("status at order 3 = %q, want pending", got)
	}
	if got := planStatusFor(specific, 4); got != PlanStatusCompleted {
		t.Errorf("status at order 4 = %q, want completed", got)
	}

	// 通用计划：完成过至少1单即completed
	if got := planStatusFor(general, 1); got != PlanStatusPending {
		t.Errorf("general plan before any completion = %q, want pending", got)
	}
	if got := planStatusFor(general, 2); got != PlanStatusCompleted {
		t.Errorf("general plan after first completion = %q, want completed", got)
	}
}

func TestApplyWithdrawSubmit_InsufficientBalance(t *testing.T) {
	balance, err := ApplyWithdrawSubmit(50, 100)
	if err != ErrInsufficientBalance {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
	if balance != 50 {
		t.Errorf("balance changed on failed submit: %v", balance)
	}
}

func TestEnsurePending(t *testing.T) {
	if err := EnsurePending(models.RequestStatusPending); err != nil {
		t.Errorf("pending should be processable, got %v", err)
	}
	for _, status := range []string{models.RequestStatusApproved, models.RequestStatusRejected} {
		if err := EnsurePending(status); err != ErrAlreadyProcessed {
			t.Errorf("status %q: err = %v, want ErrAlreadyProcessed", status, err)
		}
	}
}

// Property-based tests

// **Property: commission override precedence**
// For any record whose description embeds a commission value, RecordCommission
// returns exactly that value regardless of amount and rate; without an
// override it always returns amount * rate.
func TestProperty_RecordCommissionOverride(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("embedded override wins", prop.ForAll(
		func(amount, rate, override float64) bool {
			desc := fmt.Sprintf(`{"commission":%v}`, override)
			return RecordCommission(amount, &desc, rate) == override
		},
		gen.Float64Range(0, 100000),
		gen.Float64Range(0, 1),
		gen.Float64Range(0, 10000),
	))

	properties.Property("no override applies rate", prop.ForAll(
		func(amount, rate float64) bool {
			return RecordCommission(amount, nil, rate) == amount*rate
		},
		gen.Float64Range(0, 100000),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}

// **Property: creation commission fallthrough**
// A non-zero requested commission is used verbatim; zero always falls back to
// amount * rate, so the only way to book a zero commission at creation is a
// zero amount or zero rate.
func TestProperty_CreationCommission(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("non-zero request used verbatim", prop.ForAll(
		func(requested, amount, rate float64) bool {
			if requested == 0 {
				requested = 0.01
			}
			return CreationCommission(requested, amount, rate) == requested
		},
		gen.Float64Range(0.01, 10000),
		gen.Float64Range(0, 100000),
		gen.Float64Range(0, 1),
	))

	properties.Property("zero request computes from rate", prop.ForAll(
		func(amount, rate float64) bool {
			return CreationCommission(0, amount, rate) == amount*rate
		},
		gen.Float64Range(0, 100000),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}

// **Property: withdraw submit/reject symmetry**
// Submitting then rejecting a withdrawal restores the original balance, and a
// successful submit never produces a negative balance.
func TestProperty_WithdrawBalanceSymmetry(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("reject restores submitted amount", prop.ForAll(
		func(balance, amount float64) bool {
			reserved, err := ApplyWithdrawSubmit(balance, amount)
			if err != nil {
				// 余额不足时余额保持不变
				return reserved == balance && balance < amount
			}
			if reserved < 0 {
				return false
			}
			// 浮点加减不保证位级可逆，用容差比较
			return math.Abs(ApplyWithdrawReject(reserved, amount)-balance) < 1e-9
		},
		gen.Float64Range(0, 100000),
		gen.Float64Range(0, 100000),
	))

	properties.Property("recharge approve adds exactly amount", prop.ForAll(
		func(balance, amount float64) bool {
			return ApplyRechargeApprove(balance, amount) == balance+amount
		},
		gen.Float64Range(0, 100000),
		gen.Float64Range(0, 100000),
	))

	properties.TestingRun(t)
}

// **Property: batch completion bounds**
// CompletedInBatch never exceeds maxOrders and never counts records created
// before the batch; CurrentOrderNumber is always the unclamped completed
// count plus one.
func TestProperty_BatchCounting(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	settingCreated := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	properties.Property("completed count clamped to maxOrders", prop.ForAll(
		func(numBefore, numAfter, maxOrders int) bool {
			var records []models.OrderRecord
			for i := 0; i < numBefore; i++ {
				records = append(records, createCompletedRecord(settingCreated.Add(-time.Duration(i+1)*time.Minute), 100, nil))
			}
			for i := 0; i < numAfter; i++ {
				records = append(records, createCompletedRecord(settingCreated.Add(time.Duration(i+1)*time.Minute), 100, nil))
			}

			completed := CompletedInBatch(settingCreated, maxOrders, records)
			if completed > maxOrders {
				return false
			}
			expected := numAfter
			if expected > maxOrders {
				expected = maxOrders
			}
			if completed != expected {
				return false
			}
			return CurrentOrderNumber(settingCreated, records) == numAfter+1
		},
		gen.IntRange(0, 20),
		gen.IntRange(0, 20),
		gen.IntRange(0, 15),
	))

	properties.TestingRun(t)
}

// **Property: shortfall never negative**
// For any plan set and recharge total, a non-nil shortfall is always >= 0 and
// equals max(0, injectionAmount - totalRecharged) of the first matching
// active plan.
func TestProperty_ShortfallNonNegative(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("shortfall clamps at zero", prop.ForAll(
		func(injectionAmount, totalRecharged float64, currentOrder int) bool {
			plans := []models.InjectionPlan{{InjectionAmount: injectionAmount, IsActive: true}}
			got := ComputeShortfall(plans, currentOrder, totalRecharged)
			if got == nil {
				return false
			}
			expected := injectionAmount - totalRecharged
			if expected < 0 {
				expected = 0
			}
			return *got == expected && *got >= 0
		},
		gen.Float64Range(0, 100000),
		gen.Float64Range(0, 100000),
		gen.IntRange(1, 50),
	))

	properties.Property("inactive plans never match", prop.ForAll(
		func(injectionAmount float64, currentOrder int) bool {
			plans := []models.InjectionPlan{{InjectionAmount: injectionAmount, IsActive: false}}
			return ComputeShortfall(plans, currentOrder, 0) == nil
		},
		gen.Float64Range(0, 100000),
		gen.IntRange(1, 50),
	))

	properties.TestingRun(t)
}
