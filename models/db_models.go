package models

import (
	"time"
)

// 充值/取款申请状态
const (
	RequestStatusPending  = "pending"  // 待审核
	RequestStatusApproved = "approved" // 审核通过
	RequestStatusRejected = "rejected" // 已驳回
)

// 做单记录状态
const (
	OrderStatusPending   = "pending"   // 未完成
	OrderStatusCompleted = "completed" // 已完成
)

// 做单设置状态
const (
	SettingStatusEnabled = "enabled" // 已启用
)

// 客服会话状态
const (
	ConversationStatusOpen = "open" // 进行中
)

// 客服消息发送方类型
const (
	SenderTypeUser    = "user"    // 会员
	SenderTypeService = "service" // 客服
)

// User 用户表（业务会员与子用户共用一张表，通过is_sub_user区分）
type User struct {
	ID                 int64      `json:"id" db:"id"`                                         // 主键
	Account            string     `json:"account" db:"account"`                               // 账号（唯一）
	Name               *string    `json:"name" db:"name"`                                     // 随机英文名
	Email              *string    `json:"email" db:"email"`                                   // 邮箱（可空）
	LoginPasswordHash  *string    `json:"-" db:"login_password_hash"`                         // 登录密码hash（可空，不返回给前端）
	PayPasswordHash    *string    `json:"-" db:"pay_password_hash"`                           // 支付密码hash（可空，不返回给前端）
	Balance            float64    `json:"balance" db:"balance"`                               // 账户余额（不允许为负）
	InviteCode         string     `json:"invite_code" db:"invite_code"`                       // 注册时使用的邀请码（上级的邀请码）
	MyInviteCode       *string    `json:"my_invite_code" db:"my_invite_code"`                 // 用户自己的邀请码（唯一）
	ParentID           *int64     `json:"parent_id" db:"parent_id"`                           // 上级用户ID（可空）
	WalletAddress      *string    `json:"wallet_address" db:"wallet_address"`                 // 钱包地址（可空）
	Remark             *string    `json:"remark" db:"remark"`                                 // 备注（仅B端使用，可空）
	IsOnline           bool       `json:"is_online" db:"is_online"`                           // 是否在线
	LastLoginAt        *time.Time `json:"last_login_at" db:"last_login_at"`                   // 最后登录时间（可空）
	IsSubUser          bool       `json:"is_sub_user" db:"is_sub_user"`                       // 是否子用户
	ParentAdminID      *int64     `json:"parent_admin_id" db:"parent_admin_id"`               // 所属管理员ID（子用户专用，可空）
	ManagedBySubUserID *int64     `json:"managed_by_sub_user_id" db:"managed_by_sub_user_id"` // 管理该会员的子用户ID（可空）
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`                         // 创建时间
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`                         // 更新时间
}

// OrderSetting 做单设置表（每次开单一条，最新一条生效）
type OrderSetting struct {
	ID             int64     `json:"id" db:"id"`                           // 主键
	UserID         int64     `json:"user_id" db:"user_id"`                 // 用户ID
	MaxOrders      int       `json:"max_orders" db:"max_orders"`           // 本批开启订单数量
	CommissionRate float64   `json:"commission_rate" db:"commission_rate"` // 用户个人佣金比例（叠加在全局比例上）
	OrderType      string    `json:"order_type" db:"order_type"`           // 订单类型（默认pre-order）
	Amount         float64   `json:"amount" db:"amount"`                   // 金额
	Description    *string   `json:"description" db:"description"`         // 描述（可空）
	Status         string    `json:"status" db:"status"`                   // 状态（enabled）
	CreatedAt      time.Time `json:"created_at" db:"created_at"`           // 创建时间
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`           // 更新时间
}

// OrderRecord 做单记录表（只增不改）
type OrderRecord struct {
	ID          int64     `json:"id" db:"id"`                   // 主键
	UserID      int64     `json:"user_id" db:"user_id"`         // 用户ID
	OrderType   string    `json:"order_type" db:"order_type"`   // 订单类型
	Amount      float64   `json:"amount" db:"amount"`           // 订单金额
	Status      string    `json:"status" db:"status"`           // 状态（pending/completed/自由字符串）
	Description *string   `json:"description" db:"description"` // 描述（可内嵌 {"commission":N} 或 {"c":N} 佣金覆盖）
	CreatedAt   time.Time `json:"created_at" db:"created_at"`   // 创建时间
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`   // 更新时间
}

// InjectionPlan 打针计划表
type InjectionPlan struct {
	ID              int64     `json:"id" db:"id"`                             // 主键
	UserID          int64     `json:"user_id" db:"user_id"`                   // 用户ID
	OrderSettingID  *int64    `json:"order_setting_id" db:"order_setting_id"` // 生效的订单序号（空表示所有订单）
	CommissionRate  float64   `json:"commission_rate" db:"commission_rate"`   // 订单佣金（仅记录，不参与余额计算）
	InjectionAmount float64   `json:"injection_amount" db:"injection_amount"` // 打针金额
	IsActive        bool      `json:"is_active" db:"is_active"`               // 是否激活
	CreatedAt       time.Time `json:"created_at" db:"created_at"`             // 创建时间
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`             // 更新时间
}

// CommissionRate 全局佣金比例表（最多一条激活）
type CommissionRate struct {
	ID          int64     `json:"id" db:"id"`                   // 主键
	Rate        float64   `json:"rate" db:"rate"`               // 比例（0.1 = 10%）
	IsActive    bool      `json:"is_active" db:"is_active"`     // 是否启用
	Description *string   `json:"description" db:"description"` // 描述（可空）
	CreatedAt   time.Time `json:"created_at" db:"created_at"`   // 创建时间
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`   // 更新时间
}

// RechargeRequest 充值申请表
type RechargeRequest struct {
	ID                 int64     `json:"id" db:"id"`                                         // 主键
	UserID             int64     `json:"user_id" db:"user_id"`                               // 用户ID
	Amount             float64   `json:"amount" db:"amount"`                                 // 充值金额
	Status             string    `json:"status" db:"status"`                                 // 状态（pending/approved/rejected）
	Note               *string   `json:"note" db:"note"`                                     // 审核备注（可空）
	VoucherImage       *string   `json:"voucher_image,omitempty" db:"voucher_image"`         // 凭证图片base64（可空）
	CreatedBySubUserID *int64    `json:"created_by_sub_user_id" db:"created_by_sub_user_id"` // 创建该申请的子用户ID（可空）
	CreatedAt          time.Time `json:"created_at" db:"created_at"`                         // 创建时间
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`                         // 更新时间
}

// WithdrawRequest 取款申请表
type WithdrawRequest struct {
	ID                   int64     `json:"id" db:"id"`                                             // 主键
	UserID               int64     `json:"user_id" db:"user_id"`                                   // 用户ID
	Amount               float64   `json:"amount" db:"amount"`                                     // 取款金额
	Status               string    `json:"status" db:"status"`                                     // 状态（pending/approved/rejected）
	Note                 *string   `json:"note" db:"note"`                                         // 审核备注（可空）
	WalletAddress        *string   `json:"wallet_address" db:"wallet_address"`                     // 收款钱包地址（可空）
	ProcessedBySubUserID *int64    `json:"processed_by_sub_user_id" db:"processed_by_sub_user_id"` // 处理该申请的子用户ID（可空）
	CreatedAt            time.Time `json:"created_at" db:"created_at"`                             // 创建时间
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`                             // 更新时间
}

// Product 商品表
type Product struct {
	ID          int64     `json:"id" db:"id"`                   // 主键
	Name        string    `json:"name" db:"name"`               // 商品名
	Description *string   `json:"description" db:"description"` // 描述（可空）
	Image       *string   `json:"image" db:"image"`             // 图片base64（可空）
	IsActive    bool      `json:"is_active" db:"is_active"`     // 是否上架
	CreatedAt   time.Time `json:"created_at" db:"created_at"`   // 创建时间
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`   // 更新时间
}

// ProductPriceConfig 商品价格比例配置（单行）
type ProductPriceConfig struct {
	ID        int64     `json:"id" db:"id"`                 // 主键
	MinRate   float64   `json:"min_rate" db:"min_rate"`     // 最小比例
	MaxRate   float64   `json:"max_rate" db:"max_rate"`     // 最大比例
	CreatedAt time.Time `json:"created_at" db:"created_at"` // 创建时间
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // 更新时间
}

// RechargeConfig 充值收款配置（单行）
type RechargeConfig struct {
	ID           int64     `json:"id" db:"id"`                       // 主键
	TRC20Address *string   `json:"trc20_address" db:"trc20_address"` // TRC20收款地址（可空）
	TRXAddress   *string   `json:"trx_address" db:"trx_address"`     // TRX收款地址（可空）
	CreatedAt    time.Time `json:"created_at" db:"created_at"`       // 创建时间
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`       // 更新时间
}

// SupportConversation 客服会话表
type SupportConversation struct {
	ID        int64     `json:"id" db:"id"`                 // 主键
	UserID    int64     `json:"user_id" db:"user_id"`       // 会员ID
	ServiceID *int64    `json:"service_id" db:"service_id"` // 客服ID（可空，0为系统客服）
	Status    string    `json:"status" db:"status"`         // 状态（open/closed）
	CreatedAt time.Time `json:"created_at" db:"created_at"` // 创建时间
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // 更新时间
}

// SupportMessage 客服消息表（只增不改，is_read除外）
type SupportMessage struct {
	ID             int64     `json:"id" db:"id"`                           // 主键
	ConversationID int64     `json:"conversation_id" db:"conversation_id"` // 会话ID
	SenderType     string    `json:"sender_type" db:"sender_type"`         // 发送方类型（user/service）
	SenderID       int64     `json:"sender_id" db:"sender_id"`             // 发送方ID（系统客服为0）
	Content        string    `json:"content" db:"content"`                 // 消息内容
	IsRead         bool      `json:"is_read" db:"is_read"`                 // 是否已读
	CreatedAt      time.Time `json:"created_at" db:"created_at"`           // 创建时间
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`           // 更新时间
}

// Captcha 图形验证码表（session_id唯一，一次性使用）
type Captcha struct {
	ID        int64     `json:"id" db:"id"`                 // 主键
	SessionID string    `json:"session_id" db:"session_id"` // 会话ID（唯一）
	Code      string    `json:"code" db:"code"`             // 验证码
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"` // 过期时间
	CreatedAt time.Time `json:"created_at" db:"created_at"` // 创建时间
}
