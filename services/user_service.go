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

// bcrypt成本与原系统一致
const bcryptCost = 10

// ErrInvalidCredentials 账号或密码错误（登录统一返回，不区分账号不存在）
var ErrInvalidCredentials = fmt.Errorf("账号或密码错误")

// UserService 用户服务
type UserService struct {
	db           *sqlx.DB
	orders       *OrderService
	recharges    *RechargeService
	injections   *InjectionService
	adminAccount string // 管理员占位行不进会员列表
}

// NewUserService 创建用户服务
func NewUserService(db *sqlx.DB, orders *OrderService, recharges *RechargeService, injections *InjectionService, adminAccount string) *UserService {
	return &UserService{db: db, orders: orders, recharges: recharges, injections: injections, adminAccount: adminAccount}
}

const userColumns = `id, account, name, email, login_password_hash, pay_password_hash, balance,
	invite_code, my_invite_code, parent_id, wallet_address, remark, is_online, last_login_at,
	is_sub_user, parent_admin_id, managed_by_sub_user_id, created_at, updated_at`

// GetByID 按ID查用户
func (s *UserService) GetByID(id int64) (*models.User, error) {
	var user models.User
	err := s.db.Get(&user, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("用户不存在")
		}
		return nil, err
	}
	return &user, nil
}

// GetByAccount 按账号查用户（不存在时返回nil）
func (s *UserService) GetByAccount(account string) (*models.User, error) {
	var user models.User
	err := s.db.Get(&user, `SELECT `+userColumns+` FROM users WHERE account = ?`, account)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByInviteCode 按邀请码查持有人（不存在时返回nil）
func (s *UserService) GetByInviteCode(code string) (*models.User, error) {
	var user models.User
	err := s.db.Get(&user, `SELECT `+userColumns+` FROM users WHERE my_invite_code = ?`, code)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// inviteCodeExists 邀请码是否已被占用
func (s *UserService) inviteCodeExists(code string) (bool, error) {
	var count int
	if err := s.db.Get(&count, `SELECT COUNT(*) FROM users WHERE my_invite_code = ?`, code); err != nil {
		return false, err
	}
	return count > 0, nil
}

// nameExists 显示名是否已被占用
func (s *UserService) nameExists(name string) (bool, error) {
	var count int
	if err := s.db.Get(&count, `SELECT COUNT(*) FROM users WHERE name = ?`, name); err != nil {
		return false, err
	}
	return count > 0, nil
}

// Register 注册新用户。邀请码必须属于已存在的用户（上级）；为新用户生成
// 唯一邀请码和唯一随机显示名；邀请码属于子用户时把新用户划归该子用户。
func (s *UserService) Register(account, loginPassword, payPassword, inviteCode string) (*models.User, error) {
	existing, err := s.GetByAccount(account)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("账号已存在")
	}

	parent, err := s.GetByInviteCode(inviteCode)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, fmt.Errorf("邀请码无效")
	}

	myCode, err := GenerateUniqueInviteCode(s.inviteCodeExists)
	if err != nil {
		return nil, err
	}
	name, err := GenerateUniqueName(InviteCodeMaxAttempts, s.nameExists)
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

	var managedBy *int64
	if parent.IsSubUser {
		managedBy = &parent.ID
	}

	now := time.Now()
	loginHashStr := string(loginHash)
	payHashStr := string(payHash)
	user := &models.User{
		Account:            account,
		Name:               &name,
		LoginPasswordHash:  &loginHashStr,
		PayPasswordHash:    &payHashStr,
		InviteCode:         inviteCode,
		MyInviteCode:       &myCode,
		ParentID:           &parent.ID,
		ManagedBySubUserID: managedBy,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	result, err := s.db.Exec(
		`INSERT INTO users (account, name, login_password_hash, pay_password_hash, balance, invite_code,
		 my_invite_code, parent_id, managed_by_sub_user_id, is_online, is_sub_user, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 0, ?, ?, ?, ?, false, false, ?, ?)`,
		user.Account, user.Name, user.LoginPasswordHash, user.PayPasswordHash,
		user.InviteCode, user.MyInviteCode, user.ParentID, user.ManagedBySubUserID, now, now,
	)
	if err != nil {
		log.Printf("ERROR: Failed to insert user %s: %v", account, err)
		return nil, err
	}
	user.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}

	log.Printf("INFO: User registered: id=%d, account=%s, parent_id=%d", user.ID, account, parent.ID)
	return user, nil
}

// Login 会员登录。账号不存在和密码错误返回同一个错误，成功后标记在线。
func (s *UserService) Login(account, password string) (*models.User, error) {
	var user models.User
	err := s.db.Get(&user, `SELECT `+userColumns+` FROM users WHERE account = ? AND is_sub_user = false`, account)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if user.LoginPasswordHash == nil ||
		bcrypt.CompareHashAndPassword([]byte(*user.LoginPasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	if _, err := s.db.Exec(`UPDATE users SET is_online = true, last_login_at = ?, updated_at = ? WHERE id = ?`, now, now, user.ID); err != nil {
		log.Printf("WARN: Failed to mark user %d online: %v", user.ID, err)
	}
	user.IsOnline = true
	user.LastLoginAt = &now

	log.Printf("INFO: User logged in: id=%d, account=%s", user.ID, account)
	return &user, nil
}

// SubUserLogin 子用户登录（B端）
func (s *UserService) SubUserLogin(account, password string) (*models.User, error) {
	var user models.User
	err := s.db.Get(&user, `SELECT `+userColumns+` FROM users WHERE account = ? AND is_sub_user = true`, account)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if user.LoginPasswordHash == nil ||
		bcrypt.CompareHashAndPassword([]byte(*user.LoginPasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	if _, err := s.db.Exec(`UPDATE users SET is_online = true, last_login_at = ?, updated_at = ? WHERE id = ?`, now, now, user.ID); err != nil {
		log.Printf("WARN: Failed to mark sub user %d online: %v", user.ID, err)
	}
	user.IsOnline = true
	user.LastLoginAt = &now

	log.Printf("INFO: Sub user logged in: id=%d, account=%s", user.ID, account)
	return &user, nil
}

// Logout 标记离线
func (s *UserService) Logout(userID int64) error {
	_, err := s.db.Exec(`UPDATE users SET is_online = false, updated_at = ? WHERE id = ?`, time.Now(), userID)
	return err
}

// UserSummary 用户摘要（上级、团队成员展示用）
type UserSummary struct {
	ID      int64   `json:"id" db:"id"`
	Account string  `json:"account" db:"account"`
	Name    *string `json:"name" db:"name"`
}

// DecoratedUser B端用户列表行：用户本体加做单统计、上级、充值总额和打针差额
type DecoratedUser struct {
	models.User
	Parent             *UserSummary         `json:"parent"`               // 上级摘要
	LatestOrderSetting *models.OrderSetting `json:"latest_order_setting"` // 最新做单设置
	OrderStats         OrderStats           `json:"order_stats"`          // 做单统计
	TotalRecharged     float64              `json:"total_recharged"`      // 已审核充值总额
	Difference         *float64             `json:"difference"`           // 打针订单差额（无匹配时null）
}

// ListDecorated B端用户列表：排除管理员账号与子用户；subUserID非nil时只返回
// 该子用户名下的会员。在线的排前面按最近登录倒序，离线的按创建时间倒序。
func (s *UserService) ListDecorated(subUserID *int64) ([]DecoratedUser, error) {
	users := []models.User{}
	query, args := s.listQuery(subUserID)
	if err := s.db.Select(&users, query, args...); err != nil {
		return nil, err
	}

	globalRate, err := s.orders.rates.ActiveRateValue()
	if err != nil {
		return nil, err
	}

	result := make([]DecoratedUser, 0, len(users))
	for _, user := range users {
		decorated, err := s.decorate(user, globalRate)
		if err != nil {
			return nil, err
		}
		result = append(result, *decorated)
	}
	return result, nil
}

// listQuery 会员列表查询：排除子用户与管理员占位行，可按管理子用户过滤
func (s *UserService) listQuery(subUserID *int64) (string, []interface{}) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE is_sub_user = false AND account != ?
	`
	args := []interface{}{s.adminAccount}
	if subUserID != nil {
		query += ` AND managed_by_sub_user_id = ?`
		args = append(args, *subUserID)
	}
	query += `
		ORDER BY is_online DESC,
		         CASE WHEN is_online THEN last_login_at END DESC,
		         created_at DESC
	`
	return query, args
}

// decorate 给单个用户补齐列表所需的统计字段
func (s *UserService) decorate(user models.User, globalRate float64) (*DecoratedUser, error) {
	decorated := &DecoratedUser{User: user}

	if user.ParentID != nil {
		var parent UserSummary
		err := s.db.Get(&parent, `SELECT id, account, name FROM users WHERE id = ?`, *user.ParentID)
		if err != nil && err != sql.ErrNoRows {
			return nil, err
		}
		if err == nil {
			decorated.Parent = &parent
		}
	}

	latest, err := s.orders.LatestSetting(user.ID)
	if err != nil {
		return nil, err
	}
	decorated.LatestOrderSetting = latest

	cumulative, err := s.orders.CumulativeOpened(user.ID)
	if err != nil {
		return nil, err
	}
	records, err := s.orders.Records(user.ID)
	if err != nil {
		return nil, err
	}

	userRate := 0.0
	if latest != nil {
		userRate = latest.CommissionRate
	}
	decorated.OrderStats = ComputeOrderStats(latest, cumulative, records, EffectiveRate(globalRate, userRate))

	decorated.TotalRecharged, err = s.recharges.ApprovedTotal(user.ID)
	if err != nil {
		return nil, err
	}

	decorated.Difference, err = s.injections.Shortfall(user.ID)
	if err != nil {
		return nil, err
	}

	return decorated, nil
}

// GetDecorated 单个用户详情（带列表同款统计）
func (s *UserService) GetDecorated(id int64) (*DecoratedUser, error) {
	user, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	globalRate, err := s.orders.rates.ActiveRateValue()
	if err != nil {
		return nil, err
	}
	return s.decorate(*user, globalRate)
}

// Team 团队信息：该用户、其上级和直属下级
type Team struct {
	User     *models.User  `json:"user"`
	Parent   *UserSummary  `json:"parent"`
	Children []UserSummary `json:"children"`
}

// GetTeam 查团队
func (s *UserService) GetTeam(id int64) (*Team, error) {
	user, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	team := &Team{User: user, Children: []UserSummary{}}

	if user.ParentID != nil {
		var parent UserSummary
		err := s.db.Get(&parent, `SELECT id, account, name FROM users WHERE id = ?`, *user.ParentID)
		if err != nil && err != sql.ErrNoRows {
			return nil, err
		}
		if err == nil {
			team.Parent = &parent
		}
	}

	if err := s.db.Select(&team.Children, `SELECT id, account, name FROM users WHERE parent_id = ? ORDER BY created_at DESC`, id); err != nil {
		return nil, err
	}
	return team, nil
}

// ResetPasswords 管理员重置密码（任一或两者，明文传入，存bcrypt哈希）
func (s *UserService) ResetPasswords(id int64, loginPassword, payPassword *string) error {
	user, err := s.GetByID(id)
	if err != nil {
		return err
	}

	if loginPassword != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*loginPassword), bcryptCost)
		if err != nil {
			return err
		}
		hashStr := string(hash)
		user.LoginPasswordHash = &hashStr
	}
	if payPassword != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*payPassword), bcryptCost)
		if err != nil {
			return err
		}
		hashStr := string(hash)
		user.PayPasswordHash = &hashStr
	}

	_, err = s.db.Exec(
		`UPDATE users SET login_password_hash = ?, pay_password_hash = ?, updated_at = ? WHERE id = ?`,
		user.LoginPasswordHash, user.PayPasswordHash, time.Now(), id,
	)
	if err != nil {
		log.Printf("ERROR: Failed to reset passwords for user %d: %v", id, err)
	}
	return err
}

// UpdateRemark 更新备注
func (s *UserService) UpdateRemark(id int64, remark *string) error {
	result, err := s.db.Exec(`UPDATE users SET remark = ?, updated_at = ? WHERE id = ?`, remark, time.Now(), id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("用户不存在")
	}
	return nil
}

// AssignSubUser 把会员划归到某个子用户名下；subUserID为nil表示解除归属。
// 目标必须是子用户。
func (s *UserService) AssignSubUser(id int64, subUserID *int64) error {
	if subUserID != nil {
		var isSubUser bool
		err := s.db.Get(&isSubUser, `SELECT is_sub_user FROM users WHERE id = ?`, *subUserID)
		if err != nil {
			if err == sql.ErrNoRows {
				return fmt.Errorf("子用户不存在")
			}
			return err
		}
		if !isSubUser {
			return fmt.Errorf("目标用户不是子用户")
		}
	}

	result, err := s.db.Exec(`UPDATE users SET managed_by_sub_user_id = ?, updated_at = ? WHERE id = ?`, subUserID, time.Now(), id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("用户不存在")
	}
	return nil
}

// Delete 删除用户及其全部业务数据。单个事务内删做单记录、做单设置、
// 充值取款申请、打针计划，下级的parent_id置空，最后删用户行。
func (s *UserService) Delete(id int64) error {
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

	for _, stmt := range []string{
		`DELETE FROM order_records WHERE user_id = ?`,
		`DELETE FROM order_settings WHERE user_id = ?`,
		`DELETE FROM recharge_requests WHERE user_id = ?`,
		`DELETE FROM withdraw_requests WHERE user_id = ?`,
		`DELETE FROM injection_plans WHERE user_id = ?`,
	} {
		if _, err = tx.Exec(stmt, id); err != nil {
			log.Printf("ERROR: Failed to delete user %d data: %v", id, err)
			return err
		}
	}

	if _, err = tx.Exec(`UPDATE users SET parent_id = NULL, updated_at = ? WHERE parent_id = ?`, time.Now(), id); err != nil {
		log.Printf("ERROR: Failed to detach children of user %d: %v", id, err)
		return err
	}

	var result sql.Result
	result, err = tx.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		log.Printf("ERROR: Failed to delete user %d: %v", id, err)
		return err
	}
	var rows int64
	rows, err = result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		err = fmt.Errorf("用户不存在")
		return err
	}

	if err = tx.Commit(); err != nil {
		log.Printf("ERROR: Failed to commit transaction: %v", err)
		return err
	}

	log.Printf("INFO: User %d deleted with all related data", id)
	return nil
}

// Profile A端个人中心数据
type Profile struct {
	User            *models.User `json:"user"`
	TodayCommission float64      `json:"todayCommission"` // 今日佣金
	TotalCommission float64      `json:"totalCommission"` // 累计佣金
	Difference      *float64     `json:"difference"`      // 打针订单差额
}

// GetProfile A端个人中心：余额、钱包、邀请码之外附带今日与累计佣金。
// 每条完成记录的佣金取描述覆盖值，无覆盖时按当前最终比例计算。
// 今日佣金目前按累计展示，两个字段同值。
func (s *UserService) GetProfile(id int64) (*Profile, error) {
	user, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	rate, err := s.orders.EffectiveRateFor(id)
	if err != nil {
		return nil, err
	}
	records, err := s.orders.Records(id)
	if err != nil {
		return nil, err
	}

	profile := &Profile{User: user}
	for _, r := range records {
		if r.Status != models.OrderStatusCompleted {
			continue
		}
		profile.TotalCommission += RecordCommission(r.Amount, r.Description, rate)
	}
	profile.TodayCommission = profile.TotalCommission

	profile.Difference, err = s.injections.Shortfall(id)
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// AdjustBalance 管理员调整余额（增量可负，结果不能为负）
func (s *UserService) AdjustBalance(id int64, delta float64) (float64, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		log.Printf("ERROR: Failed to begin transaction: %v", err)
		return 0, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
			log.Printf("INFO: Transaction rolled back")
		}
	}()

	var balance float64
	err = tx.Get(&balance, `SELECT balance FROM users WHERE id = ? FOR UPDATE`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			err = fmt.Errorf("用户不存在")
		}
		return 0, err
	}

	newBalance := balance + delta
	if newBalance < 0 {
		err = fmt.Errorf("余额不足，调整后余额不能为负")
		return 0, err
	}

	if _, err = tx.Exec(`UPDATE users SET balance = ?, updated_at = ? WHERE id = ?`, newBalance, time.Now(), id); err != nil {
		log.Printf("ERROR: Failed to adjust balance for user %d: %v", id, err)
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		log.Printf("ERROR: Failed to commit transaction: %v", err)
		return 0, err
	}

	log.Printf("INFO: Balance adjusted for user %d: delta=%f, balance=%f", id, delta, newBalance)
	return newBalance, nil
}

// UpdateWallet 更新钱包地址
func (s *UserService) UpdateWallet(id int64, walletAddress string) error {
	result, err := s.db.Exec(`UPDATE users SET wallet_address = ?, updated_at = ? WHERE id = ?`, walletAddress, time.Now(), id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("用户不存在")
	}
	return nil
}

// ChangeLoginPassword 修改登录密码（先验旧密码）
func (s *UserService) ChangeLoginPassword(id int64, oldPassword, newPassword string) error {
	user, err := s.GetByID(id)
	if err != nil {
		return err
	}
	if user.LoginPasswordHash == nil ||
		bcrypt.CompareHashAndPassword([]byte(*user.LoginPasswordHash), []byte(oldPassword)) != nil {
		return fmt.Errorf("原密码错误")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`UPDATE users SET login_password_hash = ?, updated_at = ? WHERE id = ?`, string(hash), time.Now(), id)
	return err
}

// ChangePayPassword 修改支付密码（先验旧密码）
func (s *UserService) ChangePayPassword(id int64, oldPassword, newPassword string) error {
	user, err := s.GetByID(id)
	if err != nil {
		return err
	}
	if user.PayPasswordHash == nil ||
		bcrypt.CompareHashAndPassword([]byte(*user.PayPasswordHash), []byte(oldPassword)) != nil {
		return fmt.Errorf("原支付密码错误")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`UPDATE users SET pay_password_hash = ?, updated_at = ? WHERE id = ?`, string(hash), time.Now(), id)
	return err
}
