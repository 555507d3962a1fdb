package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yuewan10000-ops/task-platform/middleware"
	"github.com/yuewan10000-ops/task-platform/services"
)

// UserController 用户控制器（B端用户管理 + A端个人中心）
type UserController struct {
	users *services.UserService
	jwt   *middleware.JWTMiddleware
}

// NewUserController 创建用户控制器
func NewUserController(users *services.UserService, jwtMiddleware *middleware.JWTMiddleware) *UserController {
	return &UserController{
		users: users,
		jwt:   jwtMiddleware,
	}
}

// RegisterRoutes 注册路由
func (uc *UserController) RegisterRoutes(router *gin.Engine) {
	// B端用户管理
	admin := router.Group("/api/users")
	admin.Use(uc.jwt.JWTAuth())
	{
		admin.GET("", uc.ListUsers)
		admin.GET("/:id", uc.GetUser)
		admin.GET("/:id/team", uc.GetTeam)
		admin.PUT("/:id/password", uc.ResetPasswords)
		admin.PUT("/:id/remark", uc.UpdateRemark)
		admin.PUT("/:id/assign-sub-user", middleware.RequireAdmin(), uc.AssignSubUser)
		admin.DELETE("/:id", uc.DeleteUser)
	}

	// A端个人中心
	self := router.Group("/api/user")
	self.Use(uc.jwt.JWTAuth())
	{
		self.GET("/me", uc.GetProfile)
		self.PUT("/balance", uc.AdjustBalance)
		self.PUT("/wallet", uc.UpdateWallet)
		self.PUT("/password/login", uc.ChangeLoginPassword)
		self.PUT("/password/payment", uc.ChangePayPassword)
	}
}

// parseIDParam 解析路径里的数字ID
func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的ID",
		})
		return 0, false
	}
	return id, true
}

// ==================== B端用户管理 ====================

// ListUsers 用户列表
// @Summary 用户列表
// @Description 业务用户列表（带做单统计、充值总额和打针差额），子用户只能看名下会员
// @Tags 用户管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/users [get]
func (uc *UserController) ListUsers(c *gin.Context) {
	cu, ok := middleware.GetCurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "message": "未登录"})
		return
	}

	var subUserID *int64
	if cu.IsSubUser {
		subUserID = &cu.ID
	}

	users, err := uc.users.ListDecorated(subUserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "查询用户列表失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data":    users,
	})
}

// GetUser 用户详情
// @Summary 用户详情
// @Tags 用户管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/users/{id} [get]
func (uc *UserController) GetUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	user, err := uc.users.GetDecorated(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    404,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data":    user,
	})
}

// GetTeam 团队信息
// @Summary 团队信息
// @Description 该用户、其上级和直属下级
// @Tags 用户管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/users/{id}/team [get]
func (uc *UserController) GetTeam(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	team, err := uc.users.GetTeam(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    404,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data":    team,
	})
}

// ResetPasswordsRequest 管理端重置密码请求（任一即可）
type ResetPasswordsRequest struct {
	LoginPassword *string `json:"login_password" binding:"omitempty,min=6"`
	PayPassword   *string `json:"pay_password" binding:"omitempty,min=6"`
}

// ResetPasswords 重置用户密码
// @Summary 重置用户密码
// @Description 管理端直接重置登录密码或支付密码
// @Tags 用户管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户ID"
// @Param request body ResetPasswordsRequest true "新密码"
// @Success 200 {object} map[string]interface{}
// @Router /api/users/{id}/password [put]
func (uc *UserController) ResetPasswords(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ResetPasswordsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误",
			"error":   err.Error(),
		})
		return
	}
	if req.LoginPassword == nil && req.PayPassword == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "至少提供一个新密码",
		})
		return
	}

	if err := uc.users.ResetPasswords(id, req.LoginPassword, req.PayPassword); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "密码已重置",
	})
}

// UpdateRemarkRequest 更新备注请求
type UpdateRemarkRequest struct {
	Remark *string `json:"remark"`
}

// UpdateRemark 更新用户备注
// @Summary 更新用户备注
// @Tags 用户管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户ID"
// @Param request body UpdateRemarkRequest true "备注"
// @Success 200 {object} map[string]interface{}
// @Router /api/users/{id}/remark [put]
func (uc *UserController) UpdateRemark(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateRemarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误",
			"error":   err.Error(),
		})
		return
	}

	if err := uc.users.UpdateRemark(id, req.Remark); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "备注已更新",
	})
}

// AssignSubUserRequest 划归子用户请求（sub_user_id为0或空表示解除归属）
type AssignSubUserRequest struct {
	SubUserID *int64 `json:"sub_user_id"`
}

// AssignSubUser 把会员划归到子用户名下
// @Summary 划归子用户
// @Description 仅管理员；sub_user_id为0或空表示解除归属
// @Tags 用户管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户ID"
// @Param request body AssignSubUserRequest true "子用户"
// @Success 200 {object} map[string]interface{}
// @Router /api/users/{id}/assign-sub-user [put]
func (uc *UserController) AssignSubUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req AssignSubUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误",
			"error":   err.Error(),
		})
		return
	}

	subUserID := req.SubUserID
	if subUserID != nil && *subUserID == 0 {
		subUserID = nil
	}

	if err := uc.users.AssignSubUser(id, subUserID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "归属已更新",
	})
}

// DeleteUser 删除用户
// @Summary 删除用户
// @Description 同时删除该用户的做单、充值、取款和打针数据，下级解除挂靠
// @Tags 用户管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/users/{id} [delete]
func (uc *UserController) DeleteUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := uc.users.Delete(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "用户已删除",
	})
}

// ==================== A端个人中心 ====================

// GetProfile 个人中心
// @Summary 个人中心
// @Description 余额、钱包、邀请码，附带今日与累计佣金和打针差额
// @Tags 个人中心
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/user/me [get]
func (uc *UserController) GetProfile(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "message": "未登录"})
		return
	}

	profile, err := uc.users.GetProfile(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "查询个人信息失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data":    profile,
	})
}

// AdjustBalanceRequest 调整余额请求
type AdjustBalanceRequest struct {
	UserID int64   `json:"user_id" binding:"required"`
	Amount float64 `json:"amount" binding:"required"`
}

// AdjustBalance 调整用户余额
// @Summary 调整用户余额
// @Description 管理端调整，增量可为负，结果不能为负
// @Tags 个人中心
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AdjustBalanceRequest true "调整信息"
// @Success 200 {object} map[string]interface{}
// @Router /api/user/balance [put]
func (uc *UserController) AdjustBalance(c *gin.Context) {
	cu, ok := middleware.GetCurrentUser(c)
	if !ok || !cu.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{
			"code":    403,
			"message": "仅管理员可操作",
		})
		return
	}

	var req AdjustBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误",
			"error":   err.Error(),
		})
		return
	}

	balance, err := uc.users.AdjustBalance(req.UserID, req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "余额已调整",
		"data": gin.H{
			"balance": balance,
		},
	})
}

// UpdateWalletRequest 更新钱包地址请求
type UpdateWalletRequest struct {
	WalletAddress string `json:"wallet_address" binding:"required"`
}

// UpdateWallet 更新钱包地址
// @Summary 更新钱包地址
// @Tags 个人中心
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateWalletRequest true "钱包地址"
// @Success 200 {object} map[string]interface{}
// @Router /api/user/wallet [put]
func (uc *UserController) UpdateWallet(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "message": "未登录"})
		return
	}

	var req UpdateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误",
			"error":   err.Error(),
		})
		return
	}

	if err := uc.users.UpdateWallet(userID, req.WalletAddress); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "钱包地址已更新",
	})
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

// ChangeLoginPassword 修改登录密码
// @Summary 修改登录密码
// @Tags 个人中心
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChangePasswordRequest true "新旧密码"
// @Success 200 {object} map[string]interface{}
// @Router /api/user/password/login [put]
func (uc *UserController) ChangeLoginPassword(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "message": "未登录"})
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误",
			"error":   err.Error(),
		})
		return
	}

	if err := uc.users.ChangeLoginPassword(userID, req.OldPassword, req.NewPassword); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "登录密码已修改",
	})
}

// ChangePayPassword 修改支付密码
// @Summary 修改支付密码
// @Tags 个人中心
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChangePasswordRequest true "新旧密码"
// @Success 200 {object} map[string]interface{}
// @Router /api/user/password/payment [put]
func (uc *UserController) ChangePayPassword(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "message": "未登录"})
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误",
			"error":   err.Error(),
		})
		return
	}

	if err := uc.users.ChangePayPassword(userID, req.OldPassword, req.NewPassword); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "支付密码已修改",
	})
}
