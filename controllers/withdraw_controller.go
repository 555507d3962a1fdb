package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yuewan10000-ops/task-platform/middleware"
	"github.com/yuewan10000-ops/task-platform/services"
)

// WithdrawController 取款申请控制器
type WithdrawController struct {
	withdraws *services.WithdrawService
	jwt       *middleware.JWTMiddleware
}

// NewWithdrawController 创建取款控制器
func NewWithdrawController(withdraws *services.WithdrawService, jwtMiddleware *middleware.JWTMiddleware) *WithdrawController {
	return &WithdrawController{
		withdraws: withdraws,
		jwt:       jwtMiddleware,
	}
}

// RegisterRoutes 注册路由
func (wc *WithdrawController) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/withdraws")
	group.Use(wc.jwt.JWTAuth())
	{
		group.POST("", wc.Create)
		group.GET("", wc.List)
		group.GET("/pending/count", wc.PendingCount)
		group.GET("/user/:userId", wc.ListByUser)
		group.PUT("/:id/status", wc.UpdateStatus)
	}
}

// CreateWithdrawRequest 提交取款申请请求
type CreateWithdrawRequest struct {
	Amount        float64 `json:"amount" binding:"required,gt=0"`
	PayPassword   string  `json:"pay_password" binding:"required"`
	WalletAddress *string `json:"wallet_address"`
}

// Create 提交取款申请
// @Summary 提交取款申请
// @Description 校验支付密码和余额，余额预扣与申请写入在同一事务内完成
// @Tags 取款
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateWithdrawRequest true "取款申请"
// @Success 200 {object} map[string]interface{}
// @Router /api/withdraws [post]
func (wc *WithdrawController) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok || userID <= 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "message": "未登录"})
		return
	}

	var req CreateWithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误",
			"error":   err.Error(),
		})
		return
	}

	request, err := wc.withdraws.Create(userID, req.Amount, req.PayPassword, req.WalletAddress)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "取款申请已提交",
		"data":    request,
	})
}

// List 取款申请列表
// @Summary 取款申请列表
// @Description 管理员看全部，子用户看自己处理的和名下会员的
// @Tags 取款
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/withdraws [get]
func (wc *WithdrawController) List(c *gin.Context) {
	cu, ok := middleware.GetCurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "message": "未登录"})
		return
	}

	var (
		requests interface{}
		err      error
	)
	if cu.IsSubUser {
		requests, err = wc.withdraws.ListForSubUser(cu.ID)
	} else {
		requests, err = wc.withdraws.List()
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "查询取款申请失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data":    requests,
	})
}

// PendingCount 待审核取款数
// @Summary 待审核取款数
// @Tags 取款
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/withdraws/pending/count [get]
func (wc *WithdrawController) PendingCount(c *gin.Context) {
	count, err := wc.withdraws.PendingCount()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "查询失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data": gin.H{
			"count": count,
		},
	})
}

// ListByUser 某用户的取款申请
// @Summary 某用户的取款申请
// @Tags 取款
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param userId path int true "用户ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/withdraws/user/{userId} [get]
func (wc *WithdrawController) ListByUser(c *gin.Context) {
	userID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}

	requests, err := wc.withdraws.ListByUser(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "查询取款申请失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data":    requests,
	})
}

// UpdateStatus 审核取款申请
// @Summary 审核取款申请
// @Description 通过仅改状态（余额已预扣），驳回在同一事务内退回余额；审核后尽力发送邮件通知
// @Tags 取款
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "申请ID"
// @Param request body UpdateRequestStatusRequest true "审核结果"
// @Success 200 {object} map[string]interface{}
// @Router /api/withdraws/{id}/status [put]
func (wc *WithdrawController) UpdateStatus(c *gin.Context) {
	cu, ok := middleware.GetCurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "message": "未登录"})
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateRequestStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误",
			"error":   err.Error(),
		})
		return
	}

	var subUserID *int64
	if cu.IsSubUser {
		subUserID = &cu.ID
	}

	request, err := wc.withdraws.UpdateStatus(id, req.Status, req.Note, subUserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "审核完成",
		"data":    request,
	})
}
