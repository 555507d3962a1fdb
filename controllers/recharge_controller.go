package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yuewan10000-ops/task-platform/middleware"
	"github.com/yuewan10000-ops/task-platform/services"
)

// RechargeController 充值申请控制器
type RechargeController struct {
	recharges *services.RechargeService
	jwt       *middleware.JWTMiddleware
}

// NewRechargeController 创建充值控制器
func NewRechargeController(recharges *services.RechargeService, jwtMiddleware *middleware.JWTMiddleware) *RechargeController {
	return &RechargeController{
		recharges: recharges,
		jwt:       jwtMiddleware,
	}
}

// RegisterRoutes 注册路由
func (rc *RechargeController) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/recharges")
	group.Use(rc.jwt.JWTAuth())
	{
		group.POST("", rc.Create)
		group.GET("", rc.List)
		group.GET("/pending/count", rc.PendingCount)
		group.GET("/user/:userId", rc.ListByUser)
		group.PUT("/:id/status", rc.UpdateStatus)
	}
}

// CreateRechargeRequest 提交充值申请请求
type CreateRechargeRequest struct {
	UserID       int64   `json:"user_id"`
	Amount       float64 `json:"amount" binding:"required,gt=0"`
	VoucherImage *string `json:"voucher_image"`
}

// Create 提交充值申请
// @Summary 提交充值申请
// @Description 申请始终为pending，不改余额。子用户可代会员提交，会员自动划归该子用户。
// @Tags 充值
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateRechargeRequest true "充值申请"
// @Success 200 {object} map[string]interface{}
// @Router /api/recharges [post]
func (rc *RechargeController) Create(c *gin.Context) {
	cu, ok := middleware.GetCurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "message": "未登录"})
		return
	}

	var req CreateRechargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误",
			"error":   err.Error(),
		})
		return
	}

	// 会员给自己提交；子用户或管理员代会员提交
	userID := cu.ID
	var createdBy *int64
	if cu.IsSubUser || cu.IsAdmin() {
		if req.UserID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "缺少用户ID",
			})
			return
		}
		userID = req.UserID
		if cu.IsSubUser {
			createdBy = &cu.ID
		}
	}

	request, err := rc.recharges.Create(userID, req.Amount, req.VoucherImage, createdBy)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "充值申请已提交",
		"data":    request,
	})
}

// List 充值申请列表
// @Summary 充值申请列表
// @Description 管理员看全部，子用户看自己创建的和名下会员的
// @Tags 充值
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/recharges [get]
func (rc *RechargeController) List(c *gin.Context) {
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
		requests, err = rc.recharges.ListForSubUser(cu.ID)
	} else {
		requests, err = rc.recharges.List()
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "查询充值申请失败",
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

// PendingCount 待审核充值数
// @Summary 待审核充值数
// @Tags 充值
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/recharges/pending/count [get]
func (rc *RechargeController) PendingCount(c *gin.Context) {
	count, err := rc.recharges.PendingCount()
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

// ListByUser 某用户的充值申请
// @Summary 某用户的充值申请
// @Tags 充值
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param userId path int true "用户ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/recharges/user/{userId} [get]
func (rc *RechargeController) ListByUser(c *gin.Context) {
	userID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}

	requests, err := rc.recharges.ListByUser(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "查询充值申请失败",
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

// UpdateRequestStatusRequest 审核请求
type UpdateRequestStatusRequest struct {
	Status string  `json:"status" binding:"required,oneof=approved rejected"`
	Note   *string `json:"note"`
}

// UpdateStatus 审核充值申请
// @Summary 审核充值申请
// @Description 通过时在同一事务内给用户余额入账；已审核过的申请返回"该申请已处理"
// @Tags 充值
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "申请ID"
// @Param request body UpdateRequestStatusRequest true "审核结果"
// @Success 200 {object} map[string]interface{}
// @Router /api/recharges/{id}/status [put]
func (rc *RechargeController) UpdateStatus(c *gin.Context) {
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

	request, err := rc.recharges.UpdateStatus(id, req.Status, req.Note, subUserID)
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
