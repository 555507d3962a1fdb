package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yuewan10000-ops/task-platform/middleware"
	"github.com/yuewan10000-ops/task-platform/models"
	"github.com/yuewan10000-ops/task-platform/services"
)

// OrderController 做单控制器
type OrderController struct {
	orders *services.OrderService
	jwt    *middleware.JWTMiddleware
}

// NewOrderController 创建做单控制器
func NewOrderController(orders *services.OrderService, jwtMiddleware *middleware.JWTMiddleware) *OrderController {
	return &OrderController{
		orders: orders,
		jwt:    jwtMiddleware,
	}
}

// RegisterRoutes 注册路由
func (oc *OrderController) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/orders")
	group.Use(oc.jwt.JWTAuth())
	{
		group.GET("/settings/:userId", oc.GetLatestSetting)
		group.GET("/settings/:userId/history", oc.GetSettingsHistory)
		group.POST("/settings", oc.CreateSetting)
		group.PUT("/settings/:id", oc.UpdateSetting)
		group.DELETE("/settings/:id", oc.DeleteSetting)

		group.GET("/records/:userId", oc.GetRecords)
		group.POST("/records", oc.CreateRecord)
	}
}

// ==================== 做单设置 ====================

// GetLatestSetting 最新做单设置
// @Summary 最新做单设置
// @Description 用户最新一条已启用的做单设置
// @Tags 做单
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param userId path int true "用户ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/orders/settings/{userId} [get]
func (oc *OrderController) GetLatestSetting(c *gin.Context) {
	userID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}

	setting, err := oc.orders.LatestEnabledSetting(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "查询做单设置失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data":    setting,
	})
}

// GetSettingsHistory 做单设置历史
// @Summary 做单设置历史
// @Tags 做单
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param userId path int true "用户ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/orders/settings/{userId}/history [get]
func (oc *OrderController) GetSettingsHistory(c *gin.Context) {
	userID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}

	settings, err := oc.orders.SettingsHistory(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "查询做单设置失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data":    settings,
	})
}

// CreateSettingRequest 创建做单设置请求
type CreateSettingRequest struct {
	UserID         int64   `json:"user_id" binding:"required"`
	MaxOrders      int     `json:"max_orders" binding:"required,min=1"`
	CommissionRate float64 `json:"commission_rate"`
	OrderType      string  `json:"order_type"`
	Amount         float64 `json:"amount"`
	Description    *string `json:"description"`
}

// CreateSetting 创建做单设置
// @Summary 创建做单设置
// @Description 新设置状态固定为enabled，成为该用户的当前批次
// @Tags 做单
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateSettingRequest true "做单设置"
// @Success 200 {object} map[string]interface{}
// @Router /api/orders/settings [post]
func (oc *OrderController) CreateSetting(c *gin.Context) {
	var req CreateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误",
			"error":   err.Error(),
		})
		return
	}

	setting := &models.OrderSetting{
		UserID:         req.UserID,
		MaxOrders:      req.MaxOrders,
		CommissionRate: req.CommissionRate,
		OrderType:      req.OrderType,
		Amount:         req.Amount,
		Description:    req.Description,
	}
	if err := oc.orders.CreateSetting(setting); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "创建做单设置失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "做单设置已创建",
		"data":    setting,
	})
}

// UpdateSettingRequest 更新做单设置请求
type UpdateSettingRequest struct {
	MaxOrders      *int     `json:"max_orders" binding:"omitempty,min=1"`
	CommissionRate *float64 `json:"commission_rate"`
	Description    *string  `json:"description"`
}

// UpdateSetting 更新做单设置
// @Summary 更新做单设置
// @Description 仅允许修改订单数量、佣金比例和描述
// @Tags 做单
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "设置ID"
// @Param request body UpdateSettingRequest true "更新内容"
// @Success 200 {object} map[string]interface{}
// @Router /api/orders/settings/{id} [put]
func (oc *OrderController) UpdateSetting(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误",
			"error":   err.Error(),
		})
		return
	}

	setting, err := oc.orders.UpdateSetting(id, req.MaxOrders, req.CommissionRate, req.Description)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "做单设置已更新",
		"data":    setting,
	})
}

// DeleteSetting 删除做单设置
// @Summary 删除做单设置
// @Tags 做单
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "设置ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/orders/settings/{id} [delete]
func (oc *OrderController) DeleteSetting(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := oc.orders.DeleteSetting(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "做单设置已删除",
	})
}

// ==================== 做单记录 ====================

// GetRecords 做单记录
// @Summary 做单记录
// @Tags 做单
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param userId path int true "用户ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/orders/records/{userId} [get]
func (oc *OrderController) GetRecords(c *gin.Context) {
	userID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}

	records, err := oc.orders.Records(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "查询做单记录失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data":    records,
	})
}

// CreateRecordRequest 创建做单记录请求。commission显式传非0值时原样入账，
// 传0或不传则按当前最终比例计算。
type CreateRecordRequest struct {
	UserID      int64   `json:"user_id" binding:"required"`
	OrderType   string  `json:"order_type"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Status      string  `json:"status"`
	Commission  float64 `json:"commission"`
	Description *string `json:"description"`
}

// CreateRecord 创建做单记录
// @Summary 创建做单记录
// @Description 状态为completed且佣金大于0时，记录插入和余额入账在同一事务内完成
// @Tags 做单
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateRecordRequest true "做单记录"
// @Success 200 {object} map[string]interface{}
// @Router /api/orders/records [post]
func (oc *OrderController) CreateRecord(c *gin.Context) {
	var req CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误",
			"error":   err.Error(),
		})
		return
	}

	status := req.Status
	if status == "" {
		status = models.OrderStatusCompleted
	}

	record := &models.OrderRecord{
		UserID:      req.UserID,
		OrderType:   req.OrderType,
		Amount:      req.Amount,
		Status:      status,
		Description: req.Description,
	}
	if err := oc.orders.CreateRecord(record, req.Commission); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "创建做单记录失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "做单记录已创建",
		"data":    record,
	})
}
