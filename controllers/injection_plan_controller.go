package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yuewan10000-ops/task-platform/middleware"
	"github.com/yuewan10000-ops/task-platform/models"
	"github.com/yuewan10000-ops/task-platform/services"
)

// InjectionPlanController 打针计划控制器
type InjectionPlanController struct {
	injections *services.InjectionService
	jwt        *middleware.JWTMiddleware
}

// NewInjectionPlanController 创建打针计划控制器
func NewInjectionPlanController(injections *services.InjectionService, jwtMiddleware *middleware.JWTMiddleware) *InjectionPlanController {
	return &InjectionPlanController{
		injections: injections,
		jwt:        jwtMiddleware,
	}
}

// RegisterRoutes 注册路由
func (ic *InjectionPlanController) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/injection-plans")
	group.Use(ic.jwt.JWTAuth())
	{
		group.GET("/user/:userId", ic.ListByUser)
		group.POST("", ic.Create)
		group.PUT("/:id", ic.Update)
		group.DELETE("/:id", ic.Delete)
	}
}

// ListByUser 某用户的打针计划
// @Summary 某用户的打针计划
// @Description 每条计划标注相对当前订单序号的状态，并附带当前订单差额
// @Tags 打针计划
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param userId path int true "用户ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/injection-plans/user/{userId} [get]
func (ic *InjectionPlanController) ListByUser(c *gin.Context) {
	userID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}

	plans, err := ic.injections.PlansWithStatus(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "查询打针计划失败",
			"error":   err.Error(),
		})
		return
	}

	difference, err := ic.injections.Shortfall(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "计算订单差额失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data": gin.H{
			"plans":      plans,
			"difference": difference,
		},
	})
}

// CreateInjectionPlanRequest 创建打针计划请求
type CreateInjectionPlanRequest struct {
	UserID          int64   `json:"user_id" binding:"required"`
	OrderSettingID  *int64  `json:"order_setting_id"`
	CommissionRate  float64 `json:"commission_rate"`
	InjectionAmount float64 `json:"injection_amount" binding:"required,gt=0"`
	IsActive        *bool   `json:"is_active"`
}

// Create 创建打针计划
// @Summary 创建打针计划
// @Description order_setting_id为空表示适用所有订单
// @Tags 打针计划
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateInjectionPlanRequest true "打针计划"
// @Success 200 {object} map[string]interface{}
// @Router /api/injection-plans [post]
func (ic *InjectionPlanController) Create(c *gin.Context) {
	var req CreateInjectionPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误",
			"error":   err.Error(),
		})
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	plan := &models.InjectionPlan{
		UserID:          req.UserID,
		OrderSettingID:  req.OrderSettingID,
		CommissionRate:  req.CommissionRate,
		InjectionAmount: req.InjectionAmount,
		IsActive:        isActive,
	}
	if err := ic.injections.Create(plan); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "创建打针计划失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "打针计划已创建",
		"data":    plan,
	})
}

// UpdateInjectionPlanRequest 更新打针计划请求。clear_order_setting为true时
// 把计划改为适用所有订单。
type UpdateInjectionPlanRequest struct {
	OrderSettingID    *int64   `json:"order_setting_id"`
	ClearOrderSetting bool     `json:"clear_order_setting"`
	CommissionRate    *float64 `json:"commission_rate"`
	InjectionAmount   *float64 `json:"injection_amount" binding:"omitempty,gt=0"`
	IsActive          *bool    `json:"is_active"`
}

// Update 更新打针计划
// @Summary 更新打针计划
// @Tags 打针计划
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "计划ID"
// @Param request body UpdateInjectionPlanRequest true "更新内容"
// @Success 200 {object} map[string]interface{}
// @Router /api/injection-plans/{id} [put]
func (ic *InjectionPlanController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateInjectionPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误",
			"error":   err.Error(),
		})
		return
	}

	plan, err := ic.injections.Update(id, req.OrderSettingID, req.ClearOrderSetting, req.CommissionRate, req.InjectionAmount, req.IsActive)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "打针计划已更新",
		"data":    plan,
	})
}

// Delete 删除打针计划
// @Summary 删除打针计划
// @Tags 打针计划
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "计划ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/injection-plans/{id} [delete]
func (ic *InjectionPlanController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ic.injections.Delete(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "打针计划已删除",
	})
}
