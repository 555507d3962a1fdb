package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yuewan10000-ops/task-platform/middleware"
	"github.com/yuewan10000-ops/task-platform/services"
)

// CommissionRateController 全局佣金比例控制器
type CommissionRateController struct {
	rates *services.CommissionRateService
	jwt   *middleware.JWTMiddleware
}

// NewCommissionRateController 创建佣金比例控制器
func NewCommissionRateController(rates *services.CommissionRateService, jwtMiddleware *middleware.JWTMiddleware) *CommissionRateController {
	return &CommissionRateController{
		rates: rates,
		jwt:   jwtMiddleware,
	}
}

// RegisterRoutes 注册路由
func (rc *CommissionRateController) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/commission-rate")
	group.Use(rc.jwt.JWTAuth())
	{
		group.GET("/active", rc.GetActive)
		group.GET("", rc.List)
		group.POST("", rc.Create)
		group.PUT("/:id", rc.Update)
		group.DELETE("/:id", rc.Delete)
	}
}

// GetActive 当前激活的佣金比例
// @Summary 当前激活的佣金比例
// @Description 没有激活记录时返回默认值 {rate:0.1, is_active:true}
// @Tags 佣金比例
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/commission-rate/active [get]
func (rc *CommissionRateController) GetActive(c *gin.Context) {
	rate, err := rc.rates.GetActive()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "查询佣金比例失败",
			"error":   err.Error(),
		})
		return
	}

	if rate == nil {
		c.JSON(http.StatusOK, gin.H{
			"code":    200,
			"message": "success",
			"data": gin.H{
				"rate":      0.1,
				"is_active": true,
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data":    rate,
	})
}

// List 佣金比例列表
// @Summary 佣金比例列表
// @Tags 佣金比例
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/commission-rate [get]
func (rc *CommissionRateController) List(c *gin.Context) {
	rates, err := rc.rates.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "查询佣金比例失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data":    rates,
	})
}

// CommissionRateRequest 佣金比例请求
type CommissionRateRequest struct {
	Rate        float64 `json:"rate" binding:"required,gte=0"`
	IsActive    *bool   `json:"is_active"`
	Description *string `json:"description"`
}

// Create 新建佣金比例
// @Summary 新建佣金比例
// @Description 激活时同一事务内取消其它激活记录，保证最多一条激活
// @Tags 佣金比例
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CommissionRateRequest true "佣金比例"
// @Success 200 {object} map[string]interface{}
// @Router /api/commission-rate [post]
func (rc *CommissionRateController) Create(c *gin.Context) {
	var req CommissionRateRequest
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

	rate, err := rc.rates.Create(req.Rate, isActive, req.Description)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "创建佣金比例失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "佣金比例已创建",
		"data":    rate,
	})
}

// Update 更新佣金比例
// @Summary 更新佣金比例
// @Tags 佣金比例
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "比例ID"
// @Param request body CommissionRateRequest true "佣金比例"
// @Success 200 {object} map[string]interface{}
// @Router /api/commission-rate/{id} [put]
func (rc *CommissionRateController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req CommissionRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误",
			"error":   err.Error(),
		})
		return
	}

	rate, err := rc.rates.Update(id, req.Rate, req.IsActive, req.Description)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "佣金比例已更新",
		"data":    rate,
	})
}

// Delete 删除佣金比例
// @Summary 删除佣金比例
// @Tags 佣金比例
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "比例ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/commission-rate/{id} [delete]
func (rc *CommissionRateController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := rc.rates.Delete(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "佣金比例已删除",
	})
}
