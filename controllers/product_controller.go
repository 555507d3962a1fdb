package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yuewan10000-ops/task-platform/middleware"
	"github.com/yuewan10000-ops/task-platform/models"
	"github.com/yuewan10000-ops/task-platform/services"
)

// ProductController 商品与配置控制器
type ProductController struct {
	products *services.ProductService
	jwt      *middleware.JWTMiddleware
}

// NewProductController 创建商品控制器
func NewProductController(products *services.ProductService, jwtMiddleware *middleware.JWTMiddleware) *ProductController {
	return &ProductController{
		products: products,
		jwt:      jwtMiddleware,
	}
}

// RegisterRoutes 注册路由
func (pc *ProductController) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/products")
	group.Use(pc.jwt.JWTAuth())
	{
		group.GET("", pc.List)
		group.GET("/active", pc.ListActive)
		group.POST("", pc.Create)
		group.POST("/bulk", pc.CreateBulk)
		group.PUT("/:id", pc.Update)
		group.DELETE("/:id", pc.Delete)
	}

	config := router.Group("/api")
	config.Use(pc.jwt.JWTAuth())
	{
		config.GET("/product-price-config", pc.GetPriceConfig)
		config.PUT("/product-price-config", pc.UpdatePriceConfig)
		config.GET("/recharge-config", pc.GetRechargeConfig)
		config.PUT("/recharge-config", pc.UpdateRechargeConfig)
	}
}

// ==================== 商品 ====================

// List 商品列表
// @Summary 商品列表
// @Description A端只返回上架商品，管理端返回全部
// @Tags 商品
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/products [get]
func (pc *ProductController) List(c *gin.Context) {
	cu, ok := middleware.GetCurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "message": "未登录"})
		return
	}

	var (
		products interface{}
		err      error
	)
	if cu.IsAdmin() || cu.IsSubUser {
		products, err = pc.products.List()
	} else {
		products, err = pc.products.ListActive()
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "查询商品失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data":    products,
	})
}

// ProductRequest 商品请求
type ProductRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
	Image       *string `json:"image"`
	IsActive    *bool   `json:"is_active"`
}

// Create 创建商品
// @Summary 创建商品
// @Tags 商品
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ProductRequest true "商品"
// @Success 200 {object} map[string]interface{}
// @Router /api/products [post]
func (pc *ProductController) Create(c *gin.Context) {
	var req ProductRequest
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

	product := &models.Product{
		Name:        req.Name,
		Description: req.Description,
		Image:       req.Image,
		IsActive:    isActive,
	}
	if err := pc.products.Create(product); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "创建商品失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "商品已创建",
		"data":    product,
	})
}

// ListActive 上架商品列表
// @Summary 上架商品列表
// @Tags 商品
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/products/active [get]
func (pc *ProductController) ListActive(c *gin.Context) {
	products, err := pc.products.ListActive()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "查询商品失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data":    products,
	})
}

// CreateBulkRequest 批量创建商品请求
type CreateBulkRequest struct {
	Products []ProductRequest `json:"products" binding:"required,min=1,max=100,dive"`
}

// CreateBulk 批量创建商品
// @Summary 批量创建商品
// @Description 同一事务，全部成功或全部失败，单次最多100条
// @Tags 商品
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateBulkRequest true "商品列表"
// @Success 200 {object} map[string]interface{}
// @Router /api/products/bulk [post]
func (pc *ProductController) CreateBulk(c *gin.Context) {
	var req CreateBulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误",
			"error":   err.Error(),
		})
		return
	}

	products := make([]models.Product, 0, len(req.Products))
	for _, p := range req.Products {
		isActive := true
		if p.IsActive != nil {
			isActive = *p.IsActive
		}
		products = append(products, models.Product{
			Name:        p.Name,
			Description: p.Description,
			Image:       p.Image,
			IsActive:    isActive,
		})
	}

	created, err := pc.products.CreateBatch(products)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "批量创建商品失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "商品已创建",
		"data":    created,
	})
}

// UpdateProductRequest 更新商品请求
type UpdateProductRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Image       *string `json:"image"`
	IsActive    *bool   `json:"is_active"`
}

// Update 更新商品
// @Summary 更新商品
// @Tags 商品
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "商品ID"
// @Param request body UpdateProductRequest true "更新内容"
// @Success 200 {object} map[string]interface{}
// @Router /api/products/{id} [put]
func (pc *ProductController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误",
			"error":   err.Error(),
		})
		return
	}

	product, err := pc.products.Update(id, req.Name, req.Description, req.Image, req.IsActive)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "商品已更新",
		"data":    product,
	})
}

// Delete 删除商品
// @Summary 删除商品
// @Tags 商品
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "商品ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/products/{id} [delete]
func (pc *ProductController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := pc.products.Delete(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "商品已删除",
	})
}

// ==================== 配置 ====================

// GetPriceConfig 商品价格比例配置
// @Summary 商品价格比例配置
// @Tags 商品
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/product-price-config [get]
func (pc *ProductController) GetPriceConfig(c *gin.Context) {
	config, err := pc.products.GetPriceConfig()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "查询配置失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data":    config,
	})
}

// PriceConfigRequest 价格比例配置请求
type PriceConfigRequest struct {
	MinRate float64 `json:"min_rate" binding:"required,gte=0.01,lte=1"`
	MaxRate float64 `json:"max_rate" binding:"required,gte=0.01,lte=1"`
}

// UpdatePriceConfig 更新商品价格比例配置
// @Summary 更新商品价格比例配置
// @Tags 商品
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PriceConfigRequest true "价格比例"
// @Success 200 {object} map[string]interface{}
// @Router /api/product-price-config [put]
func (pc *ProductController) UpdatePriceConfig(c *gin.Context) {
	var req PriceConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误",
			"error":   err.Error(),
		})
		return
	}

	config, err := pc.products.UpdatePriceConfig(req.MinRate, req.MaxRate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "配置已更新",
		"data":    config,
	})
}

// GetRechargeConfig 充值收款配置
// @Summary 充值收款配置
// @Tags 商品
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/recharge-config [get]
func (pc *ProductController) GetRechargeConfig(c *gin.Context) {
	config, err := pc.products.GetRechargeConfig()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "查询配置失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data":    config,
	})
}

// RechargeConfigRequest 充值收款配置请求
type RechargeConfigRequest struct {
	TRC20Address *string `json:"trc20_address"`
	TRXAddress   *string `json:"trx_address"`
}

// UpdateRechargeConfig 更新充值收款配置
// @Summary 更新充值收款配置
// @Tags 商品
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body RechargeConfigRequest true "收款地址"
// @Success 200 {object} map[string]interface{}
// @Router /api/recharge-config [put]
func (pc *ProductController) UpdateRechargeConfig(c *gin.Context) {
	var req RechargeConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误",
			"error":   err.Error(),
		})
		return
	}

	config, err := pc.products.UpdateRechargeConfig(req.TRC20Address, req.TRXAddress)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "配置已更新",
		"data":    config,
	})
}
