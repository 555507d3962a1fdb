package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yuewan10000-ops/task-platform/middleware"
	"github.com/yuewan10000-ops/task-platform/services"
)

// SubUserController 子用户控制器（仅管理员）
type SubUserController struct {
	subUsers *services.SubUserService
	jwt      *middleware.JWTMiddleware
}

// NewSubUserController 创建子用户控制器
func NewSubUserController(subUsers *services.SubUserService, jwtMiddleware *middleware.JWTMiddleware) *SubUserController {
	return &SubUserController{
		subUsers: subUsers,
		jwt:      jwtMiddleware,
	}
}

// RegisterRoutes 注册路由
func (sc *SubUserController) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/sub-users")
	group.Use(sc.jwt.JWTAuth(), middleware.RequireAdmin())
	{
		group.GET("", sc.List)
		group.POST("", sc.Create)
		group.PUT("/:id", sc.Update)
		group.DELETE("/:id", sc.Delete)
		group.POST("/generate-invite-codes", sc.GenerateInviteCodes)
	}
}

// List 子用户列表
// @Summary 子用户列表
// @Tags 子用户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/sub-users [get]
func (sc *SubUserController) List(c *gin.Context) {
	subUsers, err := sc.subUsers.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "查询子用户失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data":    subUsers,
	})
}

// CreateSubUserRequest 创建子用户请求
type CreateSubUserRequest struct {
	Account       string `json:"account" binding:"required,min=4"`
	LoginPassword string `json:"login_password" binding:"required,min=6"`
	PayPassword   string `json:"pay_password" binding:"required,min=6"`
}

// Create 创建子用户
// @Summary 创建子用户
// @Description 自动生成专属邀请码
// @Tags 子用户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateSubUserRequest true "子用户"
// @Success 200 {object} map[string]interface{}
// @Router /api/sub-users [post]
func (sc *SubUserController) Create(c *gin.Context) {
	var req CreateSubUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误",
			"error":   err.Error(),
		})
		return
	}

	subUser, err := sc.subUsers.Create(req.Account, req.LoginPassword, req.PayPassword)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "子用户已创建",
		"data":    subUser,
	})
}

// UpdateSubUserRequest 更新子用户请求
type UpdateSubUserRequest struct {
	Account       *string `json:"account" binding:"omitempty,min=4"`
	LoginPassword *string `json:"login_password" binding:"omitempty,min=6"`
	PayPassword   *string `json:"pay_password" binding:"omitempty,min=6"`
}

// Update 更新子用户
// @Summary 更新子用户
// @Tags 子用户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "子用户ID"
// @Param request body UpdateSubUserRequest true "更新内容"
// @Success 200 {object} map[string]interface{}
// @Router /api/sub-users/{id} [put]
func (sc *SubUserController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateSubUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误",
			"error":   err.Error(),
		})
		return
	}

	subUser, err := sc.subUsers.Update(id, req.Account, req.LoginPassword, req.PayPassword)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "子用户已更新",
		"data":    subUser,
	})
}

// Delete 删除子用户
// @Summary 删除子用户
// @Description 名下会员自动解除归属
// @Tags 子用户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "子用户ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/sub-users/{id} [delete]
func (sc *SubUserController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := sc.subUsers.Delete(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "子用户已删除",
	})
}

// GenerateInviteCodes 补发邀请码
// @Summary 补发邀请码
// @Description 为没有邀请码的子用户批量生成
// @Tags 子用户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/sub-users/generate-invite-codes [post]
func (sc *SubUserController) GenerateInviteCodes(c *gin.Context) {
	generated, err := sc.subUsers.GenerateMissingInviteCodes()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "补发邀请码失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "邀请码已补发",
		"data": gin.H{
			"generated": generated,
		},
	})
}
