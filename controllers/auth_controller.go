package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yuewan10000-ops/task-platform/middleware"
	"github.com/yuewan10000-ops/task-platform/services"
)

// CaptchaVerifier 图形验证码校验接口
type CaptchaVerifier interface {
	Verify(sessionID, code string) bool
}

// AuthController 认证控制器
type AuthController struct {
	users         *services.UserService
	jwt           *middleware.JWTMiddleware
	captcha       CaptchaVerifier
	adminAccount  string
	adminPassword string
}

// NewAuthController 创建认证控制器
func NewAuthController(users *services.UserService, jwtMiddleware *middleware.JWTMiddleware, captcha CaptchaVerifier, adminAccount, adminPassword string) *AuthController {
	return &AuthController{
		users:         users,
		jwt:           jwtMiddleware,
		captcha:       captcha,
		adminAccount:  adminAccount,
		adminPassword: adminPassword,
	}
}

// RegisterRoutes 注册路由（包含限流）
func (ac *AuthController) RegisterRoutes(router *gin.Engine, rl *middleware.RateLimiter) {
	public := router.Group("/api/auth")
	{
		if rl != nil {
			public.POST("/register", rl.RegisterLimit(), ac.Register)
			public.POST("/login", rl.LoginLimit(), ac.Login)
			public.POST("/admin-login", rl.LoginLimit(), ac.AdminLogin)
		} else {
			public.POST("/register", ac.Register)
			public.POST("/login", ac.Login)
			public.POST("/admin-login", ac.AdminLogin)
		}
	}

	authorized := router.Group("/api/auth")
	authorized.Use(ac.jwt.JWTAuth())
	{
		authorized.POST("/logout", ac.Logout)
	}
}

// ==================== 注册 ====================

// RegisterRequest 注册请求
type RegisterRequest struct {
	Account       string `json:"account" binding:"required,min=4"`
	LoginPassword string `json:"login_password" binding:"required,min=6"`
	PayPassword   string `json:"pay_password" binding:"required,min=6"`
	InviteCode    string `json:"invite_code" binding:"required"`
}

// Register 会员注册
// @Summary 会员注册
// @Description 邀请码必须属于已存在的用户
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "注册信息"
// @Success 200 {object} map[string]interface{}
// @Router /api/auth/register [post]
func (ac *AuthController) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误",
			"error":   err.Error(),
		})
		return
	}

	user, err := ac.users.Register(req.Account, req.LoginPassword, req.PayPassword, req.InviteCode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "注册成功",
		"data": gin.H{
			"id":             user.ID,
			"account":        user.Account,
			"name":           user.Name,
			"my_invite_code": user.MyInviteCode,
		},
	})
}

// ==================== 登录 ====================

// LoginRequest 登录请求（验证码可选，传了就必须通过）
type LoginRequest struct {
	Account   string `json:"account" binding:"required"`
	Password  string `json:"password" binding:"required"`
	SessionID string `json:"session_id"`
	Captcha   string `json:"captcha"`
}

// Login 会员登录
// @Summary 会员登录
// @Description 账号密码登录，可附带图形验证码（一次性）
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body LoginRequest true "登录信息"
// @Success 200 {object} map[string]interface{}
// @Router /api/auth/login [post]
func (ac *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误",
			"error":   err.Error(),
		})
		return
	}

	// 带了验证码就必须通过
	if req.SessionID != "" || req.Captcha != "" {
		if !ac.captcha.Verify(req.SessionID, req.Captcha) {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "图形验证码错误或已过期",
			})
			return
		}
	}

	user, err := ac.users.Login(req.Account, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    401,
			"message": err.Error(),
		})
		return
	}

	token, err := ac.jwt.GenerateToken(user.ID, user.Account, false)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "生成token失败",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "登录成功",
		"data": gin.H{
			"token": token,
			"user":  user,
		},
	})
}

// ==================== 登出 ====================

// Logout 登出
// @Summary 登出
// @Description 标记离线
// @Tags 认证
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/auth/logout [post]
func (ac *AuthController) Logout(c *gin.Context) {
	cu, ok := middleware.GetCurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    401,
			"message": "未登录",
		})
		return
	}

	if cu.ID > 0 {
		if err := ac.users.Logout(cu.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    500,
				"message": "登出失败",
				"error":   err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "已登出",
	})
}

// ==================== 后台登录 ====================

// AdminLoginRequest 后台登录请求
type AdminLoginRequest struct {
	Account  string `json:"account" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AdminLogin 后台登录（管理员或子用户）
// @Summary 后台登录
// @Description 匹配配置的管理员账号则签发管理员token，否则按子用户登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body AdminLoginRequest true "登录信息"
// @Success 200 {object} map[string]interface{}
// @Router /api/auth/admin-login [post]
func (ac *AuthController) AdminLogin(c *gin.Context) {
	var req AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误",
			"error":   err.Error(),
		})
		return
	}

	// 配置的管理员账号
	if req.Account == ac.adminAccount && req.Password == ac.adminPassword {
		token, err := ac.jwt.GenerateToken(0, req.Account, false)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    500,
				"message": "生成token失败",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"code":    200,
			"message": "登录成功",
			"data": gin.H{
				"token":    token,
				"is_admin": true,
			},
		})
		return
	}

	// 子用户登录
	user, err := ac.users.SubUserLogin(req.Account, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    401,
			"message": err.Error(),
		})
		return
	}

	token, err := ac.jwt.GenerateToken(user.ID, user.Account, true)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "生成token失败",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "登录成功",
		"data": gin.H{
			"token":    token,
			"is_admin": false,
			"user":     user,
		},
	})
}
