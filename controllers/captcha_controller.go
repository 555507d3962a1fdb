package controllers

import (
	"bytes"
	"net/http"

	"github.com/dchest/captcha"
	"github.com/gin-gonic/gin"

	"github.com/yuewan10000-ops/task-platform/middleware"
	"github.com/yuewan10000-ops/task-platform/services"
)

// CaptchaController 图形验证码控制器
type CaptchaController struct {
	service *services.CaptchaService
}

// NewCaptchaController 创建验证码控制器
func NewCaptchaController(service *services.CaptchaService) *CaptchaController {
	return &CaptchaController{
		service: service,
	}
}

// RegisterRoutes 注册路由
func (cc *CaptchaController) RegisterRoutes(router *gin.Engine, rl *middleware.RateLimiter) {
	group := router.Group("/api/captcha")
	if rl != nil {
		group.Use(rl.CaptchaLimit())
	}
	{
		group.GET("", cc.GenerateCaptcha)
		group.GET("/image/:sessionId", cc.GetCaptchaImage)
	}
}

// GenerateCaptcha 生成验证码
// @Summary 生成图形验证码
// @Description 为当前会话生成6位数字验证码，会话ID取X-Session-Id头，缺省时随机生成
// @Tags 验证码
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "会话ID"
// @Failure 500 {object} map[string]interface{} "系统错误"
// @Router /api/captcha [get]
func (cc *CaptchaController) GenerateCaptcha(c *gin.Context) {
	sessionID := c.GetHeader("X-Session-Id")

	record, err := cc.service.Generate(sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "生成验证码失败",
			"error":   err.Error(),
		})
		return
	}

	data := gin.H{
		"session_id": record.SessionID,
	}
	// 开发环境返回明文验证码，方便联调
	if gin.Mode() != gin.ReleaseMode {
		data["captcha"] = record.Code
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "验证码生成成功",
		"data":    data,
	})
}

// GetCaptchaImage 获取验证码图片
// @Summary 获取验证码图片
// @Description 根据会话ID把库里存的数字渲染成PNG
// @Tags 验证码
// @Accept json
// @Produce image/png
// @Param sessionId path string true "会话ID"
// @Success 200 {file} binary "验证码图片"
// @Failure 404 {object} map[string]interface{} "验证码不存在或已过期"
// @Router /api/captcha/image/{sessionId} [get]
func (cc *CaptchaController) GetCaptchaImage(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "会话ID不能为空",
		})
		return
	}

	record, err := cc.service.Peek(sessionID)
	if err != nil || record == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    404,
			"message": "验证码不存在或已过期",
		})
		return
	}

	// 库里存的是字符，渲染需要0-9的数字值
	digits := make([]byte, len(record.Code))
	for i := 0; i < len(record.Code); i++ {
		digits[i] = record.Code[i] - '0'
	}

	var buf bytes.Buffer
	// Increase resolution for high DPI screens (2x scale)
	img := captcha.NewImage(sessionID, digits, 480, 160)
	if _, err := img.WriteTo(&buf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "生成验证码图片失败",
		})
		return
	}

	c.Data(http.StatusOK, "image/png", buf.Bytes())
}
