package controllers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yuewan10000-ops/task-platform/middleware"
	"github.com/yuewan10000-ops/task-platform/models"
	"github.com/yuewan10000-ops/task-platform/services"
	"github.com/yuewan10000-ops/task-platform/ws"
)

// upgrader WebSocket升级配置（跨域交给CORS中间件）
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// SupportController 客服控制器
type SupportController struct {
	support *services.SupportService
	hub     *ws.Hub
	jwt     *middleware.JWTMiddleware
}

// NewSupportController 创建客服控制器
func NewSupportController(support *services.SupportService, hub *ws.Hub, jwtMiddleware *middleware.JWTMiddleware) *SupportController {
	return &SupportController{
		support: support,
		hub:     hub,
		jwt:     jwtMiddleware,
	}
}

// RegisterRoutes 注册路由
func (sc *SupportController) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/support")
	group.Use(sc.jwt.JWTAuth())
	{
		group.POST("/conversations", sc.OpenConversation)
		group.GET("/conversations", sc.ListConversations)
		group.GET("/conversations/user/:userId", sc.UserConversations)
		group.GET("/conversations/:id/messages", sc.Messages)
		group.PUT("/conversations/:id/read", sc.MarkRead)
		group.PUT("/conversations/:id/assign", sc.AssignService)
		group.DELETE("/conversations/:id/messages", sc.ClearMessages)
		group.POST("/messages", sc.SendMessage)
		group.GET("/unread-count", sc.GlobalUnreadCount)
	}

	// WebSocket（token走query参数）
	router.GET("/ws/support", sc.jwt.JWTAuth(), sc.ServeWS)
}

// OpenConversation 获取或创建进行中会话
// @Summary 获取或创建会话
// @Description 复用该会员进行中的会话，没有则新建并附带系统欢迎语
// @Tags 客服
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/support/conversations [post]
func (sc *SupportController) OpenConversation(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok || userID <= 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "message": "未登录"})
		return
	}

	conv, err := sc.support.OpenConversation(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "创建会话失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data":    conv,
	})
}

// ListConversations 会话列表（B端）
// @Summary 会话列表
// @Description 全部会话，带会员摘要、未读数和最后一条消息
// @Tags 客服
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/support/conversations [get]
func (sc *SupportController) ListConversations(c *gin.Context) {
	conversations, err := sc.support.ListWithUnread()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "查询会话失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data":    conversations,
	})
}

// UserConversations 某会员的会话
// @Summary 某会员的会话
// @Tags 客服
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param userId path int true "用户ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/support/conversations/user/{userId} [get]
func (sc *SupportController) UserConversations(c *gin.Context) {
	userID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}

	conversations, err := sc.support.UserConversations(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "查询会话失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data":    conversations,
	})
}

// Messages 会话消息
// @Summary 会话消息
// @Description 按时间升序
// @Tags 客服
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "会话ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/support/conversations/{id}/messages [get]
func (sc *SupportController) Messages(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	messages, err := sc.support.Messages(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "查询消息失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data":    messages,
	})
}

// MarkRead 标记已读
// @Summary 标记已读
// @Description 把会话里对方发来的消息标记为已读
// @Tags 客服
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "会话ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/support/conversations/{id}/read [put]
func (sc *SupportController) MarkRead(c *gin.Context) {
	cu, ok := middleware.GetCurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "message": "未登录"})
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	readerType := models.SenderTypeService
	if !cu.IsAdmin() && !cu.IsSubUser {
		readerType = models.SenderTypeUser
	}

	if err := sc.support.MarkRead(id, readerType); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "标记已读失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "已标记已读",
	})
}

// AssignServiceRequest 指派客服请求
type AssignServiceRequest struct {
	ServiceID int64 `json:"service_id"`
}

// AssignService 指派客服
// @Summary 指派客服
// @Tags 客服
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "会话ID"
// @Param request body AssignServiceRequest true "客服"
// @Success 200 {object} map[string]interface{}
// @Router /api/support/conversations/{id}/assign [put]
func (sc *SupportController) AssignService(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req AssignServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误",
			"error":   err.Error(),
		})
		return
	}

	if err := sc.support.AssignService(id, req.ServiceID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "已指派",
	})
}

// ClearMessages 清空会话消息
// @Summary 清空会话消息
// @Tags 客服
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "会话ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/support/conversations/{id}/messages [delete]
func (sc *SupportController) ClearMessages(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := sc.support.ClearMessages(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "清空消息失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "消息已清空",
	})
}

// SendMessageRequest 发送消息请求
type SendMessageRequest struct {
	ConversationID int64  `json:"conversation_id" binding:"required"`
	Content        string `json:"content" binding:"required"`
}

// SendMessage 发送消息
// @Summary 发送消息
// @Description 写库后发布到该会话的Redis频道，WebSocket端实时推送
// @Tags 客服
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SendMessageRequest true "消息"
// @Success 200 {object} map[string]interface{}
// @Router /api/support/messages [post]
func (sc *SupportController) SendMessage(c *gin.Context) {
	cu, ok := middleware.GetCurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "message": "未登录"})
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误",
			"error":   err.Error(),
		})
		return
	}

	senderType := models.SenderTypeUser
	if cu.IsAdmin() || cu.IsSubUser {
		senderType = models.SenderTypeService
	}

	msg, err := sc.support.SendMessage(req.ConversationID, senderType, cu.ID, req.Content)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "消息已发送",
		"data":    msg,
	})
}

// GlobalUnreadCount 未读消息总数
// @Summary 未读消息总数
// @Description 全部会话的会员侧未读消息总数（B端角标）
// @Tags 客服
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/support/unread-count [get]
func (sc *SupportController) GlobalUnreadCount(c *gin.Context) {
	count, err := sc.support.GlobalUnreadCount()
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

// ServeWS 升级为WebSocket连接
// @Summary 客服WebSocket
// @Description 带conversation_id参数时直接订阅该会话，也可升级后发送 {"action":"subscribe","conversation_id":N}
// @Tags 客服
// @Security BearerAuth
// @Param conversation_id query int false "会话ID"
// @Router /ws/support [get]
func (sc *SupportController) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ERROR: WebSocket upgrade failed: %v", err)
		return
	}

	client := &ws.Client{
		Hub:           sc.hub,
		Conn:          conn,
		Send:          make(chan []byte, 256),
		Subscriptions: make(map[string]bool),
	}
	sc.hub.Register <- client

	// 带conversation_id参数时直接订阅，省一次subscribe消息
	if raw := c.Query("conversation_id"); raw != "" {
		if conversationID, err := strconv.ParseInt(raw, 10, 64); err == nil && conversationID > 0 {
			msg := ws.ClientMessage{Action: "subscribe", ConversationID: conversationID}
			if channel, err := msg.ToChannelName(); err == nil {
				sc.hub.Subscribe(client, channel)
				client.Subscriptions[channel] = true
			}
		}
	}

	go client.WritePump()
	go client.ReadPump()
}
