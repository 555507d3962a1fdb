package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// JWTMiddleware JWT中间件配置
type JWTMiddleware struct {
	Secret              []byte
	TokenExpireDuration time.Duration
}

// NewJWTMiddleware 创建JWT中间件
func NewJWTMiddleware(secret []byte, expireDuration time.Duration) *JWTMiddleware {
	return &JWTMiddleware{
		Secret:              secret,
		TokenExpireDuration: expireDuration,
	}
}

// Claims JWT声明（管理员user_id为0且is_sub_user为false）
type Claims struct {
	UserID    int64  `json:"user_id"`
	Account   string `json:"account"`
	IsSubUser bool   `json:"is_sub_user"`
	jwt.RegisteredClaims
}

// CurrentUser 当前调用者身份（从token解析）
type CurrentUser struct {
	ID        int64
	Account   string
	IsSubUser bool
}

// IsAdmin 是否后台管理员
func (u *CurrentUser) IsAdmin() bool {
	return u.ID == 0 && !u.IsSubUser
}

// GenerateToken 生成JWT Token
func (jm *JWTMiddleware) GenerateToken(userID int64, account string, isSubUser bool) (string, error) {
	claims := Claims{
		UserID:    userID,
		Account:   account,
		IsSubUser: isSubUser,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(jm.TokenExpireDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jm.Secret)
}

// ParseToken 解析JWT Token
func (jm *JWTMiddleware) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return jm.Secret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// JWTAuth JWT认证中间件（必须登录）
func (jm *JWTMiddleware) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 从请求头获取token
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			// 尝试从query参数获取
			authHeader = c.Query("token")
			if authHeader == "" {
				c.JSON(http.StatusUnauthorized, gin.H{
					"code":    401,
					"message": "请求未携带token，无权限访问",
				})
				c.Abort()
				return
			}
		}

		// 按空格分割
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			// 如果不是Bearer格式，直接使用整个字符串作为token
			parts = []string{"", authHeader}
		}

		// 解析token
		claims, err := jm.ParseToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "无效的token",
				"error":   err.Error(),
			})
			c.Abort()
			return
		}

		// 将用户信息存储到上下文中
		setCurrentUser(c, claims)

		c.Next()
	}
}

// OptionalAuth 可选认证中间件（不强制登录，但如果有token会解析）
func (jm *JWTMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			authHeader = c.Query("token")
		}

		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if !(len(parts) == 2 && parts[0] == "Bearer") {
				parts = []string{"", authHeader}
			}

			// token无效时不拦截，当作未登录继续执行
			claims, err := jm.ParseToken(parts[1])
			if err == nil {
				setCurrentUser(c, claims)
			}
		}

		c.Next()
	}
}

// setCurrentUser 将解析后的身份写入上下文
func setCurrentUser(c *gin.Context, claims *Claims) {
	c.Set("user_id", claims.UserID)
	c.Set("account", claims.Account)
	c.Set("is_sub_user", claims.IsSubUser)
	c.Set("claims", claims)
}

// GetUserID 从上下文获取用户ID
func GetUserID(c *gin.Context) (int64, bool) {
	if userID, exists := c.Get("user_id"); exists {
		if id, ok := userID.(int64); ok {
			return id, true
		}
	}
	return 0, false
}

// GetCurrentUser 从上下文获取当前调用者身份
func GetCurrentUser(c *gin.Context) (*CurrentUser, bool) {
	claims, exists := c.Get("claims")
	if !exists {
		return nil, false
	}
	cl, ok := claims.(*Claims)
	if !ok {
		return nil, false
	}
	return &CurrentUser{
		ID:        cl.UserID,
		Account:   cl.Account,
		IsSubUser: cl.IsSubUser,
	}, true
}

// RequireAdmin 仅允许后台管理员（非子用户）访问
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		cu, ok := GetCurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "未登录",
			})
			c.Abort()
			return
		}

		if !cu.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{
				"code":    403,
				"message": "仅管理员可操作",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
