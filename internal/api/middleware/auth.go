package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/gin-blog/pkg/response"
)

const (
	principalKey = "principal"
	tokenKey     = "token"
)

// Verifier 把会话令牌解析为 principal
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// Principal 解析 Bearer 令牌。没有令牌的请求匿名放行，携带了无效令牌则直接 401。
func Principal(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.Next()
			return
		}
		if len(auth) < 7 || !strings.EqualFold(auth[:7], "bearer ") {
			response.Unauthorized(c, "malformed authorization header")
			return
		}
		token := strings.TrimSpace(auth[7:])
		uid, err := v.Verify(c.Request.Context(), token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			return
		}
		c.Set(principalKey, uid)
		c.Set(tokenKey, token)
		c.Next()
	}
}

// RequireAuth 要求已登录
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if PrincipalFrom(c) == "" {
			response.Unauthorized(c, "authentication required")
			return
		}
		c.Next()
	}
}

// PrincipalFrom 当前请求的 principal，匿名时为空串。
func PrincipalFrom(c *gin.Context) string { return c.GetString(principalKey) }

// TokenFrom 当前请求携带的会话令牌
func TokenFrom(c *gin.Context) string { return c.GetString(tokenKey) }
