package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resumeBuilder/internal/auth"
)

// UserIDKey 是鉴权通过后写入 gin.Context 的用户 ID 键。
const UserIDKey = "userID"

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

// AuthMiddleware 校验访问令牌并将 userID 注入上下文。
func AuthMiddleware(authService *auth.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawToken, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c)
			return
		}

		claims, err := authService.ValidateToken(rawToken, auth.TokenTypeAccess)
		if err != nil {
			abortUnauthorized(c)
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Next()
	}
}

// BearerToken 从 Authorization 头中取出 Bearer 令牌。
func BearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
