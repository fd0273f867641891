package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"botgpt/internal/pkg/jwtutil"
	"botgpt/internal/transport/http/response"
)

const (
	ContextUserIDKey   = "user_id"
	ContextUsernameKey = "username"
)

// JWTAuth validates the Authorization bearer token and stores the caller's
// identity on the request context.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, 401, response.CodeUnauthorized, "missing authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, 401, response.CodeUnauthorized, "malformed authorization header")
			c.Abort()
			return
		}

		claims, err := jwtutil.ParseToken(secret, parts[1])
		if err != nil {
			response.Error(c, 401, response.CodeUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextUsernameKey, claims.Username)
		c.Next()
	}
}

// UserID returns the authenticated user's id set by JWTAuth.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserIDKey)
}
