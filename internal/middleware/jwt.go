package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/mag7qa/internal/pkg/errcode"
	"github.com/xxxsen/mag7qa/internal/pkg/jwt"
	"github.com/xxxsen/mag7qa/internal/pkg/response"
)

const ContextUserIDKey = "user_id"

func JWTAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Abort(c, errcode.ErrUnauthorized, "missing authorization")
			return
		}
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			response.Abort(c, errcode.ErrUnauthorized, "invalid authorization")
			return
		}
		claims, err := jwt.ParseToken(strings.TrimSpace(token), secret)
		if err != nil {
			response.Abort(c, errcode.ErrUnauthorized, "invalid token")
			return
		}
		c.Set(ContextUserIDKey, claims.UserID)
		c.Next()
	}
}

// UserID returns the caller set by JWTAuth.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserIDKey)
}
