package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/propsignal/propsignal/pkg/errors"
)

// TokenAuth validates the Authorization bearer token against the configured
// token set.  An empty token set disables auth, which is only sensible in
// development.  The optional X-User-ID header attributes writes to a user.
func TokenAuth(tokens []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			c.Set(ContextKeyUserID, userID)
		}
		if len(tokens) == 0 {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			abortWithCode(c, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "missing bearer token")
			return
		}
		for _, candidate := range tokens {
			if subtle.ConstantTimeCompare([]byte(candidate), []byte(token)) == 1 {
				c.Next()
				return
			}
		}
		abortWithCode(c, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "invalid bearer token")
	}
}

// UserID returns the authenticated user attribution, if any.
func UserID(c *gin.Context) string {
	return c.GetString(ContextKeyUserID)
}

func abortWithCode(c *gin.Context, status int, code errors.ErrorCode, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{"code": string(code), "message": message},
	})
}
