package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/villacheck/server/apperr"
	"github.com/villacheck/server/session"
)

const (
	IdentityKey = "identity"
	TokenKey    = "session_token"
	// AdminKeyHeader carries server.admin_key on /api/admin requests.
	AdminKeyHeader = "X-Admin-Key"
)

// Authenticator resolves a session token to the staff member behind it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (session.Identity, error)
}

// BearerToken returns the token of an "Authorization: Bearer" header, or "".
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// Auth requires a live session and stores its identity in the context.
func Auth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		id, err := a.Authenticate(ctx, token)
		if err != nil {
			reason := apperr.MsgSessionExpired
			var ae *apperr.AuthError
			if errors.As(err, &ae) {
				reason = ae.Reason
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": reason})
			return
		}

		c.Set(IdentityKey, id)
		c.Set(TokenKey, token)
		c.Next()
	}
}

// GetIdentity retrieves the authenticated staff member from the Gin context.
func GetIdentity(c *gin.Context) (session.Identity, bool) {
	if v, exists := c.Get(IdentityKey); exists {
		id, ok := v.(session.Identity)
		return id, ok
	}
	return session.Identity{}, false
}

// AdminAuth compares the X-Admin-Key header with key. If key is empty all
// routes behind it answer 503; set server.admin_key to enable them.
func AdminAuth(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": "admin endpoints disabled: set server.admin_key in config"})
			return
		}
		got := c.GetHeader(AdminKeyHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid admin key"})
			return
		}
		c.Next()
	}
}
