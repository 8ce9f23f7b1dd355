package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nexahealth/triagebot/internal/relay"
)

// RelayKey is set on the context when the request carries a valid relay token
const RelayKey = "relay_authenticated"

// RelayAuth verifies an optional "Authorization: Bearer <token>" minted by
// the Telegram bot. Requests without a valid token pass through unmarked.
func RelayAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if ok && relay.VerifyToken(secret, strings.TrimSpace(raw)) == nil {
			c.Set(RelayKey, true)
		}
		c.Next()
	}
}

// IsRelay reports whether RelayAuth accepted the request's token
func IsRelay(c *gin.Context) bool {
	return c.GetBool(RelayKey)
}

// RequireRelay rejects requests that RelayAuth did not mark
func RequireRelay() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsRelay(c) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Relay token required"})
			c.Abort()
			return
		}
		c.Next()
	}
}
