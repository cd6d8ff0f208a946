package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-player/internal/auth"
	"github.com/stemsi/exstem-player/internal/response"
)

const (
	// ContextKeyIdentity is the Gin context key for the caller's identity.
	ContextKeyIdentity = "identity"
)

// RequireIdentity reads the bearer token from the Authorization header, or
// from ?token= on WebSocket upgrades, and stores the parsed identity.
// fallbackToken is used when the request carries none (single-user kiosk).
func RequireIdentity(secret, fallbackToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			token = fallbackToken
		}
		if token == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		id, err := auth.FromToken(token, secret)
		switch {
		case errors.Is(err, auth.ErrTokenExpired):
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenExpired)
			return
		case err != nil:
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}

		c.Set(ContextKeyIdentity, id)
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		return c.Query("token")
	}
	return ""
}

// GetIdentity extracts the identity from the Gin context.
func GetIdentity(c *gin.Context) *auth.Identity {
	val, exists := c.Get(ContextKeyIdentity)
	if !exists {
		return nil
	}
	id, ok := val.(*auth.Identity)
	if !ok {
		return nil
	}
	return id
}
