package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const identityKey = "chirper.userID"

// Identify resolves an optional bearer token into a request identity. Bad or
// absent tokens leave the request anonymous; private routes layer Require on
// top.
func Identify(tokens *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header != "" && strings.HasPrefix(header, "Bearer ") {
			if userID, err := tokens.Parse(strings.TrimPrefix(header, "Bearer ")); err == nil {
				c.Set(identityKey, userID)
			}
		}
		c.Next()
	}
}

// Require aborts with 401 unless Identify resolved an identity.
func Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserID(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user id for the request, or "" for
// anonymous callers. Handlers pass this down explicitly; nothing below the
// HTTP layer reads it ambiently.
func UserID(c *gin.Context) string {
	return c.GetString(identityKey)
}
