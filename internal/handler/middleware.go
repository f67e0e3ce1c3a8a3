package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const sessionUserKey = "session_user"

// TokenParser resolves a bearer token to a username.
type TokenParser interface {
	ParseToken(raw string) (string, error)
}

// JWTAuth returns a Gin middleware that requires a valid bearer token.
// If parser is nil, the middleware is a no-op (auth disabled).
func JWTAuth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		if parser == nil {
			c.Next()
			return
		}
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		username, err := parser.ParseToken(strings.TrimSpace(raw))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(sessionUserKey, username)
		c.Next()
	}
}

func sessionUser(c *gin.Context) string {
	return c.GetString(sessionUserKey)
}
