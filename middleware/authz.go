package middleware

import (
	"net/http"

	"socialfeed/logging"

	"github.com/gin-gonic/gin"
)

// Policy decides whether a role may call a route.
type Policy interface {
	Allow(role, route, method string) (bool, error)
}

// Authorize checks the authenticated user's role against p. It must run
// after JWTAuth.
func Authorize(p Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Access token required"})
			return
		}
		ok, err := p.Allow(user.EffectiveRole(), c.FullPath(), c.Request.Method)
		if err != nil {
			logging.Ctx(c.Request.Context()).Error().Err(err).Msg("authorization check failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Authorization failed"})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			return
		}
		c.Next()
	}
}
