package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"socialfeed/auth"
	"socialfeed/logging"
	"socialfeed/models"
	"socialfeed/repositories"

	"github.com/gin-gonic/gin"
)

const (
	UserIDKey = "userId"
	UserKey   = "user"
)

// Authenticator resolves a bearer token to the user it was issued for.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// JWTAuth requires a valid bearer token and loads its user into the context.
func JWTAuth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip CORS preflight
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Access token required"})
			return
		}

		user, err := a.Authenticate(c.Request.Context(), token)
		switch {
		case errors.Is(err, auth.ErrInvalidToken):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid token"})
			return
		case errors.Is(err, repositories.ErrNotFound):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		case err != nil:
			logging.Ctx(c.Request.Context()).Error().Err(err).Msg("authenticate request")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Authentication failed"})
			return
		}

		c.Set(UserIDKey, user.ID.Hex())
		c.Set(UserKey, user)
		c.Next()
	}
}

// CurrentUser returns the user loaded by JWTAuth, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(UserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
