// Package handlers binds HTTP requests to the services and writes their
// JSON responses.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"socialfeed/logging"
	"socialfeed/middleware"
	"socialfeed/models"
	"socialfeed/services"

	"github.com/gin-gonic/gin"
)

const maxLimit = 100

// PushKeys exposes the server's VAPID public key.
type PushKeys interface {
	PublicKey() string
}

// Pinger checks that the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	svc  *services.Services
	push PushKeys
	db   Pinger
}

// New builds the handlers. push may be nil when web push is not configured.
func New(svc *services.Services, push PushKeys, db Pinger) *Handler {
	return &Handler{svc: svc, push: push, db: db}
}

// respondError writes the status matching err. Unexpected errors are logged
// and reported as 500 with fallback as the message.
func respondError(c *gin.Context, err error, fallback string) {
	var svcErr *services.Error
	msg := fallback
	if errors.As(err, &svcErr) {
		msg = svcErr.Message
	}

	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrSelfFollow),
		errors.Is(err, services.ErrInvalidID):
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": msg})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": msg})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": msg})
	default:
		_ = c.Error(err)
		logging.Ctx(c.Request.Context()).Error().Err(err).Str("route", c.FullPath()).Msg(fallback)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// intQuery reads a positive integer query parameter. Missing or malformed
// values yield def; values above max are clamped.
func intQuery(c *gin.Context, key string, def, max int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n < 1 {
		return def
	}
	if max > 0 && n > max {
		return max
	}
	return n
}

func limitQuery(c *gin.Context, def int) int {
	return intQuery(c, "limit", def, maxLimit)
}

func pageQuery(c *gin.Context, defLimit int) services.Page {
	return services.Page{
		Page:  intQuery(c, "page", 1, services.MaxPage),
		Limit: limitQuery(c, defLimit),
	}
}

func currentUser(c *gin.Context) *models.User {
	return middleware.CurrentUser(c)
}
