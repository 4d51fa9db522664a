package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"socialfeed/auth"
	"socialfeed/authz"
	"socialfeed/models"
	"socialfeed/repositories"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAuthenticator map[string]*models.User

func (f fakeAuthenticator) Authenticate(_ context.Context, token string) (*models.User, error) {
	if token == "gone" {
		return nil, repositories.ErrNotFound
	}
	u, ok := f[token]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return u, nil
}

func serve(r *gin.Engine, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": {"Bearer " + token}}
}

func TestJWTAuth(t *testing.T) {
	alice := &models.User{ID: primitive.NewObjectID(), Username: "alice"}
	r := gin.New()
	r.GET("/me", JWTAuth(fakeAuthenticator{"good": alice}), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.GetString(UserIDKey), "username": CurrentUser(c).Username})
	})

	tests := []struct {
		name   string
		header http.Header
		status int
		body   string
	}{
		{"missing header", nil, http.StatusUnauthorized, `{"error":"Access token required"}`},
		{"not bearer", http.Header{"Authorization": {"Basic abc"}}, http.StatusUnauthorized, `{"error":"Access token required"}`},
		{"invalid token", bearer("forged"), http.StatusForbidden, `{"error":"Invalid token"}`},
		{"deleted user", bearer("gone"), http.StatusUnauthorized, `{"error":"Invalid token"}`},
		{"valid", bearer("good"), http.StatusOK, `{"id":"` + alice.ID.Hex() + `","username":"alice"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(r, http.MethodGet, "/me", tt.header)
			assert.Equal(t, tt.status, w.Code)
			assert.JSONEq(t, tt.body, w.Body.String())
		})
	}
}

func TestJWTAuthSkipsPreflight(t *testing.T) {
	r := gin.New()
	r.OPTIONS("/me", JWTAuth(fakeAuthenticator{}), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := serve(r, http.MethodOptions, "/me", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRateLimit(t *testing.T) {
	limiter := NewIPRateLimiter(1, 2)
	r := gin.New()
	r.GET("/ping", RateLimit(limiter), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ping", nil).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ping", nil).Code)
	w := serve(r, http.MethodGet, "/ping", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"Too many requests"}`, w.Body.String())
}

func TestRateLimiterSweepsIdleVisitors(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewIPRateLimiter(1, 1)
	limiter.now = func() time.Time { return now }
	limiter.lastSweep = now

	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.2"))
	assert.Equal(t, 2, limiter.size())

	now = now.Add(11 * time.Minute)
	assert.True(t, limiter.Allow("10.0.0.3"))
	assert.Equal(t, 1, limiter.size())
}

func TestRequestLogger(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, http.MethodGet, "/ping", nil)
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)

	w = serve(r, http.MethodGet, "/ping", http.Header{RequestIDHeader: {"abc-123"}})
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	w := serve(r, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
}

func TestAuthorize(t *testing.T) {
	enforcer, err := authz.NewEnforcer("")
	require.NoError(t, err)

	users := fakeAuthenticator{
		"admin": {ID: primitive.NewObjectID(), Role: models.RoleAdmin},
		"user":  {ID: primitive.NewObjectID()},
	}
	r := gin.New()
	api := r.Group("/api/v1", JWTAuth(users))
	api.POST("/ai/model/train", Authorize(enforcer), func(c *gin.Context) { c.Status(http.StatusOK) })
	api.GET("/ai/model/status", Authorize(enforcer), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/api/v1/ai/model/train", bearer("admin")).Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodPost, "/api/v1/ai/model/train", bearer("user")).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/v1/ai/model/status", bearer("user")).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/v1/ai/model/status", bearer("admin")).Code)
}
