package routes

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"socialfeed/auth"
	"socialfeed/authz"
	"socialfeed/handlers"
	"socialfeed/metrics"
	"socialfeed/middleware"
	"socialfeed/models"
	"socialfeed/recommender"
	"socialfeed/repositories"
	"socialfeed/repositories/memory"
	"socialfeed/services"
	"socialfeed/validation"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubRecommender struct {
	timeline []recommender.Post
	err      error
}

func (s *stubRecommender) Timeline(context.Context, string, int) ([]recommender.Post, error) {
	return s.timeline, s.err
}

func (s *stubRecommender) Predict(context.Context, string, int) ([]recommender.Post, error) {
	return nil, s.err
}

func (s *stubRecommender) Explore(context.Context, string, int) ([]recommender.Post, error) {
	return nil, s.err
}

func (s *stubRecommender) Users(context.Context, string, int) ([]recommender.User, error) {
	return nil, s.err
}

func (s *stubRecommender) Train(context.Context) (*recommender.TrainResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &recommender.TrainResult{Status: "success", Message: "trained"}, nil
}

func (s *stubRecommender) ModelStatus(context.Context) (*recommender.ModelStatus, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &recommender.ModelStatus{Trained: true}, nil
}

func (s *stubRecommender) Health(context.Context) (*recommender.Health, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &recommender.Health{Status: "healthy"}, nil
}

type env struct {
	router *gin.Engine
	store  *repositories.Store
	tokens *auth.TokenManager
	rec    *stubRecommender
}

func newEnv(t *testing.T) *env {
	t.Helper()
	require.NoError(t, validation.Register())

	store := memory.New().Repositories()
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	rec := &stubRecommender{}
	svc := services.New(services.Deps{Store: store, Recommender: rec, Tokens: tokens})
	enforcer, err := authz.NewEnforcer("")
	require.NoError(t, err)

	router := SetupRouter(Deps{
		Handler:        handlers.New(svc, nil, nil),
		Auth:           svc.Auth,
		Policy:         enforcer,
		Limiter:        middleware.NewIPRateLimiter(1000, 1000),
		AllowedOrigins: []string{"http://localhost:8001"},
	})
	return &env{router: router, store: store, tokens: tokens, rec: rec}
}

func (e *env) user(t *testing.T, name, role string) (*models.User, string) {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com", FullName: name, Role: role}
	require.NoError(t, u.SetPassword("helloadmin1"))
	require.NoError(t, e.store.Users.Create(context.Background(), u))
	token, err := e.tokens.Issue(u.ID.Hex())
	require.NoError(t, err)
	return u, token
}

func (e *env) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestAuthRoutes(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/v1/auth/signup", "", gin.H{
		"username": "alice", "email": "alice@example.com", "password": "helloadmin1", "fullName": "Alice",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	signup := decode[map[string]any](t, w)
	assert.NotEmpty(t, signup["token"])
	assert.Equal(t, "Signup successful", signup["message"])

	w = e.do(t, http.MethodPost, "/api/v1/auth/signup", "", gin.H{
		"username": "alice", "email": "other@example.com", "password": "helloadmin1", "fullName": "Alice",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(t, http.MethodPost, "/api/v1/auth/signup", "", gin.H{
		"username": "a b", "email": "ab@example.com", "password": "helloadmin1", "fullName": "AB",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"username must be 3-30 letters, digits or underscores"}`, w.Body.String())

	w = e.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "ALICE@example.com", "password": "helloadmin1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Login successful", decode[map[string]any](t, w)["message"])

	w = e.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Invalid credentials"}`, w.Body.String())

	w = e.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "alice"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Username and password are required"}`, w.Body.String())
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodGet, "/api/v1/timeline", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Access token required"}`, w.Body.String())

	w = e.do(t, http.MethodGet, "/api/v1/timeline", "not-a-jwt", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"Invalid token"}`, w.Body.String())

	ghost, err := e.tokens.Issue(primitive.NewObjectID().Hex())
	require.NoError(t, err)
	w = e.do(t, http.MethodGet, "/api/v1/timeline", ghost, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Invalid token"}`, w.Body.String())
}

func TestSocialRoutes(t *testing.T) {
	e := newEnv(t)
	alice, aliceToken := e.user(t, "alice", "")
	bob, bobToken := e.user(t, "bob", "")

	w := e.do(t, http.MethodPost, "/api/v1/posts", aliceToken, gin.H{"content": "Hello #Go world"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	post := decode[models.PostView](t, w)
	assert.Equal(t, []string{"go"}, post.Hashtags)
	assert.Equal(t, "alice", post.Author.Username)

	w = e.do(t, http.MethodPost, "/api/v1/posts", aliceToken, gin.H{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Post content is required"}`, w.Body.String())

	w = e.do(t, http.MethodPost, "/api/v1/users/"+alice.ID.Hex()+"/follow", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"following":true,"followerCount":1,"followingCount":1}`, w.Body.String())

	w = e.do(t, http.MethodPost, "/api/v1/users/"+bob.ID.Hex()+"/follow", bobToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Cannot follow yourself"}`, w.Body.String())
	w = e.do(t, http.MethodPost, "/api/v1/users/"+strings.ToUpper(bob.ID.Hex())+"/follow", bobToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Cannot follow yourself"}`, w.Body.String())

	w = e.do(t, http.MethodGet, "/api/v1/timeline", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	timeline := decode[[]models.PostView](t, w)
	require.Len(t, timeline, 1)
	assert.Equal(t, post.ID, timeline[0].ID)

	postPath := "/api/v1/posts/" + post.ID.Hex()
	w = e.do(t, http.MethodPost, postPath+"/like", bobToken, nil)
	assert.JSONEq(t, `{"liked":true,"likeCount":1}`, w.Body.String())
	w = e.do(t, http.MethodPost, postPath+"/like", bobToken, nil)
	assert.JSONEq(t, `{"liked":false,"likeCount":0}`, w.Body.String())

	w = e.do(t, http.MethodPost, "/api/v1/posts/"+primitive.NewObjectID().Hex()+"/like", bobToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Post not found"}`, w.Body.String())
	w = e.do(t, http.MethodPost, "/api/v1/posts/not-an-id/like", bobToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid post id"}`, w.Body.String())

	w = e.do(t, http.MethodPost, postPath+"/comments", bobToken, gin.H{"content": "nice"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	comment := decode[models.CommentView](t, w)
	assert.Equal(t, "bob", comment.Author.Username)

	w = e.do(t, http.MethodPost, postPath+"/comments", bobToken, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodGet, postPath+"/comments", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.CommentView](t, w), 1)

	w = e.do(t, http.MethodPost, "/api/v1/comments/"+comment.ID.Hex()+"/like", aliceToken, nil)
	assert.JSONEq(t, `{"liked":true,"likeCount":1}`, w.Body.String())

	w = e.do(t, http.MethodGet, "/api/v1/users/"+alice.ID.Hex(), bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode[services.Profile](t, w)
	assert.Equal(t, "alice", profile.User.Username)
	assert.Len(t, profile.Posts, 1)

	w = e.do(t, http.MethodGet, "/api/v1/users/"+primitive.NewObjectID().Hex(), bobToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSeenPostsRoutes(t *testing.T) {
	e := newEnv(t)
	_, token := e.user(t, "carol", "")
	ids := []string{primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex(), "bogus"}

	w := e.do(t, http.MethodPost, "/api/v1/user/seen-posts", token, gin.H{"postIds": ids})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"success":true,"message":"Recorded 2 posts as seen","totalSeenPosts":2}`, w.Body.String())

	w = e.do(t, http.MethodPost, "/api/v1/user/seen-posts", token, `{"postIds":"abc"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"postIds array is required"}`, w.Body.String())

	w = e.do(t, http.MethodPost, "/api/v1/user/seen-posts", token, gin.H{"postIds": []string{}})
	assert.JSONEq(t, `{"error":"postIds array is required"}`, w.Body.String())

	w = e.do(t, http.MethodPost, "/api/v1/user/seen-posts", token, gin.H{"postIds": []string{"nope"}})
	assert.JSONEq(t, `{"error":"No valid post IDs provided"}`, w.Body.String())

	w = e.do(t, http.MethodGet, "/api/v1/user/seen-posts", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[services.SeenPostsPage](t, w)
	assert.Equal(t, 2, page.TotalCount)
	assert.False(t, page.HasMore)

	w = e.do(t, http.MethodDelete, "/api/v1/user/seen-posts", token, nil)
	assert.JSONEq(t, `{"success":true,"message":"Seen posts history cleared"}`, w.Body.String())

	mixed := `{"postIds":["` + primitive.NewObjectID().Hex() + `",42,null,{"id":"x"}]}`
	w = e.do(t, http.MethodPost, "/api/v1/user/seen-posts", token, mixed)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"success":true,"message":"Recorded 1 posts as seen","totalSeenPosts":1}`, w.Body.String())

	w = e.do(t, http.MethodPost, "/api/v1/user/seen-posts", token, `{"postIds":[42,true]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"No valid post IDs provided"}`, w.Body.String())
}

func TestRecommendationRoutes(t *testing.T) {
	e := newEnv(t)
	_, userToken := e.user(t, "dave", "")
	_, adminToken := e.user(t, "root", models.RoleAdmin)

	w := e.do(t, http.MethodPost, "/api/v1/ai/model/train", userToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodPost, "/api/v1/ai/model/train", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "success", decode[map[string]any](t, w)["status"])

	w = e.do(t, http.MethodGet, "/api/v1/ai/model/status", userToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	e.rec.err = assert.AnError

	w = e.do(t, http.MethodGet, "/api/v1/ai/timeline", userToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = e.do(t, http.MethodGet, "/api/v1/ai/explore", userToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/api/v1/ai/users/recommended", userToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodPost, "/api/v1/ai/model/train", adminToken, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to train model"}`, w.Body.String())

	w = e.do(t, http.MethodGet, "/api/v1/ai/health", userToken, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestPublicRoutes(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.store.Categories.InsertMany(context.Background(), []models.Category{{Name: "Technology"}}))
	e.user(t, "erin", "")

	w := e.do(t, http.MethodGet, "/api/v1/categories", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cats := decode[map[string][]models.Category](t, w)
	require.Len(t, cats["categories"], 1)
	assert.Equal(t, "Technology", cats["categories"][0].Name)

	w = e.do(t, http.MethodGet, "/api/v1/users?search=ERI", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	users := decode[map[string][]models.UserView](t, w)
	require.Len(t, users["users"], 1)
	assert.Equal(t, "erin", users["users"][0].Username)

	w = e.do(t, http.MethodGet, "/api/v1/push/vapid-public-key", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/metrics", "", nil).Code)

	w = e.do(t, http.MethodGet, "/api/v1/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Endpoint not found", decode[map[string]any](t, w)["error"])
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestPushSubscriptionRoutes(t *testing.T) {
	e := newEnv(t)
	u, token := e.user(t, "frank", "")
	body := gin.H{"endpoint": "https://push.example.com/abc", "keys": gin.H{"p256dh": "key", "auth": "secret"}}

	w := e.do(t, http.MethodPost, "/api/v1/push/subscribe", token, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	subs, err := e.store.Push.ByUser(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Len(t, subs, 1)

	w = e.do(t, http.MethodPost, "/api/v1/push/subscribe", token, gin.H{"endpoint": "not a url"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodDelete, "/api/v1/push/subscribe", token, gin.H{"endpoint": "https://push.example.com/abc"})
	assert.Equal(t, http.StatusOK, w.Code)
	w = e.do(t, http.MethodDelete, "/api/v1/push/subscribe", token, gin.H{"endpoint": "https://push.example.com/abc"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPanickingRequestIsLoggedAndCounted(t *testing.T) {
	e := newEnv(t)
	e.router.GET("/explode", func(*gin.Context) { panic("boom") })
	before := testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, "/explode", "500"))

	w := e.do(t, http.MethodGet, "/explode", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	after := testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, "/explode", "500"))
	assert.Equal(t, before+1, after)
}
