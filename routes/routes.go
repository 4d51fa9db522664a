package routes

import (
	"net/http"
	"time"

	"socialfeed/handlers"
	"socialfeed/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Deps struct {
	Handler        *handlers.Handler
	Auth           middleware.Authenticator
	Policy         middleware.Policy
	Limiter        *middleware.IPRateLimiter
	WebSocket      http.Handler
	AllowedOrigins []string
}

func SetupRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestLogger(), middleware.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     d.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	h := d.Handler
	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if d.WebSocket != nil {
		router.GET("/ws", gin.WrapH(d.WebSocket))
	}

	api := router.Group("/api/v1")
	if d.Limiter != nil {
		api.Use(middleware.RateLimit(d.Limiter))
	}

	// Public routes
	api.POST("/auth/login", h.Login)
	api.POST("/auth/signup", h.Signup)
	api.GET("/users", h.Users)
	api.GET("/categories", h.Categories)
	api.GET("/push/vapid-public-key", h.VapidPublicKey)

	protected := api.Group("")
	protected.Use(middleware.JWTAuth(d.Auth))

	// Social
	protected.GET("/timeline", h.Timeline)
	protected.GET("/users/suggested", h.SuggestedUsers)
	protected.GET("/users/:userId", h.Profile)
	protected.POST("/users/:userId/follow", h.Follow)
	protected.POST("/posts", h.CreatePost)
	protected.POST("/posts/:postId/like", h.LikePost)
	protected.POST("/posts/:postId/comments", h.CommentOnPost)
	protected.GET("/posts/:postId/comments", h.PostComments)
	protected.POST("/comments/:commentId/like", h.LikeComment)

	// Seen posts
	protected.POST("/user/seen-posts", h.RecordSeenPosts)
	protected.GET("/user/seen-posts", h.SeenPosts)
	protected.DELETE("/user/seen-posts", h.ClearSeenPosts)

	// Recommendations
	protected.GET("/ai/timeline", h.AITimeline)
	protected.GET("/ai/explore", h.AIExplore)
	protected.GET("/ai/users/recommended", h.RecommendedUsers)
	guarded := protected.Group("")
	if d.Policy != nil {
		guarded.Use(middleware.Authorize(d.Policy))
	}
	guarded.POST("/ai/model/train", h.TrainModel)
	guarded.GET("/ai/model/status", h.ModelStatus)
	guarded.GET("/ai/health", h.AIHealth)

	// Push subscriptions
	protected.POST("/push/subscribe", h.SubscribePush)
	protected.DELETE("/push/subscribe", h.UnsubscribePush)

	router.NoRoute(handlers.NotFound)

	return router
}
