package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"socialfeed/auth"
	"socialfeed/authz"
	"socialfeed/cache"
	"socialfeed/config"
	"socialfeed/database"
	"socialfeed/handlers"
	"socialfeed/logging"
	"socialfeed/middleware"
	"socialfeed/notify"
	"socialfeed/push"
	"socialfeed/recommender"
	"socialfeed/repositories"
	"socialfeed/routes"
	"socialfeed/services"
	"socialfeed/validation"
	"socialfeed/websocket"

	"github.com/gin-gonic/gin"
)

func main() {
	dotenv := config.LoadDotEnv()
	cfg, err := config.Load()
	if cfg != nil {
		logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	}
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid configuration")
	}
	if !dotenv {
		logging.Debug().Msg("No .env file found, using process environment")
	}
	logging.Info().Msg("Starting socialfeed API server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ===== MONGODB =====
	client, err := database.Connect(ctx, cfg.MongoURI, 3)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer func() {
		if err := database.Disconnect(client); err != nil {
			logging.Warn().Err(err).Msg("MongoDB disconnect failed")
		}
	}()
	logging.Info().Str("db", cfg.DBName).Msg("MongoDB connected")

	db := client.Database(cfg.DBName)
	database.EnsureIndexes(ctx, db)
	store := repositories.NewMongoStore(db)

	// ===== CACHE =====
	var c cache.Cache = cache.NewMemory()
	if cfg.RedisAddr != "" {
		rc, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logging.Warn().Err(err).Msg("Redis unavailable, using in-process cache")
		} else {
			defer rc.Close()
			c = cache.NewRedis(rc, "socialfeed:")
			logging.Info().Str("addr", cfg.RedisAddr).Msg("Redis connected")
		}
	}

	// ===== AUTH =====
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	enforcer, err := authz.NewEnforcer(cfg.AuthzPolicyPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load authorization policy")
	}
	if err := validation.Register(); err != nil {
		logging.Fatal().Err(err).Msg("Failed to register validators")
	}

	// ===== NOTIFICATIONS =====
	hub := websocket.NewHub(tokens, cfg.AllowedOrigins)
	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	channels := []notify.Channel{hub}
	var pushKeys handlers.PushKeys
	if cfg.PushEnabled() {
		sender := push.NewSender(store.Push, push.Keys{
			PublicKey:  cfg.VAPIDPublicKey,
			PrivateKey: cfg.VAPIDPrivateKey,
			Subject:    cfg.VAPIDSubject,
		}, nil)
		channels = append(channels, sender)
		pushKeys = sender
	} else {
		logging.Warn().Msg("VAPID keys not set, web push disabled (generate with cmd/vapid)")
	}
	dispatcher := notify.NewDispatcher(channels, websocket.ErrOffline, push.ErrNoSubscriptions)

	// ===== SERVICES & ROUTER =====
	svc := services.New(services.Deps{
		Store:       store,
		Recommender: recommender.NewClient(cfg.RecommendationURL),
		Cache:       c,
		Notifier:    dispatcher,
		Tokens:      tokens,
	})

	gin.SetMode(cfg.GinMode)
	router := routes.SetupRouter(routes.Deps{
		Handler:        handlers.New(svc, pushKeys, database.Pinger{Client: client}),
		Auth:           svc.Auth,
		Policy:         enforcer,
		Limiter:        middleware.NewIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		WebSocket:      hub,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 70 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logging.Info().Str("port", cfg.Port).Str("recommender", cfg.RecommendationURL).Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ===== GRACEFUL SHUTDOWN =====
	<-ctx.Done()
	logging.Info().Msg("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("Forced shutdown")
	}
	stopHub()
	dispatcher.Wait()

	logging.Info().Msg("Server stopped")
}
