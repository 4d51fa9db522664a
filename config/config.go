package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the server reads from the environment.
type Config struct {
	Port    string
	GinMode string

	MongoURI string
	DBName   string

	JWTSecret string
	JWTTTL    time.Duration

	RecommendationURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AllowedOrigins []string

	LogLevel  string
	LogFormat string

	RateLimitRPS   float64
	RateLimitBurst int

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string

	AuthzPolicyPath string
}

// LoadDotEnv loads a .env file if one exists. A missing file is not an error.
func LoadDotEnv() bool {
	return godotenv.Load() == nil
}

// Load reads the server configuration from the process environment.
func Load() (*Config, error) {
	cfg := read()
	if cfg.MongoURI == "" || cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET and MONGODB_URI must be set")
	}
	return cfg, nil
}

// LoadTool reads the configuration for the command-line tools, which need
// only the database and the recommendation service.
func LoadTool() (*Config, error) {
	cfg := read()
	if cfg.MongoURI == "" {
		return nil, errors.New("MONGODB_URI must be set")
	}
	return cfg, nil
}

func read() *Config {
	return &Config{
		Port:              getEnv("PORT", "8080"),
		GinMode:           getEnv("GIN_MODE", "debug"),
		MongoURI:          os.Getenv("MONGODB_URI"),
		DBName:            getEnv("DB_NAME", "socialfeed"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		JWTTTL:            getDuration("JWT_TTL", 7*24*time.Hour),
		RecommendationURL: strings.TrimRight(getEnv("RECOMMENDATION_SERVICE_URL", "http://localhost:8000"), "/"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           getInt("REDIS_DB", 0),
		AllowedOrigins:    splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:8001")),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
		RateLimitRPS:      getFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:    getInt("RATE_LIMIT_BURST", 20),
		VAPIDPublicKey:    os.Getenv("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey:   os.Getenv("VAPID_PRIVATE_KEY"),
		VAPIDSubject:      getEnv("VAPID_SUBJECT", "mailto:admin@example.com"),
		AuthzPolicyPath:   os.Getenv("AUTHZ_POLICY_PATH"),
	}
}

// PushEnabled reports whether VAPID keys are configured.
func (c *Config) PushEnabled() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
