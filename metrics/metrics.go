// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "socialfeed_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "socialfeed_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "socialfeed_rate_limited_total",
			Help: "Requests rejected by the per-IP rate limiter",
		},
	)

	// Recommender client
	RecommenderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "socialfeed_recommender_requests_total",
			Help: "Calls to the recommendation service by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"}, // success, failure, rejected
	)

	RecommenderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "socialfeed_recommender_request_duration_seconds",
			Help:    "Latency of recommendation service calls in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"endpoint"},
	)

	RecommendationFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "socialfeed_recommendation_fallbacks_total",
			Help: "Recommendation requests served by the database fallback",
		},
		[]string{"feed", "reason"}, // reason: error, empty
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "socialfeed_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "socialfeed_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Cache
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "socialfeed_cache_requests_total",
			Help: "Cache lookups by key prefix and result",
		},
		[]string{"key", "result"}, // hit, miss, error
	)

	// Notifications
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "socialfeed_websocket_connections",
			Help: "Currently open websocket connections",
		},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "socialfeed_notifications_total",
			Help: "Notifications dispatched by type and channel",
		},
		[]string{"type", "channel"}, // channel: websocket, push
	)

	PushFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "socialfeed_push_failures_total",
			Help: "Failed web push deliveries",
		},
		[]string{"reason"}, // expired, error
	)

	SeenPostsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "socialfeed_seen_posts_submitted_total",
			Help: "Valid post IDs submitted to seen-posts histories",
		},
	)
)

func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func RecordRecommenderCall(endpoint, outcome string, duration time.Duration) {
	RecommenderRequests.WithLabelValues(endpoint, outcome).Inc()
	RecommenderDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func RecordFallback(feed, reason string) {
	RecommendationFallbacks.WithLabelValues(feed, reason).Inc()
}

func RecordCacheLookup(key, result string) {
	CacheRequests.WithLabelValues(key, result).Inc()
}
