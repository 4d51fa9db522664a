// Package recommender is the HTTP client for the external recommendation
// service. Every call runs through a circuit breaker so an unavailable
// service fails fast and callers can fall back to database queries.
package recommender

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"socialfeed/logging"
	"socialfeed/metrics"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
)

const (
	rankingTimeout  = 10 * time.Second
	trainingTimeout = 60 * time.Second
	statusTimeout   = 5 * time.Second

	// cap on error bodies kept in StatusError
	maxErrorBody = 1 << 10
)

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("recommender %s: status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

type Client struct {
	baseURL string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker[[]byte]
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client. Per-call timeouts are
// applied through the request context either way.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cb = newBreaker("recommender")
	return c
}

func newBreaker(name string) *gobreaker.CircuitBreaker[[]byte] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		// Open after 5 straight failures, or 60% failures over at least 10 calls.
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 5 {
				return true
			}
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		// Caller cancellation does not count as a failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return -1
}

func (c *Client) Timeline(ctx context.Context, userID string, limit int) ([]Post, error) {
	var resp timelineResponse
	if err := c.get(ctx, "timeline", "/recommend/timeline/"+url.PathEscape(userID), limit, rankingTimeout, &resp); err != nil {
		return nil, err
	}
	return resp.Timeline, nil
}

func (c *Client) Predict(ctx context.Context, userID string, limit int) ([]Post, error) {
	var resp predictionsResponse
	if err := c.get(ctx, "predict", "/predict/"+url.PathEscape(userID), limit, rankingTimeout, &resp); err != nil {
		return nil, err
	}
	return resp.Predictions, nil
}

func (c *Client) Explore(ctx context.Context, userID string, limit int) ([]Post, error) {
	var resp exploreResponse
	if err := c.get(ctx, "explore", "/recommend/explore/"+url.PathEscape(userID), limit, rankingTimeout, &resp); err != nil {
		return nil, err
	}
	return resp.Explore, nil
}

func (c *Client) Users(ctx context.Context, userID string, limit int) ([]User, error) {
	var resp usersResponse
	if err := c.get(ctx, "users", "/recommend/users/"+url.PathEscape(userID), limit, rankingTimeout, &resp); err != nil {
		return nil, err
	}
	return resp.SuggestedUsers, nil
}

func (c *Client) Train(ctx context.Context) (*TrainResult, error) {
	var resp TrainResult
	if err := c.do(ctx, "train", http.MethodPost, "/train", []byte("{}"), trainingTimeout, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ModelStatus(ctx context.Context) (*ModelStatus, error) {
	var resp ModelStatus
	if err := c.do(ctx, "model_status", http.MethodGet, "/model/status", nil, statusTimeout, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Health(ctx context.Context) (*Health, error) {
	var resp Health
	if err := c.do(ctx, "health", http.MethodGet, "/health", nil, statusTimeout, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, limit int, timeout time.Duration, out interface{}) error {
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	return c.do(ctx, endpoint, http.MethodGet, path, nil, timeout, out)
}

func (c *Client) do(ctx context.Context, endpoint, method, path string, body []byte, timeout time.Duration, out interface{}) error {
	start := time.Now()
	data, err := c.cb.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, endpoint, method, path, body, timeout)
	})
	if err != nil {
		outcome := "failure"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = "rejected"
		}
		metrics.RecordRecommenderCall(endpoint, outcome, time.Since(start))
		return fmt.Errorf("recommender %s: %w", endpoint, err)
	}
	metrics.RecordRecommenderCall(endpoint, "success", time.Since(start))

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("recommender %s: decode response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, endpoint, method, path string, body []byte, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
	}
	return io.ReadAll(resp.Body)
}
