// Package cache provides a small read-through cache used for slow-changing
// lookups such as the category list and the recommender's model status.
package cache

import (
	"context"
	"sync"
	"time"

	"socialfeed/logging"
	"socialfeed/metrics"

	"github.com/goccy/go-json"
)

type Cache interface {
	// Get decodes the value at key into dest and reports whether it was found.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Remember returns the cached value for key, calling load and caching its
// result on a miss. Cache errors are logged and treated as misses.
func Remember[T any](ctx context.Context, c Cache, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var cached T
	found, err := c.Get(ctx, key, &cached)
	switch {
	case err != nil:
		metrics.RecordCacheLookup(key, "error")
		logging.Warn().Err(err).Str("key", key).Msg("cache read failed")
	case found:
		metrics.RecordCacheLookup(key, "hit")
		return cached, nil
	default:
		metrics.RecordCacheLookup(key, "miss")
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	if err := c.Set(ctx, key, value, ttl); err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
	return value, nil
}

type entry struct {
	data    []byte
	expires time.Time
}

// Memory is an in-process Cache used when Redis is not configured.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entry), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if ok && !m.now().Before(e.expires) {
		delete(m.entries, key)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(e.data, dest)
}

func (m *Memory) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.entries[key] = entry{data: data, expires: m.now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}
