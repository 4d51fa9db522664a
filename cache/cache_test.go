package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Name string `json:"name"`
}

func TestMemoryExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(context.Background(), "k", item{Name: "tech"}, time.Minute))

	var got item
	found, err := m.Get(context.Background(), "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "tech", got.Name)

	now = now.Add(time.Minute)
	found, err = m.Get(context.Background(), "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryDelete(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Set(context.Background(), "k", 1, time.Minute))
	require.NoError(t, m.Delete(context.Background(), "k"))

	var v int
	found, err := m.Get(context.Background(), "k", &v)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRememberLoadsOnce(t *testing.T) {
	m := NewMemory()
	loads := 0
	load := func(context.Context) ([]item, error) {
		loads++
		return []item{{Name: "music"}}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := Remember(context.Background(), m, "categories", time.Minute, load)
		require.NoError(t, err)
		assert.Equal(t, []item{{Name: "music"}}, got)
	}
	assert.Equal(t, 1, loads)
}

func TestRememberDoesNotCacheErrors(t *testing.T) {
	m := NewMemory()
	loads := 0
	load := func(context.Context) (int, error) {
		loads++
		return 0, errors.New("boom")
	}

	_, err := Remember(context.Background(), m, "k", time.Minute, load)
	require.Error(t, err)
	_, err = Remember(context.Background(), m, "k", time.Minute, load)
	require.Error(t, err)
	assert.Equal(t, 2, loads)
}
