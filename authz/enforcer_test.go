package authz

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedPolicy(t *testing.T) {
	e, err := NewEnforcer("")
	require.NoError(t, err)

	tests := []struct {
		role, route, method string
		want                bool
	}{
		{"admin", "/api/v1/ai/model/train", "POST", true},
		{"user", "/api/v1/ai/model/train", "POST", false},
		{"user", "/api/v1/ai/model/status", "GET", true},
		{"admin", "/api/v1/ai/model/status", "GET", true},
		{"user", "/api/v1/ai/model/status", "POST", false},
		{"guest", "/api/v1/ai/health", "GET", false},
	}
	for _, tt := range tests {
		got, err := e.Allow(tt.role, tt.route, tt.method)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s %s %s", tt.role, tt.method, tt.route)
	}
}

func TestPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.csv")
	require.NoError(t, os.WriteFile(path, []byte("p, user, /api/v1/ai/model/train, POST\n"), 0o600))

	e, err := NewEnforcer(path)
	require.NoError(t, err)

	ok, err := e.Allow("user", "/api/v1/ai/model/train", "POST")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMissingPolicyFile(t *testing.T) {
	_, err := NewEnforcer(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestMalformedPolicy(t *testing.T) {
	e, err := NewEnforcer("")
	require.NoError(t, err)
	assert.Error(t, loadPolicy(e.enforcer, "p, admin\n"))
}
