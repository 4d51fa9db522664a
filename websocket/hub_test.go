package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"socialfeed/auth"
	"socialfeed/models"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func startHub(t *testing.T) (*Hub, *auth.TokenManager, string) {
	t.Helper()
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	hub := NewHub(tokens, []string{"http://localhost:8001"})

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, tokens, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev Event
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestHubRejectsBadTokens(t *testing.T) {
	_, _, url := startHub(t)

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(url+"?token=garbage", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHubRejectsForeignOrigin(t *testing.T) {
	_, tokens, url := startHub(t)
	token, err := tokens.Issue(primitive.NewObjectID().Hex())
	require.NoError(t, err)

	_, resp, err := websocket.DefaultDialer.Dial(url+"?token="+token, http.Header{"Origin": {"http://evil.example"}})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHubDeliversOnlyToTargetUser(t *testing.T) {
	hub, tokens, url := startHub(t)
	alice, bob := primitive.NewObjectID(), primitive.NewObjectID()

	dial := func(id primitive.ObjectID) *websocket.Conn {
		token, err := tokens.Issue(id.Hex())
		require.NoError(t, err)
		conn, _, err := websocket.DefaultDialer.Dial(url+"?token="+token, nil)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })
		assert.Equal(t, "connected", readEvent(t, conn).Type)
		return conn
	}
	aliceConn := dial(alice)
	bobConn := dial(bob)

	require.Eventually(t, func() bool {
		return hub.Connections(alice.Hex()) == 1 && hub.Connections(bob.Hex()) == 1
	}, time.Second, 10*time.Millisecond)

	n := models.Notification{
		Type:      models.NotificationFollow,
		Actor:     models.AuthorSummary{ID: bob, Username: "bob"},
		CreatedAt: time.Now(),
	}
	require.NoError(t, hub.Deliver(context.Background(), alice, n))

	ev := readEvent(t, aliceConn)
	assert.Equal(t, models.NotificationFollow, ev.Type)
	payload, ok := ev.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "bob", payload["actor"].(map[string]any)["username"])

	require.NoError(t, bobConn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := bobConn.ReadMessage()
	assert.Error(t, err, "bob must not receive alice's notification")
}

func TestHubAnswersPing(t *testing.T) {
	_, tokens, url := startHub(t)
	token, err := tokens.Issue(primitive.NewObjectID().Hex())
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial(url+"?token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()
	readEvent(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	assert.Equal(t, "pong", readEvent(t, conn).Type)
}

func TestDeliverOffline(t *testing.T) {
	hub, _, _ := startHub(t)
	err := hub.Deliver(context.Background(), primitive.NewObjectID(), models.Notification{Type: models.NotificationLike})
	assert.ErrorIs(t, err, ErrOffline)
}

func TestHubClosesClientsOnShutdown(t *testing.T) {
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	hub := NewHub(tokens, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	token, err := tokens.Issue(primitive.NewObjectID().Hex())
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"?token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()
	readEvent(t, conn)

	cancel()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}
