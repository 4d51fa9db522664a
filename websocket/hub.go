// Package websocket pushes per-user notification events to connected
// browsers.
package websocket

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"socialfeed/logging"
	"socialfeed/metrics"
	"socialfeed/models"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 512
	sendBuffer     = 64
)

// ErrOffline is returned by Deliver when the user has no open connection.
var ErrOffline = errors.New("user has no open websocket connection")

// TokenParser validates a JWT and returns its user ID.
type TokenParser interface {
	Parse(token string) (string, error)
}

// Event is the frame written to clients.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type delivery struct {
	userID string
	msg    []byte
}

// Hub owns the registry of connected clients, keyed by user ID. All registry
// writes happen on the Run goroutine.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	deliver    chan delivery
	done       chan struct{}
	mu         sync.RWMutex

	tokens   TokenParser
	upgrader websocket.Upgrader
}

type Client struct {
	conn   *websocket.Conn
	userID string
	send   chan []byte
	pong   chan struct{}
	hub    *Hub
}

// NewHub creates a hub that accepts browser connections from the given
// origins. A "*" entry allows any origin.
func NewHub(tokens TokenParser, allowedOrigins []string) *Hub {
	h := &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan delivery, 256),
		done:       make(chan struct{}),
		tokens:     tokens,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// Run processes registrations and deliveries until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for _, set := range h.clients {
				for c := range set {
					close(c.send)
				}
			}
			h.clients = make(map[string]map[*Client]struct{})
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			set := h.clients[c.userID]
			if set == nil {
				set = make(map[*Client]struct{})
				h.clients[c.userID] = set
			}
			set[c] = struct{}{}
			h.mu.Unlock()
			metrics.WebSocketConnections.Inc()
			logging.Debug().Str("user", c.userID).Msg("websocket client registered")

		case c := <-h.unregister:
			h.remove(c)

		case d := <-h.deliver:
			h.mu.RLock()
			var slow []*Client
			for c := range h.clients[d.userID] {
				select {
				case c.send <- d.msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.RUnlock()
			for _, c := range slow {
				logging.Warn().Str("user", c.userID).Msg("dropping slow websocket client")
				h.remove(c)
			}
		}
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
	close(c.send)
	metrics.WebSocketConnections.Dec()
}

// Connections returns the number of open connections for userID.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Send queues an event for every connection of userID.
func (h *Hub) Send(ctx context.Context, userID, eventType string, payload any) error {
	msg, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		return err
	}
	select {
	case h.deliver <- delivery{userID: userID, msg: msg}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrOffline
	}
}

func (h *Hub) Name() string { return "websocket" }

// Deliver sends n to the user's open connections.
func (h *Hub) Deliver(ctx context.Context, to primitive.ObjectID, n models.Notification) error {
	userID := to.Hex()
	if h.Connections(userID) == 0 {
		return ErrOffline
	}
	return h.Send(ctx, userID, n.Type, n)
}

// ServeHTTP upgrades an authenticated request. The JWT is read from the
// token query parameter since browsers cannot set headers on websockets.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Access token required", http.StatusUnauthorized)
		return
	}
	userID, err := h.tokens.Parse(token)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &Client{conn: conn, userID: userID, send: make(chan []byte, sendBuffer), pong: make(chan struct{}, 1), hub: h}
	welcome, _ := json.Marshal(Event{Type: "connected", Payload: map[string]any{
		"userId": userID,
		"time":   time.Now().Unix(),
	}})
	c.send <- welcome

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Debug().Err(err).Str("user", c.userID).Msg("websocket read error")
			}
			return
		}

		var in Event
		if err := json.Unmarshal(message, &in); err != nil {
			continue
		}
		if in.Type == "ping" {
			select {
			case c.pong <- struct{}{}:
			default:
			}
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-c.pong:
			pong, _ := json.Marshal(Event{Type: "pong", Payload: map[string]any{"time": time.Now().Unix()}})
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, pong); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
