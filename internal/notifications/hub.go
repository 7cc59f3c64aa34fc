package notifications

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"folio/internal/middleware"
	"folio/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	maxConnsPerUser = 8
	maxTotalConns   = 10000
)

var (
	ErrServerFull = errors.New("server connection limit reached")
	ErrUserFull   = errors.New("user connection limit reached")
)

// Hub maps user ids to their live websocket clients on this instance.
type Hub struct {
	mu         sync.RWMutex
	conns      map[uint]map[*Client]struct{}
	totalConns int
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[uint]map[*Client]struct{})}
}

// Register adds a connection for userID.
func (h *Hub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.totalConns >= maxTotalConns {
		return nil, ErrServerFull
	}
	m, ok := h.conns[userID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[userID] = m
	}
	if len(m) >= maxConnsPerUser {
		return nil, ErrUserFull
	}

	client := newClient(h, conn, userID)
	m[client] = struct{}{}
	h.totalConns++
	observability.WebSocketConnections.Inc()
	return client, nil
}

// UnregisterClient removes a client and closes its send queue. Safe to call
// more than once.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.conns[client.UserID]
	if !ok {
		return
	}
	if _, exists := m[client]; !exists {
		return
	}
	delete(m, client)
	close(client.Send)
	h.totalConns--
	observability.WebSocketConnections.Dec()
	if len(m) == 0 {
		delete(h.conns, client.UserID)
	}
}

// Broadcast sends payload to every connection of userID.
func (h *Hub) Broadcast(userID uint, payload string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data := []byte(payload)
	for c := range h.conns[userID] {
		c.TrySend(data)
	}
}

// BroadcastAll sends payload to every connected client.
func (h *Hub) BroadcastAll(payload string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data := []byte(payload)
	for _, clients := range h.conns {
		for c := range clients {
			c.TrySend(data)
		}
	}
}

// IsOnline reports whether the user has a connection on this instance.
func (h *Hub) IsOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID]) > 0
}

// ConnectionCount is the number of live connections on this instance.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalConns
}

// StartWiring routes the notifier's messages to this hub: through the Redis
// subscription when available, directly otherwise.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	n.local = h
	return n.StartSubscriber(ctx, func(channel, payload string) {
		if channel == broadcastChannel {
			h.BroadcastAll(payload)
			return
		}
		userID, ok := parseUserChannel(channel)
		if !ok {
			middleware.Logger.Warn("invalid notification channel", slog.String("channel", channel))
			return
		}
		h.Broadcast(userID, payload)
	})
}

// Shutdown closes every connection with a going-away frame.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, clients := range h.conns {
		for client := range clients {
			if client.Conn != nil {
				_ = client.Conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				if err := client.Conn.Close(); err != nil {
					middleware.Logger.Warn("failed to close websocket",
						slog.Uint64("user_id", uint64(userID)),
						slog.String("error", err.Error()))
				}
			}
			close(client.Send)
			observability.WebSocketConnections.Dec()
		}
	}
	h.conns = make(map[uint]map[*Client]struct{})
	h.totalConns = 0
	return nil
}
