package adminapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad/warnbridge/internal/config"
	"github.com/nerrad/warnbridge/internal/dispatch"
)

// WebSocket message types sent to connected admin clients.
const (
	wsTypeEvent = "event"

	// wsSendBufferSize is the per-client outbound message buffer size.
	wsSendBufferSize = 256
)

// wsMessage is the envelope every broadcast event is wrapped in.
type wsMessage struct {
	Type      string            `json:"type"`
	Timestamp string            `json:"timestamp"`
	Payload   dispatch.JobEvent `json:"payload"`
}

// Hub manages connected admin WebSocket clients and broadcasts Job
// lifecycle events to all of them. It implements dispatch.Events, so a
// Dispatcher can be wired directly to a Hub as its event sink.
type Hub struct {
	cfg     config.WebSocketConfig
	logger  Logger
	clients map[*wsClient]struct{}
	mu      sync.RWMutex
}

// wsClient represents one connected admin WebSocket connection.
type wsClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by corsMiddleware on the HTTP path
		// that issues the ticket; the upgrade itself trusts the ticket.
		return true
	},
}

// NewHub creates a new WebSocket hub.
func NewHub(cfg config.WebSocketConfig, logger Logger) *Hub {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Hub{cfg: cfg, logger: logger, clients: make(map[*wsClient]struct{})}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Publish implements dispatch.Events by broadcasting e to every
// connected admin client.
func (h *Hub) Publish(e dispatch.JobEvent) {
	msg := wsMessage{Type: wsTypeEvent, Timestamp: time.Now().UTC().Format(time.RFC3339), Payload: e}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal job event for broadcast", "error", err)
		return
	}

	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.trySend(data)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("admin websocket client connected", "clients", h.ClientCount())
}

// unregister removes a client. Only the goroutine that successfully
// removes the client from the map closes its send channel, preventing a
// double-close panic during shutdown.
func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	_, existed := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if existed {
		close(c.send)
	}
	h.logger.Debug("admin websocket client disconnected", "clients", h.ClientCount())
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		if c.conn != nil {
			c.conn.Close() //nolint:errcheck // best-effort close on shutdown
		}
		delete(h.clients, c)
	}
}

// handleWebSocket upgrades the connection after validating the ticket
// obtained from POST /auth/ws-ticket. Browsers cannot set a bearer
// header on the upgrade request, so the ticket substitutes for one.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ticket := r.URL.Query().Get("ticket")
	if ticket == "" || !s.tickets.consume(ticket) {
		writeUnauthorized(w, "missing or invalid ticket")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("admin websocket upgrade failed", "error", err)
		return
	}

	client := &wsClient{hub: s.hub, conn: conn, send: make(chan []byte, wsSendBufferSize)}
	s.hub.register(client)

	go client.writePump(s.cfg.WebSocket)
	go client.readPump(s.cfg.WebSocket)
}

// readPump discards inbound messages (the admin WebSocket is broadcast-only)
// but keeps the read deadline alive so idle clients are detected.
func (c *wsClient) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close() //nolint:errcheck // best-effort close
	}()

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	pongWait := time.Duration(cfg.PongTimeout) * time.Second
	//nolint:errcheck // best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsClient) writePump(cfg config.WebSocketConfig) {
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	ticker := time.NewTicker(pingInterval)
	pongWait := time.Duration(cfg.PongTimeout) * time.Second
	defer func() {
		ticker.Stop()
		c.conn.Close() //nolint:errcheck // best-effort close
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil) //nolint:errcheck // best-effort close frame
				return
			}
			//nolint:errcheck // best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// trySend attempts a non-blocking send, silently dropping the message if
// the client's buffer is full or its channel already closed.
func (c *wsClient) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // absorb send-on-closed-channel panic
	}()
	select {
	case c.send <- data:
	default:
	}
}
