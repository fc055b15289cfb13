package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/muurk/sensordash/internal/display"
	"github.com/muurk/sensordash/internal/logging"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512

	// Events queued per client before it is dropped as too slow
	clientBuffer = 32
)

// EventType says what an Event carries
type EventType string

const (
	// EventState carries the full display mirror; sent on connect
	EventState EventType = "state"
	// EventExchange carries one command line and its reply
	EventExchange EventType = "exchange"
)

// Event is one message on the /ws stream
type Event struct {
	Type  EventType         `json:"type"`
	Time  time.Time         `json:"time"`
	Line  string            `json:"line,omitempty"`
	Reply string            `json:"reply,omitempty"`
	OK    bool              `json:"ok"`
	Error string            `json:"error,omitempty"`
	State *display.Snapshot `json:"state,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type client struct {
	conn       *websocket.Conn
	remoteAddr string
	send       chan []byte
}

// Hub fans events out to every connected websocket client
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	queue   chan []byte
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		queue:   make(chan []byte, 64),
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues ev for every client. It never blocks the caller.
func (h *Hub) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		logging.Error("Failed to marshal event", zap.Error(err))
		return
	}
	select {
	case h.queue <- data:
	default:
		logging.Warn("Event queue full, dropping event", zap.String("line", ev.Line))
	}
}

// Run delivers queued events until ctx is cancelled
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case data := <-h.queue:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					logging.Warn("Websocket client too slow, dropping", zap.String("remote_addr", c.remoteAddr))
					h.removeLocked(c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// CloseAll disconnects every client
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	logging.LogConnection(c.remoteAddr, "websocket_opened")
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	logging.LogConnection(c.remoteAddr, "websocket_closed")
}

// handleWebSocket upgrades the request and streams events to the client,
// starting with the current display state
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		logging.Info("Websocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	c := &client{conn: conn, remoteAddr: r.RemoteAddr, send: make(chan []byte, clientBuffer)}

	snap := s.Snapshot()
	hello, err := json.Marshal(Event{Type: EventState, Time: time.Now(), OK: true, State: &snap})
	if err == nil {
		c.send <- hello
	}

	s.events.add(c)
	go c.writePump()
	c.readPump(s.events)
}

// readPump discards client messages; it exists to notice the close
// and to answer pings
func (c *client) readPump(h *Hub) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Info("Websocket closed unexpectedly",
					zap.String("remote_addr", c.remoteAddr),
					zap.Error(err),
				)
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logging.Debug("Websocket write failed",
					zap.String("remote_addr", c.remoteAddr),
					zap.Error(err),
				)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
