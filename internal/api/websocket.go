package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cogweb/cogweb-core/internal/atomspace"
	"github.com/cogweb/cogweb-core/internal/engine"
	"github.com/cogweb/cogweb-core/internal/infrastructure/config"
	"github.com/cogweb/cogweb-core/internal/infrastructure/logging"
)

// streamBuffer is the number of frames queued per client before events are
// dropped for it.
const streamBuffer = 64

// StreamEvent is one frame on the atom stream.
type StreamEvent struct {
	Event string `json:"event"`
	Time  string `json:"time"`
	Atom  any    `json:"atom"`
}

// Hub streams atom.created events to WebSocket clients.
//
// The stream is one-way. A client may narrow it with one or more ?type=
// query parameters; anything it sends is discarded. A client that falls
// streamBuffer frames behind misses events rather than slowing the engine.
//
// Hub satisfies engine.WSHub.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu      sync.Mutex
	clients map[*streamClient]struct{}
	closed  bool

	dropped atomic.Uint64
}

type streamClient struct {
	conn  *websocket.Conn
	types map[string]bool // empty streams every type
	out   chan []byte
}

func (c *streamClient) wants(atomType string) bool {
	return len(c.types) == 0 || c.types[atomType]
}

// Origins are enforced by the CORS middleware.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// NewHub creates a hub. Call Run to tie its lifetime to a context.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*streamClient]struct{}),
	}
}

// Run blocks until ctx is done, then disconnects every client and refuses
// new ones.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.out)
	}
}

// Broadcast queues payload for every client whose filter accepts it.
// Channels other than engine.EventAtomCreated have no stream and are ignored.
func (h *Hub) Broadcast(channel string, payload any) {
	if channel != engine.EventAtomCreated {
		return
	}
	var atomType string
	if a, ok := payload.(*atomspace.Atom); ok && a != nil {
		atomType = a.Type
	}

	data, err := json.Marshal(StreamEvent{
		Event: channel,
		Time:  time.Now().UTC().Format(time.RFC3339),
		Atom:  payload,
	})
	if err != nil {
		h.logger.Error("encoding atom event", "error", err)
		return
	}

	// Sends never block, so holding the lock keeps them ordered against close.
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !c.wants(atomType) {
			continue
		}
		select {
		case c.out <- data:
		default:
			h.dropped.Add(1)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped returns the number of events skipped for slow clients.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

func (h *Hub) add(c *streamClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

// remove is safe to call after Run has already closed c.
func (h *Hub) remove(c *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.out)
	}
}

func (h *Hub) pingInterval() time.Duration {
	return time.Duration(h.cfg.PingInterval) * time.Second
}

func (h *Hub) pongWait() time.Duration {
	return time.Duration(h.cfg.PongTimeout) * time.Second
}

// handleWebSocket upgrades the request and attaches it to the atom stream.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeInternalError(w, "websocket hub not running")
		return
	}
	types := make(map[string]bool)
	for _, t := range r.URL.Query()["type"] {
		if t != "" {
			types[t] = true
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &streamClient{conn: conn, types: types, out: make(chan []byte, streamBuffer)}
	if !s.hub.add(c) {
		//nolint:errcheck // Best-effort close frame
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}
	s.hub.logger.Debug("websocket client connected", "clients", s.hub.ClientCount(), "types", len(types))

	go s.hub.write(c)
	go s.hub.read(c)
}

// read drains client frames until the connection fails. Pongs and any
// client frame extend the read deadline.
func (h *Hub) read(c *streamClient) {
	defer func() {
		h.remove(c)
		c.conn.Close()
		h.logger.Debug("websocket client disconnected", "clients", h.ClientCount())
	}()

	deadline := h.pingInterval() + h.pongWait()
	c.conn.SetReadLimit(int64(h.cfg.MaxMessageSize))
	//nolint:errcheck // Best-effort deadline
	c.conn.SetReadDeadline(time.Now().Add(deadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(deadline))
	})

	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		//nolint:errcheck // Best-effort deadline
		c.conn.SetReadDeadline(time.Now().Add(deadline))
	}
}

// write sends queued events and keepalive pings until c.out is closed.
func (h *Hub) write(c *streamClient) {
	ticker := time.NewTicker(h.pingInterval())
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.out:
			//nolint:errcheck // Write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(h.pongWait()))
			if !ok {
				//nolint:errcheck // Best-effort close frame
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(h.pongWait()))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
