package inspect

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/verdant/pkg/isr"
)

// DefaultPath is where the event stream is mounted.
const DefaultPath = "/__verdant/events"

// EventType distinguishes cache events.
type EventType string

const (
	EventServed      EventType = "served"
	EventRegenerated EventType = "regenerated"
)

// Error classes reported for failed regenerations. The underlying error
// is logged, never sent.
const (
	ErrorTimeout  = "timeout"
	ErrorNotFound = "not_found"
	ErrorFailed   = "failed"
)

// Event is one cache transition sent to subscribers as JSON.
type Event struct {
	Type   EventType  `json:"type"`
	Key    string     `json:"key"`
	Status isr.Status `json:"status,omitempty"`
	TookMS int64      `json:"tookMs,omitempty"`
	Error  string     `json:"error,omitempty"`
	At     time.Time  `json:"at"`
}

// errorClass reduces a regeneration error to one of the Error* classes.
func errorClass(err error) string {
	switch {
	case errors.Is(err, isr.ErrTimeout):
		return ErrorTimeout
	case errors.Is(err, isr.ErrNotFound):
		return ErrorNotFound
	default:
		return ErrorFailed
	}
}

// Config configures a Hub.
type Config struct {
	// Secret must be presented as "Authorization: Bearer <secret>" to
	// subscribe. With no secret every subscription is refused.
	Secret string

	// SendBuffer is the per-client queue length. Events for a client with a
	// full queue are dropped.
	SendBuffer int

	WriteTimeout time.Duration
	PingInterval time.Duration

	// CheckOrigin is passed to the websocket upgrader. Nil accepts
	// same-origin requests only.
	CheckOrigin func(r *http.Request) bool

	Logger *slog.Logger
}

// DefaultConfig returns the default hub configuration.
func DefaultConfig() Config {
	return Config{
		SendBuffer:   64,
		WriteTimeout: 10 * time.Second,
		PingInterval: 30 * time.Second,
		Logger:       slog.Default(),
	}
}

// Hub streams cache events to WebSocket clients. It implements
// isr.Observer; register it with isr.WithObserver or Cache.AddObserver.
type Hub struct {
	config   Config
	upgrader websocket.Upgrader
	now      func() time.Time

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// NewHub creates a hub.
func NewHub(config Config) *Hub {
	defaults := DefaultConfig()
	if config.SendBuffer <= 0 {
		config.SendBuffer = defaults.SendBuffer
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}
	if config.PingInterval <= 0 {
		config.PingInterval = defaults.PingInterval
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}
	return &Hub{
		config:   config,
		upgrader: websocket.Upgrader{CheckOrigin: config.CheckOrigin},
		now:      time.Now,
		clients:  make(map[*client]struct{}),
	}
}

// Served implements isr.Observer.
func (h *Hub) Served(key string, status isr.Status) {
	h.Publish(Event{Type: EventServed, Key: key, Status: status, At: h.now()})
}

// Regenerated implements isr.Observer.
func (h *Hub) Regenerated(key string, took time.Duration, err error) {
	ev := Event{Type: EventRegenerated, Key: key, TookMS: took.Milliseconds(), At: h.now()}
	if err != nil {
		ev.Error = errorClass(err)
		h.config.Logger.Debug("inspect: regeneration failed", "key", key, "class", ev.Error, "error", err)
	}
	h.Publish(ev)
}

// Publish sends ev to every connected client without blocking.
func (h *Hub) Publish(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.config.Logger.Error("inspect: encode event", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// authorized reports whether r carries the hub secret as a bearer token.
func (h *Hub) authorized(r *http.Request) bool {
	if h.config.Secret == "" {
		return false
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(token), []byte(h.config.Secret)) == 1
}

// ServeHTTP upgrades the request and streams events until the client
// disconnects or the hub is closed. Requests without the secret get 401.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		w.Header().Set("WWW-Authenticate", `Bearer realm="verdant-events"`)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.config.Logger.Warn("inspect: websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, h.config.SendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		c.close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.readLoop(c)
	h.writeLoop(c)

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// readLoop discards client messages and notices disconnects.
func (h *Hub) readLoop(c *client) {
	defer c.close()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()
	defer c.close()

	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}
