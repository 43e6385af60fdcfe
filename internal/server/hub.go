package server

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"cybersentinel/internal/logger"
	"cybersentinel/internal/view"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

// Hub fans view events out to websocket clients. It keeps the latest event
// per target so a new client starts from the current dashboard.
type Hub struct {
	mu       sync.Mutex
	clients  map[*client]struct{}
	targets  map[string]view.Event
	status   *view.Event
	triggers *view.Event
	upgrader websocket.Upgrader
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates an empty hub. allowedOrigins restricts the websocket
// handshake; an empty list accepts any origin.
func NewHub(allowedOrigins []string) *Hub {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		targets: make(map[string]view.Event),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
	}
}

// Emit records e and broadcasts it.
func (h *Hub) Emit(e view.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	switch e.Type {
	case view.EventStatus:
		h.status = &e
	case view.EventTriggers:
		h.triggers = &e
	case view.EventDestroy:
		if cur, ok := h.targets[e.Target]; ok && cur.Type == view.EventChart && cur.Handle == e.Handle {
			delete(h.targets, e.Target)
		}
	default:
		h.targets[e.Target] = e
	}

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			logger.Warnf("Websocket client %s too slow; disconnecting", c.conn.RemoteAddr())
			h.dropLocked(c)
		}
	}
	return nil
}

// Snapshot returns the retained events in replay order: trigger state,
// status, then targets by id.
func (h *Hub) Snapshot() []view.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshotLocked()
}

func (h *Hub) snapshotLocked() []view.Event {
	out := make([]view.Event, 0, len(h.targets)+2)
	if h.triggers != nil {
		out = append(out, *h.triggers)
	}
	if h.status != nil {
		out = append(out, *h.status)
	}
	ids := make([]string, 0, len(h.targets))
	for id := range h.targets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		out = append(out, h.targets[id])
	}
	return out
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeWS upgrades the request and streams events until the client goes
// away. Text frames from the client are passed to onMessage.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, onMessage func([]byte)) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("Failed to upgrade websocket from %s: %v", r.RemoteAddr, err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	for _, e := range h.snapshotLocked() {
		data, err := json.Marshal(e)
		if err != nil {
			continue
		}
		select {
		case c.send <- data:
		default:
		}
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	logger.Infof("Websocket client connected: %s", conn.RemoteAddr())
	go h.writePump(c)
	h.readPump(c, onMessage)
}

func (h *Hub) readPump(c *client, onMessage func([]byte)) {
	defer func() {
		h.mu.Lock()
		h.dropLocked(c)
		h.mu.Unlock()
		logger.Infof("Websocket client disconnected: %s", c.conn.RemoteAddr())
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warnf("Websocket read error: %v", err)
			}
			return
		}
		if kind == websocket.TextMessage && onMessage != nil {
			onMessage(msg)
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

// dropLocked unregisters c and closes its send channel once.
func (h *Hub) dropLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.dropLocked(c)
	}
}
