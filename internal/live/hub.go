// internal/live/hub.go
package live

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/tamzrod/solaredge-bridge/internal/registry"
	"github.com/tamzrod/solaredge-bridge/internal/status"
)

// Event types pushed to websocket clients.
const (
	EventHello   = "hello"
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
	EventStatus  = "status"
)

const (
	// writeWait bounds a single websocket write.
	writeWait = 10 * time.Second

	// sendBuffer is the per-client queue. A client that falls this far
	// behind is dropped.
	sendBuffer = 64
)

// Event is one websocket message.
type Event struct {
	Type       string               `json:"type"`
	ID         int                  `json:"id,omitempty"`
	Name       string               `json:"name,omitempty"`
	Descriptor *registry.Descriptor `json:"descriptor,omitempty"`
	Value      string               `json:"value,omitempty"`
	Status     json.RawMessage      `json:"status,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local dashboards on other ports
	},
}

// client is one websocket subscriber. Only its writer goroutine touches conn
// for writing; everyone else goes through send.
type client struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

// enqueue never blocks. It reports false when the queue is full or closed.
func (c *client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Hub fans registry writes out to websocket clients.
// It implements registry.Listener. Broadcasting never waits on a client.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]bool
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*client]bool)}
}

// ServeHTTP upgrades the request and keeps the client until it goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Debug("websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.add(c)
	go h.writePump(c)

	h.deliver(c, Event{Type: EventHello})

	// Keep connection alive
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.remove(c)
			return
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues ev for every client. Clients whose queue is full are dropped.
func (h *Hub) Broadcast(ev Event) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		log.WithError(err).Error("websocket event encode failed")
		return
	}
	for _, c := range clients {
		if !c.enqueue(payload) {
			log.WithField("remote", c.conn.RemoteAddr().String()).Warn("websocket client too slow, dropping")
			h.remove(c)
		}
	}
}

// BroadcastStatus pushes an engine status snapshot.
func (h *Hub) BroadcastStatus(snap status.Snapshot) {
	body, err := status.Encode(snap)
	if err != nil {
		log.WithError(err).Error("status encode failed")
		return
	}
	h.Broadcast(Event{Type: EventStatus, Status: body})
}

// ---- registry.Listener ----

func (h *Hub) EntryCreated(id int, name string, d registry.Descriptor) {
	h.Broadcast(Event{Type: EventCreated, ID: id, Name: name, Descriptor: &d})
}

func (h *Hub) EntryUpdated(id int, _ registry.Descriptor, value string) {
	h.Broadcast(Event{Type: EventUpdated, ID: id, Value: value})
}

// ---- helpers ----

func (h *Hub) deliver(c *client, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.WithError(err).Error("websocket event encode failed")
		return
	}
	if !c.enqueue(payload) {
		h.remove(c)
	}
}

// writePump drains one client's queue. A write that does not finish within
// writeWait drops the client.
func (h *Hub) writePump(c *client) {
	defer c.conn.Close()

	for payload := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.remove(c)
			return
		}
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

// remove forgets the client and stops its writer, which closes the connection.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.shutdown()
}
