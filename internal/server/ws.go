package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/ayusman/wakeguard/internal/app"
	"github.com/ayusman/wakeguard/internal/logger"
	"github.com/ayusman/wakeguard/internal/session"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Hub timing and buffering.
const (
	// StatusInterval is the minimum time between status broadcasts.
	StatusInterval = 100 * time.Millisecond
	// WriteTimeout bounds a single websocket write.
	WriteTimeout = time.Second
	hubBuffer    = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Message is a websocket payload.
type Message struct {
	Type      string      `json:"type"`
	Event     string      `json:"event,omitempty"`
	Status    *app.Status `json:"status,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// Hub broadcasts feedback events and status snapshots to websocket clients.
// Notify and Observe never block; messages are dropped when the buffer is full.
type Hub struct {
	log     logrus.FieldLogger
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex

	send chan Message
	done chan struct{}
	once sync.Once

	statusMu   sync.Mutex
	lastStatus time.Time
}

// NewHub creates a hub and starts its broadcast loop.
func NewHub(log logrus.FieldLogger) *Hub {
	if log == nil {
		log = logger.Discard()
	}
	h := &Hub{
		log:     log,
		clients: make(map[*websocket.Conn]bool),
		send:    make(chan Message, hubBuffer),
		done:    make(chan struct{}),
	}
	go h.broadcast()
	return h
}

// Notify queues a feedback event.
func (h *Hub) Notify(ev session.Event) {
	h.enqueue(Message{Type: "event", Event: string(ev), Timestamp: time.Now().UnixMilli()})
}

// Observe queues a status snapshot, at most once per StatusInterval.
func (h *Hub) Observe(s app.Status) {
	now := time.Now()

	h.statusMu.Lock()
	if now.Sub(h.lastStatus) < StatusInterval {
		h.statusMu.Unlock()
		return
	}
	h.lastStatus = now
	h.statusMu.Unlock()

	h.enqueue(Message{Type: "status", Status: &s, Timestamp: now.UnixMilli()})
}

func (h *Hub) enqueue(m Message) {
	select {
	case <-h.done:
		return
	default:
	}

	select {
	case h.send <- m:
	default:
		h.log.WithField("type", m.Type).Debug("Hub buffer full, dropping message")
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Close stops the broadcast loop and disconnects all clients.
func (h *Hub) Close() {
	h.once.Do(func() {
		close(h.done)

		h.mu.Lock()
		for conn := range h.clients {
			conn.Close()
		}
		h.mu.Unlock()
	})
}

// broadcast sends queued messages to all connected clients.
func (h *Hub) broadcast() {
	for {
		select {
		case <-h.done:
			return
		case m := <-h.send:
			msg, err := json.Marshal(m)
			if err != nil {
				h.log.WithError(err).Warn("Failed to encode hub message")
				continue
			}

			h.mu.RLock()
			for conn := range h.clients {
				conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					h.log.WithError(err).Debug("Websocket write failed")
				}
			}
			h.mu.RUnlock()
		}
	}
}
