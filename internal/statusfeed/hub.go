// Package statusfeed streams navigation status and events to websocket observers.
// The feed is read-only: messages from clients are ignored.
package statusfeed

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"voxelnav/internal/session"
)

const (
	clientBuffer = 32
	writeTimeout = 5 * time.Second
	readTimeout  = 60 * time.Second
)

// Message is the envelope sent to observers.
type Message struct {
	Type   string          `json:"type"`
	Status *session.Status `json:"status,omitempty"`
	Event  *session.Event  `json:"event,omitempty"`
}

type Hub struct {
	logger   *log.Logger
	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	mu      sync.Mutex
	clients map[uint64]chan []byte
	last    *session.Status
	dropped uint64
}

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.New(log.Writer(), "statusfeed ", log.LstdFlags|log.Lmicroseconds)
	}
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[uint64]chan []byte),
	}
}

// Publish broadcasts status when it differs from the last published one.
func (h *Hub) Publish(status session.Status) {
	h.mu.Lock()
	if h.last != nil && *h.last == status {
		h.mu.Unlock()
		return
	}
	h.last = &status
	h.mu.Unlock()
	h.broadcast(Message{Type: "status", Status: &status})
}

// Observe forwards session events.
func (h *Hub) Observe(e session.Event) {
	h.broadcast(Message{Type: "event", Event: &e})
}

// Clients reports the number of connected observers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped reports messages skipped because an observer fell behind.
func (h *Hub) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

func (h *Hub) broadcast(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Printf("encode %s message: %v", msg.Type, err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, out := range h.clients {
		select {
		case out <- payload:
		default:
			h.dropped++
		}
	}
}

func (h *Hub) register() (uint64, chan []byte) {
	id := h.nextID.Add(1)
	out := make(chan []byte, clientBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last != nil {
		if payload, err := json.Marshal(Message{Type: "status", Status: h.last}); err == nil {
			out <- payload
		}
	}
	h.clients[id] = out
	return id, out
}

func (h *Hub) unregister(id uint64) {
	h.mu.Lock()
	delete(h.clients, id)
	h.mu.Unlock()
}

// Handler upgrades the request and streams messages until the client disconnects.
// A new observer first receives the latest status, if any.
func (h *Hub) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			h.logger.Printf("upgrade %s: %v", r.RemoteAddr, err)
			return
		}
		defer conn.Close()

		id, out := h.register()
		defer h.unregister(id)

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-done:
				return
			case payload := <-out:
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					h.logger.Printf("observer %d write: %v", id, err)
					return
				}
			}
		}
	}
}
