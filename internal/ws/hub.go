// Package ws pushes job-progress updates to connected WebSocket clients so
// dashboards can track processing without polling.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Amrutha-adapa/Ai-project-STMS/internal/monitoring"
	"github.com/Amrutha-adapa/Ai-project-STMS/internal/state"
)

const writeTimeout = 10 * time.Second

// ProgressHub fans one job-status stream out to every connected client.
type ProgressHub struct {
	mu       sync.RWMutex
	clients  map[*websocket.Conn]bool
	upgrader websocket.Upgrader
}

// NewProgressHub returns an empty hub.
func NewProgressHub() *ProgressHub {
	return &ProgressHub{
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request and sends an immediate snapshot so a client
// connecting mid-job sees the current progress, then holds the connection
// open for broadcasts until the peer goes away.
func (h *ProgressHub) ServeHTTP(w http.ResponseWriter, r *http.Request, snapshot state.Job) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		monitoring.Logf("websocket upgrade failed: %v", err)
		return
	}

	// Snapshot goes out before the conn joins the broadcast set, so the
	// initial write never interleaves with a broadcast write.
	if data, err := json.Marshal(snapshot); err == nil {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		_ = conn.WriteMessage(websocket.TextMessage, data)
	}
	h.register(conn)

	// Reads only serve to detect disconnects; clients never send payloads.
	go func() {
		defer func() {
			h.unregister(conn)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast sends a job snapshot to every connected client. Write failures
// evict the client.
func (h *ProgressHub) Broadcast(job state.Job) {
	if h.ClientCount() == 0 {
		return
	}
	data, err := json.Marshal(job)
	if err != nil {
		monitoring.Logf("failed to marshal progress update: %v", err)
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			monitoring.Logf("dropping websocket client: %v", err)
			h.unregister(conn)
			conn.Close()
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *ProgressHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *ProgressHub) register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
	monitoring.Logf("websocket client connected (total: %d)", len(h.clients))
}

func (h *ProgressHub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[conn] {
		delete(h.clients, conn)
		monitoring.Logf("websocket client disconnected (total: %d)", len(h.clients))
	}
}
