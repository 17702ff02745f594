package api

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"bistro/server/internal/metrics"
	"bistro/server/internal/models"
)

const writeWait = 5 * time.Second

// Hub fans ledger change messages out to connected WebSocket readers
// (kitchen screens, back-office dashboards).
type Hub struct {
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
	mutex     sync.RWMutex
	metrics   *metrics.Metrics
}

func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, 256),
		metrics:   m,
	}
}

// Run delivers queued messages until ctx is cancelled, then closes every
// connection.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case msg := <-h.broadcast:
			h.deliver(msg)
		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

func (h *Hub) deliver(msg []byte) {
	var failed []*websocket.Conn
	h.mutex.RLock()
	for client := range h.clients {
		_ = client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteMessage(websocket.TextMessage, msg); err != nil {
			failed = append(failed, client)
		}
	}
	h.mutex.RUnlock()
	for _, client := range failed {
		h.RemoveClient(client)
	}
}

func (h *Hub) AddClient(conn *websocket.Conn) {
	h.mutex.Lock()
	h.clients[conn] = true
	n := len(h.clients)
	h.mutex.Unlock()
	h.metrics.SetWebSocketClients(n)
}

func (h *Hub) RemoveClient(conn *websocket.Conn) {
	h.mutex.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
	n := len(h.clients)
	h.mutex.Unlock()
	h.metrics.SetWebSocketClients(n)
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	for conn := range h.clients {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		conn.Close()
		delete(h.clients, conn)
	}
	h.mutex.Unlock()
	h.metrics.SetWebSocketClients(0)
}

// BroadcastMessage queues message for every client. A full queue drops the
// message rather than block the caller.
func (h *Hub) BroadcastMessage(message []byte) bool {
	select {
	case h.broadcast <- message:
		return true
	default:
		log.Println("⚠️ WebSocket broadcast queue full, message dropped")
		return false
	}
}

func (h *Hub) GetClientsCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// HubNotifier feeds ledger events straight into a Hub. It is used when no
// Kafka stream sits between the services and the hub.
type HubNotifier struct {
	Hub *Hub
}

func (n HubNotifier) Notify(_ context.Context, event models.LedgerEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("⚠️ Encoding %s for WebSocket failed: %v", event.Type, err)
		return
	}
	n.Hub.BroadcastMessage(payload)
}
