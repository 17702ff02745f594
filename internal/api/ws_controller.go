package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	// Readers are internal screens on the restaurant network.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ServeLedgerWS upgrades the request and registers the connection with hub.
// The connection is read-only for the client; incoming frames are discarded.
// GET /ws/ledger
func ServeLedgerWS(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("⚠️ WebSocket upgrade failed: %v", err)
			return
		}

		hub.AddClient(conn)
		log.Printf("📱 Ledger reader connected. Total: %d", hub.GetClientsCount())
		defer func() {
			hub.RemoveClient(conn)
			log.Printf("📱 Ledger reader disconnected. Remaining: %d", hub.GetClientsCount())
		}()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("⚠️ WebSocket error: %v", err)
				}
				return
			}
		}
	}
}
