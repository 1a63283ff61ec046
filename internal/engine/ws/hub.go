package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/radieske/parimutuel-engine/internal/engine/service"
)

// Hub manages websocket connections and per-round odds subscriptions.
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	// roundID -> set of connections
	subs map[string]map[*websocket.Conn]struct{}
}

func NewHub(allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		subs:     make(map[string]map[*websocket.Conn]struct{}),
	}
}

// HandleWS owns one connection's lifecycle. A client may subscribe to any
// number of rounds; subscriptions die with the connection.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "subscribe":
			h.mu.Lock()
			if _, ok := h.subs[msg.RoundID]; !ok {
				h.subs[msg.RoundID] = make(map[*websocket.Conn]struct{})
			}
			h.subs[msg.RoundID][conn] = struct{}{}
			h.mu.Unlock()
		case "unsubscribe":
			h.mu.Lock()
			if m, ok := h.subs[msg.RoundID]; ok {
				delete(m, conn)
				if len(m) == 0 {
					delete(h.subs, msg.RoundID)
				}
			}
			h.mu.Unlock()
		case "ping":
			_ = conn.WriteJSON(map[string]string{"type": "pong"})
		}
	}

	h.mu.Lock()
	for _, set := range h.subs {
		delete(set, conn)
	}
	h.mu.Unlock()
}

// Broadcast pushes an odds snapshot to every client subscribed to its round.
func (h *Hub) Broadcast(snap service.OddsSnapshot) {
	h.mu.RLock()
	conns := h.subs[snap.RoundID]
	h.mu.RUnlock()
	if len(conns) == 0 {
		return
	}

	b, _ := json.Marshal(snap)
	for c := range conns {
		_ = c.WriteMessage(websocket.TextMessage, b)
	}
}
