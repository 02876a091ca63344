// Package ws fans events out to connected clients. Each client joins its
// per-user room and optionally one per-exchange room; delivery is best-effort,
// slow clients are dropped rather than blocking the sender.
package ws

import (
	"encoding/json"
	"fmt"
	"sync"
)

func UserRoom(userID int64) string     { return fmt.Sprintf("user_%d", userID) }
func ExchangeRoom(exchID int64) string { return fmt.Sprintf("exchange_%d", exchID) }

type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Client]bool)}
}

func (h *Hub) Join(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][c] = true
}

func (h *Hub) Leave(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m := h.rooms[room]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Broadcast sends an event envelope to every client in the room. Fire and
// forget: marshal or send failures never surface to the caller.
func (h *Hub) Broadcast(room, event string, payload any) {
	b, err := json.Marshal(map[string]any{"event": event, "data": payload})
	if err != nil {
		return
	}
	h.mu.RLock()
	conns := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	for _, c := range conns {
		if !c.trySend(b) {
			go c.Close()
		}
	}
}
