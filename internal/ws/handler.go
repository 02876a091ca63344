package ws

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"skillswap/internal/middleware"
)

// ParticipantChecker reports whether a user is a party to an exchange.
type ParticipantChecker interface {
	IsParticipant(ctx context.Context, exchangeID, userID int64) (bool, error)
}

// Handler upgrades authenticated connections and joins them to their rooms.
type Handler struct {
	hub       *Hub
	jwtSecret []byte
	exchanges ParticipantChecker
	upgrader  websocket.Upgrader
}

func NewHandler(hub *Hub, jwtSecret []byte, exchanges ParticipantChecker, allowedOrigins []string) *Handler {
	return &Handler{
		hub:       hub,
		jwtSecret: jwtSecret,
		exchanges: exchanges,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker admits the same origins the CORS layer does. Requests without
// an Origin header (non-browser clients) pass.
func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			set[o] = true
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return set[strings.TrimRight(origin, "/")]
	}
}

// ServeHTTP upgrades the connection and joins the caller's user room, plus the
// exchange room when exchange_id is given and the caller is a participant.
// Browsers cannot set headers on websocket upgrades, so the JWT rides in a
// query param.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.ParseToken(r.URL.Query().Get("token"), h.jwtSecret)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	rooms := []string{UserRoom(userID)}
	if raw := r.URL.Query().Get("exchange_id"); raw != "" {
		exchID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid exchange_id", http.StatusBadRequest)
			return
		}
		ok, err := h.exchanges.IsParticipant(r.Context(), exchID, userID)
		if err != nil || !ok {
			http.Error(w, "not a participant", http.StatusForbidden)
			return
		}
		rooms = append(rooms, ExchangeRoom(exchID))
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := newClient(h.hub, rooms, conn)
	for _, room := range rooms {
		h.hub.Join(room, c)
	}
	go c.writePump()
	go c.readPump()
}
