package distribution

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/appgrid-io/appgrid/core/broadcast"
	"github.com/appgrid-io/appgrid/core/infra/logging"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return isAllowedOrigin(r) },
}

// controlMessage is the inbound client protocol: join and leave rooms on an
// open connection.
type controlMessage struct {
	Action string `json:"action"`
	Room   string `json:"room"`
}

const (
	actionJoin  = "join"
	actionLeave = "leave"
)

// Handler upgrades HTTP requests to websocket connections attached to the
// hub. Initial rooms come from the `rooms` query parameter (comma
// separated); further membership changes arrive as control messages.
func (s *Service) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logging.Info("distribution", "ws connection attempt", "remote", r.RemoteAddr)
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.Error("distribution", "ws upgrade failed", "error", err)
			return
		}
		defer ws.Close()
		logging.Info("distribution", "ws connected", "remote", r.RemoteAddr)

		client := s.hub.Join(parseRooms(r.URL.Query().Get("rooms"))...)
		defer s.hub.Leave(client)

		// Hijacked connections don't reliably cancel the request context,
		// so the reader signals connection loss itself.
		gone := make(chan struct{})
		go s.readLoop(ws, client, gone)

		for {
			select {
			case p, ok := <-client.send:
				if !ok {
					return
				}
				data, err := json.Marshal(p)
				if err != nil {
					logging.Error("distribution", "packet marshal failed", "error", err)
					continue
				}
				if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
					return
				}
			case <-gone:
				return
			case <-r.Context().Done():
				return
			}
		}
	}
}

// readLoop drains inbound control messages until the connection drops,
// then closes gone so the writer exits too.
func (s *Service) readLoop(ws *websocket.Conn, client *Client, gone chan<- struct{}) {
	defer close(gone)
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var msg controlMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logging.Warn("distribution", "bad control message", "error", err)
			continue
		}
		switch msg.Action {
		case actionJoin:
			s.hub.JoinRoom(client, msg.Room)
		case actionLeave:
			s.hub.LeaveRoom(client, msg.Room)
		default:
			logging.Warn("distribution", "unknown control action", "action", msg.Action)
		}
	}
}

func parseRooms(raw string) []string {
	var rooms []string
	for _, part := range strings.Split(raw, ",") {
		if room := strings.TrimSpace(part); room != "" {
			rooms = append(rooms, room)
		}
	}
	return rooms
}

func isAllowedOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		// Non-browser clients often omit Origin; treat as allowed.
		return true
	}
	raw := strings.TrimSpace(os.Getenv("WS_ALLOWED_ORIGINS"))
	if raw == "" || raw == "*" {
		return true
	}
	for _, allowed := range strings.Split(raw, ",") {
		if strings.EqualFold(strings.TrimSpace(allowed), origin) {
			return true
		}
	}
	return false
}

// RoomFor is a convenience for callers building room names the same way
// publishers do.
func RoomFor(tenantID, key string) string {
	return broadcast.Room(tenantID, key)
}
