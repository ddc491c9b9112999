package server

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"dare-wheel/internal/game"
	"dare-wheel/internal/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// hub relays store change events to the websocket clients of each room.
// It is a pure fan-out: clients never write game state over the socket,
// they use the command API and watch the feed converge. Change events
// arrive on whichever goroutine committed the write, and gorilla allows a
// single concurrent writer per connection, so each connection carries its
// own write lock.
type hub struct {
	log    *zap.SugaredLogger
	mu     sync.Mutex
	groups map[string]map[*websocket.Conn]*sync.Mutex
}

func newHub(log *zap.SugaredLogger) *hub {
	return &hub{
		log:    log,
		groups: make(map[string]map[*websocket.Conn]*sync.Mutex),
	}
}

func (h *hub) add(roomID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[roomID]
	if group == nil {
		group = make(map[*websocket.Conn]*sync.Mutex)
		h.groups[roomID] = group
	}
	group[conn] = &sync.Mutex{}
}

func (h *hub) remove(roomID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[roomID]
	if group == nil {
		return
	}
	delete(group, conn)
	_ = conn.Close()
	if len(group) == 0 {
		delete(h.groups, roomID)
	}
}

type changeMessage struct {
	Table string `json:"table"`
	Type  string `json:"type"`
	ID    string `json:"id"`
	New   any    `json:"new,omitempty"`
	Old   any    `json:"old,omitempty"`
}

// relay is registered as a broadcaster sink. It routes each change to the
// room it belongs to.
func (h *hub) relay(change store.Change) {
	roomID := changeRoomID(change)
	if roomID == "" {
		return
	}
	message := changeMessage{
		Table: change.Table,
		Type:  string(change.Type),
		ID:    change.ID,
		New:   change.New,
		Old:   change.Old,
	}

	h.mu.Lock()
	conns := make(map[*websocket.Conn]*sync.Mutex, len(h.groups[roomID]))
	for conn, writeMu := range h.groups[roomID] {
		conns[conn] = writeMu
	}
	h.mu.Unlock()

	for conn, writeMu := range conns {
		writeMu.Lock()
		err := conn.WriteJSON(message)
		writeMu.Unlock()
		if err != nil {
			h.remove(roomID, conn)
		}
	}
}

func changeRoomID(change store.Change) string {
	rec := change.New
	if rec == nil {
		rec = change.Old
	}
	switch v := rec.(type) {
	case game.Room:
		return v.ID
	case game.Player:
		return v.RoomID
	case game.ActionItem:
		return v.RoomID
	case game.GameState:
		return v.RoomID
	default:
		return ""
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	if _, err := s.engine.Snapshot(roomID); err != nil {
		writeGameError(w, err)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("websocket upgrade failed", "room", roomID, "err", err)
		return
	}
	s.hub.add(roomID, conn)
	go func() {
		defer s.hub.remove(roomID, conn)
		for {
			// Drain and discard; the socket is server-push only.
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
