package livefeed

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// GroupIDParam is the chi route parameter naming the watched group.
const GroupIDParam = "groupID"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The feed is read-only and carries no credentials.
	CheckOrigin: func(*http.Request) bool { return true },
}

// ServeWS upgrades the request and subscribes the connection to its group.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, GroupIDParam)
	if groupID == "" {
		http.Error(w, "group id required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Live feed upgrade failed", "group_id", groupID, "error", err)
		return
	}

	c := newClient(h, conn, groupID)
	if !h.join(c) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
		conn.Close()
		return
	}
	h.logger.Debug("Live feed client joined", "group_id", groupID)

	go c.writePump()
	go c.readPump()
}
