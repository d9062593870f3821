package handlers

import (
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"rich-edit/pkg/imagestore"
	"rich-edit/pkg/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	// Frames carry base64 images, which grow by a third.
	maxMessageSize = imagestore.MaxFileSize*4/3 + 4096
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket attaches a websocket to an editor session
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]
	query := r.URL.Query()

	username := query.Get("username")
	if username == "" {
		username = "Anonymous"
	}

	s, err := h.sessions.GetOrCreate(r.Context(), sessionID, query.Get("document"))
	if err != nil {
		h.storeError(w, err, "Failed to open session")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade", "error", err)
		return
	}

	client := &session.Client{
		ID:       uuid.New().String(),
		Username: username,
		Role:     session.ParseRole(query.Get("role")),
		Conn:     conn,
		Session:  s,
		Send:     make(chan []byte, 256),
	}

	if err := s.Join(client); err != nil {
		h.log.Warn("join session", "session", sessionID, "error", err)
		conn.Close()
		return
	}

	go h.writePump(client)
	go h.readPump(client)
}

// readPump forwards frames from the websocket into the session
func (h *Handlers) readPump(c *session.Client) {
	defer func() {
		if rec := recover(); rec != nil {
			h.log.Error("panic in readPump", "client", c.ID, "panic", rec, "stack", string(debug.Stack()))
		}
		c.Session.Leave(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn("websocket closed", "client", c.ID, "error", err)
			}
			return
		}
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))

		if err := c.Session.Receive(c, message); errors.Is(err, session.ErrClosed) {
			return
		}
	}
}

// writePump writes queued messages and keeps the connection alive
func (h *Handlers) writePump(c *session.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// session closed the channel
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				h.log.Debug("websocket write", "client", c.ID, "error", err)
				c.Session.Leave(c)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Session.Leave(c)
				return
			}
		}
	}
}
