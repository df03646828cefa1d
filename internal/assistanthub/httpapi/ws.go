package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"assistanthub/internal/assistanthub/conversation"
	"assistanthub/internal/assistanthub/notify"
)

const wsReadLimit = 64 << 10

type wsMessage struct {
	Text string `json:"text"`
}

// handleWS attaches a socket to a session. Text frames are routed like
// POST messages; replies and fired reminders are pushed back as events.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("session"))
	if id == "" {
		encode(w, http.StatusBadRequest, nil, errors.New("session is required"))
		return
	}
	sess, ok := s.session(w, r, id)
	if !ok {
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("%s ws upgrade failed: session=%s err=%v", s.opts.LogPrefix, id, err)
		return
	}
	defer conn.Close()
	detach := s.opts.Hub.Attach(sess.ID, conn)
	defer detach()
	log.Printf("%s ws connected: session=%s", s.opts.LogPrefix, sess.ID)

	conn.SetReadLimit(wsReadLimit)
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("%s ws read failed: session=%s err=%v", s.opts.LogPrefix, sess.ID, err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.opts.Hub.Send(sess.ID, notify.Event{Type: "error", SessionID: sess.ID, Text: "invalid message"})
			continue
		}
		reply := s.opts.Router.Handle(r.Context(), sess, msg.Text)
		s.opts.Hub.Send(sess.ID, notify.Event{
			Type:      "message",
			SessionID: sess.ID,
			Speaker:   string(conversation.SpeakerBot),
			Text:      reply,
		})
	}
}
