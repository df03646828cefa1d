package notify

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"assistanthub/internal/assistanthub/reminder"
)

// Event is the JSON frame pushed to websocket clients.
type Event struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	ID        string `json:"id,omitempty"`
	Task      string `json:"task,omitempty"`
	FireAt    string `json:"fire_at,omitempty"`
	Speaker   string `json:"speaker,omitempty"`
	Text      string `json:"text,omitempty"`
}

const writeTimeout = 10 * time.Second

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// Hub tracks websocket connections per session. It is the desktop
// notification sink for reminders.
type Hub struct {
	LogPrefix string

	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
}

func NewHub(logPrefix string) *Hub {
	return &Hub{LogPrefix: logPrefix, clients: map[string]map[*client]struct{}{}}
}

// Attach registers conn for sessionID and returns the function that removes it.
func (h *Hub) Attach(sessionID string, conn *websocket.Conn) (detach func()) {
	sessionID = strings.TrimSpace(sessionID)
	c := &client{conn: conn}
	h.mu.Lock()
	set := h.clients[sessionID]
	if set == nil {
		set = map[*client]struct{}{}
		h.clients[sessionID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		if set := h.clients[sessionID]; set != nil {
			delete(set, c)
			if len(set) == 0 {
				delete(h.clients, sessionID)
			}
		}
		h.mu.Unlock()
	}
}

// Connected reports how many sockets are attached to sessionID.
func (h *Hub) Connected(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[strings.TrimSpace(sessionID)])
}

// Send writes ev to every socket of sessionID and returns the delivered count.
func (h *Hub) Send(sessionID string, ev Event) int {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients[sessionID]))
	for c := range h.clients[sessionID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range targets {
		if err := c.writeJSON(ev); err != nil {
			log.Printf("%s ws write failed: session=%s err=%v", h.LogPrefix, sessionID, err)
			continue
		}
		sent++
	}
	return sent
}

// Notify pushes a fired reminder to the owning session's sockets.
// A session with no open socket is not an error.
func (h *Hub) Notify(_ context.Context, r reminder.Reminder) error {
	n := h.Send(r.SessionID, Event{
		Type:      "reminder",
		SessionID: r.SessionID,
		ID:        r.ID,
		Task:      r.Task,
		FireAt:    r.FireAt.Format(time.RFC3339),
		Text:      "Reminder: " + r.Task,
	})
	if n == 0 {
		log.Printf("%s reminder has no open socket: id=%s session=%s", h.LogPrefix, r.ID, r.SessionID)
	}
	return nil
}
