// Package httpapi exposes the assistant over JSON endpoints and a websocket.
//
//	GET    /api/captcha                    -> arithmetic captcha
//	POST   /api/signup                     -> create account
//	POST   /api/login                      -> second-factor challenge
//	POST   /api/login/verify               -> bearer token
//	POST   /api/logout
//	GET    /api/bots                       -> bot profiles
//	POST   /api/sessions                   -> new session with greeting
//	POST   /api/sessions/{id}/messages     -> routed reply
//	DELETE /api/sessions/{id}/messages     -> reset transcript
//	GET    /api/sessions/{id}/transcript
//	PATCH  /api/sessions/{id}              -> read-aloud toggle
//	POST   /api/sessions/{id}/audio        -> speech to text
//	POST   /api/sessions/{id}/image        -> image to text
//	GET    /api/reminders?session=
//	DELETE /api/reminders/{id}
//	GET    /ws?session=
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"assistanthub/internal/assistanthub/auth"
	"assistanthub/internal/assistanthub/conversation"
	"assistanthub/internal/assistanthub/notify"
	"assistanthub/internal/assistanthub/reminder"
	"assistanthub/internal/assistanthub/router"
)

const defaultMaxUploadBytes = 10 << 20

type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio []byte) (string, error)
}

type ImageReader interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

type Reminders interface {
	Pending(sessionID string) []reminder.Reminder
	Cancel(id string) error
}

// Options wires the server. Accounts, Reminders, Hub, Transcriber and Images
// are optional; a nil Accounts leaves the session endpoints open.
type Options struct {
	Router      *router.Router
	Sessions    *conversation.Store
	Accounts    *auth.Accounts
	Reminders   Reminders
	Hub         *notify.Hub
	Transcriber Transcriber
	Images      ImageReader

	MaxUploadBytes int64
	LogPrefix      string
}

func (o Options) withDefaults() Options {
	if o.Router == nil {
		o.Router = router.New(router.Deps{LogPrefix: o.LogPrefix})
	}
	if o.Sessions == nil {
		o.Sessions = conversation.NewStore()
	}
	if o.Hub == nil {
		o.Hub = notify.NewHub(o.LogPrefix)
	}
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = defaultMaxUploadBytes
	}
	return o
}

type Server struct {
	opts     Options
	upgrader websocket.Upgrader
}

// New returns an http.Handler with routes bound.
func New(opts Options) http.Handler {
	s := &Server{
		opts: opts.withDefaults(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/captcha", s.handleCaptcha)
	mux.HandleFunc("POST /api/signup", s.handleSignUp)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/login/verify", s.handleVerify)
	mux.HandleFunc("POST /api/logout", s.handleLogout)
	mux.HandleFunc("GET /api/bots", s.handleBots)

	mux.Handle("POST /api/sessions", s.authed(s.handleCreateSession))
	mux.Handle("POST /api/sessions/{id}/messages", s.authed(s.handlePostMessage))
	mux.Handle("DELETE /api/sessions/{id}/messages", s.authed(s.handleResetSession))
	mux.Handle("GET /api/sessions/{id}/transcript", s.authed(s.handleTranscript))
	mux.Handle("PATCH /api/sessions/{id}", s.authed(s.handleUpdateSession))
	mux.Handle("POST /api/sessions/{id}/audio", s.authed(s.handleAudio))
	mux.Handle("POST /api/sessions/{id}/image", s.authed(s.handleImage))
	mux.Handle("GET /api/reminders", s.authed(s.handleListReminders))
	mux.Handle("DELETE /api/reminders/{id}", s.authed(s.handleCancelReminder))
	mux.Handle("GET /ws", s.authed(s.handleWS))

	return mux
}

type apiResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// encode writes the unified JSON envelope.
func encode(w http.ResponseWriter, code int, data any, err error) {
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		if code == 0 {
			code = http.StatusInternalServerError
		}
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(apiResponse{Status: "ERROR", Message: err.Error()})
		return
	}
	if code == 0 {
		code = http.StatusOK
	}
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(apiResponse{Status: "OK", Data: data})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

type userKey struct{}

// authed rejects requests without a valid bearer token when accounts are configured
// and records the caller's username on the request context.
// Websocket clients pass the token as a query parameter.
func (s *Server) authed(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.Accounts != nil {
			user, ok := s.opts.Accounts.User(bearerToken(r))
			if !ok {
				encode(w, http.StatusUnauthorized, nil, errors.New("login required"))
				return
			}
			r = r.WithContext(context.WithValue(r.Context(), userKey{}, user))
		}
		next(w, r)
	})
}

// caller returns the authenticated username, empty when accounts are off.
func caller(r *http.Request) string {
	u, _ := r.Context().Value(userKey{}).(string)
	return u
}

// owns reports whether the caller may see a resource owned by owner.
func (s *Server) owns(r *http.Request, owner string) bool {
	return s.opts.Accounts == nil || owner == caller(r)
}

// session resolves id for the caller. Sessions of other accounts read as missing.
func (s *Server) session(w http.ResponseWriter, r *http.Request, id string) (*conversation.Session, bool) {
	sess, err := s.opts.Sessions.Get(id)
	if err == nil && !s.owns(r, sess.Owner) {
		err = conversation.ErrSessionNotFound
	}
	if err != nil {
		encode(w, http.StatusNotFound, nil, err)
		return nil, false
	}
	return sess, true
}
