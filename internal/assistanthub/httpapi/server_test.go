package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assistanthub/internal/assistanthub/auth"
	"assistanthub/internal/assistanthub/conversation"
	"assistanthub/internal/assistanthub/notify"
	"assistanthub/internal/assistanthub/reminder"
	"assistanthub/internal/assistanthub/router"
)

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type fakeModel struct{}

func (fakeModel) Complete(context.Context, string) (string, error) { return "", nil }
func (fakeModel) Chat(context.Context, string, []conversation.Turn) (string, error) {
	return "model reply", nil
}
func (fakeModel) ExtractEntity(context.Context, string, string) (string, bool) { return "", false }

type fakeJoke struct{}

func (fakeJoke) Tell(context.Context) (string, error) { return "a joke", nil }

type fakeTranscriber struct{ name string }

func (f *fakeTranscriber) Transcribe(_ context.Context, name string, _ []byte) (string, error) {
	f.name = name
	return "tell me a joke", nil
}

type fakeReminders struct {
	pending   []reminder.Reminder
	cancelled []string
}

func (f *fakeReminders) Pending(sessionID string) []reminder.Reminder {
	var out []reminder.Reminder
	for _, r := range f.pending {
		if sessionID == "" || r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeReminders) Cancel(id string) error {
	for _, r := range f.pending {
		if r.ID == id {
			f.cancelled = append(f.cancelled, id)
			return nil
		}
	}
	return reminder.ErrNotFound
}

func newTestRouter() *router.Router {
	return router.New(router.Deps{
		Model:    fakeModel{},
		Joke:     fakeJoke{},
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC) },
	})
}

func do(t *testing.T, h http.Handler, method, path string, body any, token string) (int, envelope) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func createSession(t *testing.T, h http.Handler, bot, token string) sessionInfo {
	t.Helper()
	code, env := do(t, h, http.MethodPost, "/api/sessions", createSessionRequest{Bot: bot, Name: "Ana"}, token)
	require.Equal(t, http.StatusCreated, code, env.Message)
	var info sessionInfo
	require.NoError(t, json.Unmarshal(env.Data, &info))
	return info
}

func TestSessionLifecycle(t *testing.T) {
	h := New(Options{Router: newTestRouter()})

	info := createSession(t, h, "Vertex", "")
	assert.Equal(t, "vertex", info.Bot)
	assert.Equal(t, "Hi, I am Vertex, your everyday bot. How can I help you today?", info.Greeting)

	code, env := do(t, h, http.MethodPost, "/api/sessions/"+info.ID+"/messages", messageRequest{Text: "tell me a joke"}, "")
	require.Equal(t, http.StatusOK, code)
	var msg messageResponse
	require.NoError(t, json.Unmarshal(env.Data, &msg))
	assert.Equal(t, "a joke", msg.Reply)

	code, env = do(t, h, http.MethodGet, "/api/sessions/"+info.ID+"/transcript", nil, "")
	require.Equal(t, http.StatusOK, code)
	var tr transcriptResponse
	require.NoError(t, json.Unmarshal(env.Data, &tr))
	assert.Equal(t, "Vertex: Hi, I am Vertex, your everyday bot. How can I help you today?\nYou: tell me a joke\nVertex: a joke", tr.Transcript)
	assert.Len(t, tr.Turns, 3)

	code, _ = do(t, h, http.MethodDelete, "/api/sessions/"+info.ID+"/messages", nil, "")
	require.Equal(t, http.StatusOK, code)
	_, env = do(t, h, http.MethodGet, "/api/sessions/"+info.ID+"/transcript", nil, "")
	require.NoError(t, json.Unmarshal(env.Data, &tr))
	assert.Len(t, tr.Turns, 1)

	code, env = do(t, h, http.MethodPatch, "/api/sessions/"+info.ID, map[string]bool{"read_aloud": true}, "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"read_aloud":true}`, string(env.Data))
}

func TestSessionErrors(t *testing.T) {
	h := New(Options{Router: newTestRouter()})

	code, env := do(t, h, http.MethodPost, "/api/sessions", createSessionRequest{Bot: "nova"}, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "ERROR", env.Status)

	code, _ = do(t, h, http.MethodPost, "/api/sessions/missing/messages", messageRequest{Text: "hi"}, "")
	assert.Equal(t, http.StatusNotFound, code)

	info := createSession(t, h, "", "")
	assert.Equal(t, router.DefaultProfile, info.Bot)
}

func TestBots(t *testing.T) {
	h := New(Options{})
	code, env := do(t, h, http.MethodGet, "/api/bots", nil, "")
	require.Equal(t, http.StatusOK, code)
	var bots []router.Profile
	require.NoError(t, json.Unmarshal(env.Data, &bots))
	require.Len(t, bots, 2)
	assert.Equal(t, "astra", bots[0].Name)
	assert.Equal(t, "vertex", bots[1].Name)
}

func TestLoginFlow(t *testing.T) {
	accounts, err := auth.New(auth.Options{SecondFactorCode: "123456"})
	require.NoError(t, err)
	h := New(Options{Router: newTestRouter(), Accounts: accounts})

	code, _ := do(t, h, http.MethodPost, "/api/sessions", createSessionRequest{Bot: "astra"}, "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = do(t, h, http.MethodPost, "/api/signup", credentials{Username: "ana", Password: "pw"}, "")
	require.Equal(t, http.StatusCreated, code)
	code, _ = do(t, h, http.MethodPost, "/api/signup", credentials{Username: "ana", Password: "pw"}, "")
	assert.Equal(t, http.StatusConflict, code)

	_, env := do(t, h, http.MethodGet, "/api/captcha", nil, "")
	var c auth.Captcha
	require.NoError(t, json.Unmarshal(env.Data, &c))
	var x, y int
	_, err = fmt.Sscanf(c.Question, "What is %d + %d?", &x, &y)
	require.NoError(t, err)

	code, env = do(t, h, http.MethodPost, "/api/login", credentials{
		Username: "ana", Password: "pw", CaptchaID: c.ID, CaptchaAnswer: fmt.Sprint(x + y),
	}, "")
	require.Equal(t, http.StatusOK, code, env.Message)
	var ch map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &ch))

	code, _ = do(t, h, http.MethodPost, "/api/login/verify", verifyRequest{Challenge: ch["challenge"], Code: "000000"}, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	code, env = do(t, h, http.MethodPost, "/api/login/verify", verifyRequest{Challenge: ch["challenge"], Code: "123456"}, "")
	require.Equal(t, http.StatusOK, code)
	var res loginResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "ana", res.Username)

	createSession(t, h, "astra", res.Token)

	do(t, h, http.MethodPost, "/api/logout", nil, res.Token)
	code, _ = do(t, h, http.MethodPost, "/api/sessions", createSessionRequest{Bot: "astra"}, res.Token)
	assert.Equal(t, http.StatusUnauthorized, code)
}

// login runs the captcha, password and second-factor steps over HTTP.
func login(t *testing.T, h http.Handler, user, password, code string) string {
	t.Helper()
	_, env := do(t, h, http.MethodGet, "/api/captcha", nil, "")
	var c auth.Captcha
	require.NoError(t, json.Unmarshal(env.Data, &c))
	var x, y int
	_, err := fmt.Sscanf(c.Question, "What is %d + %d?", &x, &y)
	require.NoError(t, err)

	status, env := do(t, h, http.MethodPost, "/api/login", credentials{
		Username: user, Password: password, CaptchaID: c.ID, CaptchaAnswer: fmt.Sprint(x + y),
	}, "")
	require.Equal(t, http.StatusOK, status, env.Message)
	var ch map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &ch))

	status, env = do(t, h, http.MethodPost, "/api/login/verify", verifyRequest{Challenge: ch["challenge"], Code: code}, "")
	require.Equal(t, http.StatusOK, status, env.Message)
	var res loginResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.Equal(t, user, res.Username)
	return res.Token
}

func TestSessionsAndRemindersScopedToAccount(t *testing.T) {
	accounts, err := auth.New(auth.Options{SecondFactorCode: "123456"})
	require.NoError(t, err)
	require.NoError(t, accounts.SignUp("alice", "pw-a"))
	require.NoError(t, accounts.SignUp("bob", "pw-b"))
	rems := &fakeReminders{}
	h := New(Options{Router: newTestRouter(), Accounts: accounts, Reminders: rems})

	alice := login(t, h, "alice", "pw-a", "123456")
	bob := login(t, h, "bob", "pw-b", "123456")
	sess := createSession(t, h, "astra", alice)

	code, _ := do(t, h, http.MethodPost, "/api/sessions/"+sess.ID+"/messages", messageRequest{Text: "hello"}, bob)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = do(t, h, http.MethodGet, "/api/sessions/"+sess.ID+"/transcript", nil, bob)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = do(t, h, http.MethodDelete, "/api/sessions/"+sess.ID+"/messages", nil, bob)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = do(t, h, http.MethodGet, "/api/sessions/"+sess.ID+"/transcript", nil, alice)
	assert.Equal(t, http.StatusOK, code)

	rems.pending = []reminder.Reminder{
		{ID: "r-alice", Task: "call mom", SessionID: sess.ID, Owner: "alice"},
		{ID: "r-bob", Task: "water plants", SessionID: "other", Owner: "bob"},
	}
	code, env := do(t, h, http.MethodGet, "/api/reminders", nil, bob)
	require.Equal(t, http.StatusOK, code)
	var list []reminderInfo
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "r-bob", list[0].ID)

	code, env = do(t, h, http.MethodGet, "/api/reminders?session="+sess.ID, nil, bob)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Empty(t, list)

	code, _ = do(t, h, http.MethodDelete, "/api/reminders/r-alice", nil, bob)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Empty(t, rems.cancelled)

	code, _ = do(t, h, http.MethodDelete, "/api/reminders/r-alice", nil, alice)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"r-alice"}, rems.cancelled)
}

func TestLoginRejectsWrongCaptcha(t *testing.T) {
	accounts, err := auth.New(auth.Options{SecondFactorCode: "1"})
	require.NoError(t, err)
	h := New(Options{Accounts: accounts})
	require.NoError(t, accounts.SignUp("ana", "pw"))

	c := accounts.NewCaptcha()
	code, env := do(t, h, http.MethodPost, "/api/login", credentials{Username: "ana", Password: "pw", CaptchaID: c.ID, CaptchaAnswer: "-1"}, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, auth.ErrCaptcha.Error(), env.Message)
}

func TestAudioThenTranscriptMessage(t *testing.T) {
	tr := &fakeTranscriber{}
	h := New(Options{Router: newTestRouter(), Transcriber: tr})
	info := createSession(t, h, "vertex", "")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "clip.wav")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("RIFF"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+info.ID+"/audio", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"transcript":"tell me a joke"`)
	assert.Equal(t, "clip.wav", tr.name)

	code, env := do(t, h, http.MethodPost, "/api/sessions/"+info.ID+"/messages", messageRequest{UseTranscript: true}, "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"reply":"a joke"`)
}

func TestUploadsWithoutBackends(t *testing.T) {
	h := New(Options{Router: newTestRouter()})
	info := createSession(t, h, "astra", "")
	code, _ := do(t, h, http.MethodPost, "/api/sessions/"+info.ID+"/image", nil, "")
	assert.Equal(t, http.StatusNotImplemented, code)
}

func TestReminders(t *testing.T) {
	at := time.Date(2026, 10, 17, 18, 30, 0, 0, time.UTC)
	rems := &fakeReminders{pending: []reminder.Reminder{
		{ID: "r1", Task: "call mom", FireAt: at, SessionID: "s1", Recurrence: reminder.Weekly},
		{ID: "r2", Task: "stretch", FireAt: at, SessionID: "s2"},
	}}
	h := New(Options{Reminders: rems})

	code, env := do(t, h, http.MethodGet, "/api/reminders?session=s1", nil, "")
	require.Equal(t, http.StatusOK, code)
	var list []reminderInfo
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "call mom", list[0].Task)
	assert.Equal(t, "weekly", list[0].Recurrence)

	code, _ = do(t, h, http.MethodDelete, "/api/reminders/r2", nil, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"r2"}, rems.cancelled)
	code, _ = do(t, h, http.MethodDelete, "/api/reminders/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestWebsocketChatAndReminder(t *testing.T) {
	hub := notify.NewHub("")
	sessions := conversation.NewStore()
	srv := httptest.NewServer(New(Options{Router: newTestRouter(), Sessions: sessions, Hub: hub}))
	defer srv.Close()

	sess := sessions.Create("astra", "Ana", "")
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?session=" + sess.ID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(wsMessage{Text: "what time is it"}))
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ev notify.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "message", ev.Type)
	assert.Equal(t, "The current time is 09:30:00", ev.Text)
	assert.Equal(t, 2, sess.Log.Len())

	require.NoError(t, hub.Notify(context.Background(), reminder.Reminder{ID: "r1", Task: "call mom", SessionID: sess.ID}))
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "reminder", ev.Type)
	assert.Equal(t, "call mom", ev.Task)
}

func TestWebsocketUnknownSession(t *testing.T) {
	h := New(Options{})
	code, _ := do(t, h, http.MethodGet, "/ws?session=missing", nil, "")
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = do(t, h, http.MethodGet, "/ws", nil, "")
	assert.Equal(t, http.StatusBadRequest, code)
}
