package httpapi

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"assistanthub/internal/assistanthub/conversation"
	"assistanthub/internal/assistanthub/gateway"
	"assistanthub/internal/assistanthub/media"
	"assistanthub/internal/assistanthub/reminder"
	"assistanthub/internal/assistanthub/router"
)

type createSessionRequest struct {
	Bot           string `json:"bot"`
	Name          string `json:"name"`
	NotifyContact string `json:"notify_contact,omitempty"`
}

type sessionInfo struct {
	ID          string    `json:"id"`
	Bot         string    `json:"bot"`
	DisplayName string    `json:"display_name,omitempty"`
	Greeting    string    `json:"greeting"`
	CreatedAt   time.Time `json:"created_at"`
}

type messageRequest struct {
	Text          string `json:"text"`
	UseTranscript bool   `json:"use_transcript,omitempty"`
}

type messageResponse struct {
	Reply     string `json:"reply"`
	ReadAloud bool   `json:"read_aloud"`
}

type transcriptResponse struct {
	Transcript string              `json:"transcript"`
	Turns      []conversation.Turn `json:"turns"`
}

type updateSessionRequest struct {
	ReadAloud *bool `json:"read_aloud"`
}

type reminderInfo struct {
	ID         string    `json:"id"`
	Task       string    `json:"task"`
	FireAt     time.Time `json:"fire_at"`
	Recurrence string    `json:"recurrence,omitempty"`
}

func lastBotText(turns []conversation.Turn) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Speaker == conversation.SpeakerBot {
			return turns[i].Text
		}
	}
	return ""
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var in createSessionRequest
	if err := decode(r, &in); err != nil {
		encode(w, http.StatusBadRequest, nil, err)
		return
	}
	bot := strings.TrimSpace(in.Bot)
	if bot == "" {
		bot = router.DefaultProfile
	}
	p, ok := router.LookupProfile(bot)
	if !ok {
		encode(w, http.StatusBadRequest, nil, fmt.Errorf("unknown bot %q", bot))
		return
	}
	sess := s.opts.Sessions.CreateFor(caller(r), p.Name, in.Name, in.NotifyContact)
	s.opts.Router.Start(sess)
	log.Printf("%s session created: id=%s bot=%s owner=%s", s.opts.LogPrefix, sess.ID, sess.Bot, sess.Owner)
	encode(w, http.StatusCreated, sessionInfo{
		ID:          sess.ID,
		Bot:         sess.Bot,
		DisplayName: sess.DisplayName,
		Greeting:    lastBotText(sess.Log.Turns()),
		CreatedAt:   sess.CreatedAt,
	}, nil)
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r, r.PathValue("id"))
	if !ok {
		return
	}
	var in messageRequest
	if err := decode(r, &in); err != nil {
		encode(w, http.StatusBadRequest, nil, err)
		return
	}
	text := in.Text
	if in.UseTranscript {
		if t := sess.TakePendingTranscript(); t != "" {
			text = t
		}
	}
	reply := s.opts.Router.Handle(r.Context(), sess, text)
	encode(w, http.StatusOK, messageResponse{Reply: reply, ReadAloud: sess.ReadAloud()}, nil)
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r, r.PathValue("id"))
	if !ok {
		return
	}
	s.opts.Router.Reset(sess)
	encode(w, http.StatusOK, map[string]string{"greeting": lastBotText(sess.Log.Turns())}, nil)
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r, r.PathValue("id"))
	if !ok {
		return
	}
	p, _ := router.LookupProfile(sess.Bot)
	turns := sess.Log.Turns()
	visible := make([]conversation.Turn, 0, len(turns))
	for _, t := range turns {
		if t.Speaker != conversation.SpeakerSystem {
			visible = append(visible, t)
		}
	}
	encode(w, http.StatusOK, transcriptResponse{Transcript: sess.Log.Render(p.DisplayName), Turns: visible}, nil)
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r, r.PathValue("id"))
	if !ok {
		return
	}
	var in updateSessionRequest
	if err := decode(r, &in); err != nil {
		encode(w, http.StatusBadRequest, nil, err)
		return
	}
	if in.ReadAloud != nil {
		sess.SetReadAloud(*in.ReadAloud)
	}
	encode(w, http.StatusOK, map[string]bool{"read_aloud": sess.ReadAloud()}, nil)
}

// readUpload returns the multipart "file" part, bounded by MaxUploadBytes.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	f, hdr, err := r.FormFile("file")
	if err != nil {
		encode(w, http.StatusBadRequest, nil, fmt.Errorf("file upload: %w", err))
		return "", nil, false
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		encode(w, http.StatusRequestEntityTooLarge, nil, fmt.Errorf("file upload: %w", err))
		return "", nil, false
	}
	return filepath.Base(hdr.Filename), data, true
}

func modelStatus(err error) int {
	if gateway.KindOf(err) == gateway.KindRateLimited {
		return http.StatusTooManyRequests
	}
	return http.StatusBadGateway
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	if s.opts.Transcriber == nil {
		encode(w, http.StatusNotImplemented, nil, errors.New(router.NotAvailable))
		return
	}
	sess, ok := s.session(w, r, r.PathValue("id"))
	if !ok {
		return
	}
	name, data, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	text, err := s.opts.Transcriber.Transcribe(r.Context(), name, data)
	switch {
	case errors.Is(err, media.ErrUnsupportedAudio):
		encode(w, http.StatusUnsupportedMediaType, nil, err)
		return
	case err != nil:
		log.Printf("%s transcribe failed: session=%s err=%v", s.opts.LogPrefix, sess.ID, err)
		encode(w, modelStatus(err), nil, errors.New(gateway.UserMessage(err)))
		return
	}
	sess.SetLastAudio(data)
	sess.SetPendingTranscript(text)
	encode(w, http.StatusOK, map[string]string{"transcript": text}, nil)
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	if s.opts.Images == nil {
		encode(w, http.StatusNotImplemented, nil, errors.New(router.NotAvailable))
		return
	}
	sess, ok := s.session(w, r, r.PathValue("id"))
	if !ok {
		return
	}
	_, data, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	text, err := s.opts.Images.Extract(r.Context(), data)
	switch {
	case errors.Is(err, media.ErrNotImage):
		encode(w, http.StatusUnsupportedMediaType, nil, err)
		return
	case err != nil:
		log.Printf("%s image text failed: session=%s err=%v", s.opts.LogPrefix, sess.ID, err)
		encode(w, modelStatus(err), nil, errors.New(gateway.UserMessage(err)))
		return
	}
	sess.SetPendingTranscript(text)
	encode(w, http.StatusOK, map[string]string{"text": text}, nil)
}

func (s *Server) handleListReminders(w http.ResponseWriter, r *http.Request) {
	if s.opts.Reminders == nil {
		encode(w, http.StatusOK, []reminderInfo{}, nil)
		return
	}
	pending := s.opts.Reminders.Pending(r.URL.Query().Get("session"))
	out := make([]reminderInfo, 0, len(pending))
	for _, rem := range pending {
		if !s.owns(r, rem.Owner) {
			continue
		}
		out = append(out, reminderInfo{ID: rem.ID, Task: rem.Task, FireAt: rem.FireAt, Recurrence: string(rem.Recurrence)})
	}
	encode(w, http.StatusOK, out, nil)
}

func (s *Server) handleCancelReminder(w http.ResponseWriter, r *http.Request) {
	if s.opts.Reminders == nil {
		encode(w, http.StatusNotFound, nil, reminder.ErrNotFound)
		return
	}
	id := strings.TrimSpace(r.PathValue("id"))
	if !s.ownsReminder(r, id) {
		encode(w, http.StatusNotFound, nil, reminder.ErrNotFound)
		return
	}
	switch err := s.opts.Reminders.Cancel(id); {
	case errors.Is(err, reminder.ErrNotFound):
		encode(w, http.StatusNotFound, nil, err)
	case err != nil:
		encode(w, http.StatusInternalServerError, nil, err)
	default:
		encode(w, http.StatusOK, nil, nil)
	}
}

func (s *Server) ownsReminder(r *http.Request, id string) bool {
	if s.opts.Accounts == nil {
		return true
	}
	for _, rem := range s.opts.Reminders.Pending("") {
		if rem.ID == id {
			return s.owns(r, rem.Owner)
		}
	}
	return false
}
