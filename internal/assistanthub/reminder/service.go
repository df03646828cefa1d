package reminder

import (
	"context"
	"log"
	"time"

	"assistanthub/internal/assistanthub/conversation"
	"assistanthub/internal/assistanthub/gateway"
)

// Service is the reminder branch of the router.
type Service struct {
	Scheduler *Scheduler
	// Model backs the fallback tier. Nil disables it.
	Model     gateway.Completer
	Location  *time.Location
	LogPrefix string
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	if s.Location != nil {
		now = now.In(s.Location)
	}
	return now
}

// Interpret parses text with the deterministic grammar, then asks the model.
func (s *Service) Interpret(ctx context.Context, text string, now time.Time) (Parsed, bool) {
	if p, err := Parse(text); err == nil {
		return p, true
	}
	if s.Model == nil {
		return Parsed{}, false
	}
	reply, err := s.Model.Complete(ctx, ExtractionPrompt(text, now))
	if err != nil {
		log.Printf("%s reminder extraction failed: err=%v", s.LogPrefix, err)
		return Parsed{}, false
	}
	p, err := ParseExtracted(reply)
	if err != nil {
		log.Printf("%s reminder extraction unparsable: reply=%q", s.LogPrefix, reply)
		return Parsed{}, false
	}
	return p, true
}

// Handle schedules the reminder described by text and returns the reply.
// It never writes to the session log.
func (s *Service) Handle(ctx context.Context, sess *conversation.Session, text string) string {
	now := s.now()
	p, ok := s.Interpret(ctx, text, now)
	if !ok {
		return Usage
	}
	r := Reminder{
		Task:       p.Task,
		FireAt:     p.Resolve(now),
		Recurrence: p.Recurrence,
	}
	if sess != nil {
		r.SessionID = sess.ID
		r.Owner = sess.Owner
		r.Contact = sess.NotifyContact
	}
	r, err := s.Scheduler.Schedule(r)
	if err != nil {
		log.Printf("%s reminder schedule failed: err=%v", s.LogPrefix, err)
		return Usage
	}
	return r.Describe()
}
