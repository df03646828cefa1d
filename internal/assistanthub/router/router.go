package router

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"assistanthub/internal/assistanthub/conversation"
	"assistanthub/internal/assistanthub/files"
	"assistanthub/internal/assistanthub/gateway"
	"assistanthub/internal/assistanthub/intent"
	"assistanthub/internal/assistanthub/tools"
)

type FileSystem interface {
	ResolveDir(ctx context.Context, name string) (string, error)
	ResolveFile(ctx context.Context, name string) (string, error)
	ListDir(ctx context.Context, dir string) ([]files.Entry, error)
	ReadText(ctx context.Context, path string, maxChars int) (string, error)
}

type ReminderHandler interface {
	Handle(ctx context.Context, sess *conversation.Session, text string) string
}

type Joker interface {
	Tell(ctx context.Context) (string, error)
}

type Searcher interface {
	Query(ctx context.Context, q string) ([]tools.SearchResult, error)
}

type WeatherSource interface {
	Current(ctx context.Context, city string) (tools.Conditions, error)
}

type NewsSource interface {
	Headlines(ctx context.Context) ([]tools.Headline, error)
}

type StockSource interface {
	Quote(ctx context.Context, symbol string) (tools.Quote, error)
}

// Deps are the handlers' collaborators. A nil collaborator makes its
// command answer with NotAvailable.
type Deps struct {
	Model     gateway.Completer
	Files     FileSystem
	Reminders ReminderHandler
	Opener    tools.Opener
	Joke      Joker
	Search    Searcher
	Weather   WeatherSource
	News      NewsSource
	Stock     StockSource

	MaxFileChars int
	Location     *time.Location
	Now          func() time.Time
	LogPrefix    string
}

const NotAvailable = "Sorry, that feature is not available right now."

type Router struct {
	d Deps
}

func New(d Deps) *Router {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Location == nil {
		d.Location = time.Local
	}
	return &Router{d: d}
}

// Start seeds an empty session with the persona and the profile greeting.
func (r *Router) Start(sess *conversation.Session) {
	defer sess.LockTurn()()
	r.start(sess)
}

// Reset clears the session and seeds it again.
func (r *Router) Reset(sess *conversation.Session) {
	defer sess.LockTurn()()
	sess.Reset()
	r.start(sess)
}

func (r *Router) start(sess *conversation.Session) {
	if sess.Log.Len() > 0 {
		return
	}
	p := profileFor(sess.Bot)
	sess.Log.Append(conversation.SpeakerSystem, p.Persona(sess.DisplayName))
	sess.Log.Append(conversation.SpeakerBot, p.Greeting)
}

// Handle classifies text, runs the matching handler and appends the user
// turn and the reply to the session log.
func (r *Router) Handle(ctx context.Context, sess *conversation.Session, text string) string {
	text = strings.TrimSpace(text)
	p := profileFor(sess.Bot)
	res := intent.Classify(text, p.Intents)

	start := time.Now()
	reply := r.exchange(ctx, sess, p, res)
	log.Printf("%s routed: session=%s bot=%s intent=%s elapsed=%s", r.d.LogPrefix, sess.ID, p.Name, res.Kind, time.Since(start).Truncate(time.Millisecond))
	return reply
}

// exchange appends the user turn and its reply while holding the session's
// turn lock, so concurrent messages never interleave.
func (r *Router) exchange(ctx context.Context, sess *conversation.Session, p Profile, res intent.Result) string {
	defer sess.LockTurn()()
	sess.Log.Append(conversation.SpeakerUser, res.Text)
	reply := r.dispatch(ctx, sess, p, res)
	sess.Log.Append(conversation.SpeakerBot, reply)
	return reply
}

func (r *Router) dispatch(ctx context.Context, sess *conversation.Session, p Profile, res intent.Result) string {
	if res.Text == "" {
		return "Please type a message."
	}
	switch res.Kind {
	case intent.OpenURL:
		return r.openSite(res.Site)
	case intent.GetTime:
		return "The current time is " + r.d.Now().In(r.d.Location).Format("15:04:05")
	case intent.ListFiles:
		return r.listFiles(ctx, res.Text)
	case intent.ExtractData:
		return r.extractData(ctx, res.Text)
	case intent.SetReminder:
		if r.d.Reminders == nil {
			return NotAvailable
		}
		return r.d.Reminders.Handle(ctx, sess, res.Text)
	case intent.TellJoke:
		return r.joke(ctx)
	case intent.Weather:
		return r.weather(ctx, res.Text)
	case intent.News:
		return r.news(ctx)
	case intent.Stock:
		return r.stock(ctx, res.Text)
	case intent.WebSearch:
		return r.search(ctx, res.Text)
	}
	return r.chat(ctx, sess, p)
}

var errEmptyReply = errors.New("the model returned an empty reply")

func (r *Router) chat(ctx context.Context, sess *conversation.Session, p Profile) string {
	if r.d.Model == nil {
		return NotAvailable
	}
	out, err := r.d.Model.Chat(ctx, p.Persona(sess.DisplayName), sess.Log.Turns())
	if err != nil {
		return gateway.UserMessage(err)
	}
	if strings.TrimSpace(out) == "" {
		return gateway.UserMessage(&gateway.Error{Kind: gateway.KindGeneration, Err: errEmptyReply})
	}
	return out
}

func (r *Router) openSite(site intent.Site) string {
	if r.d.Opener == nil {
		return NotAvailable
	}
	if err := r.d.Opener.Open(site.URL); err != nil {
		log.Printf("%s open site failed: site=%s err=%v", r.d.LogPrefix, site.Name, err)
		return "Could not open " + site.Title + "."
	}
	return "Opening " + site.Title + "..."
}

// extract returns the deterministic entity when a pattern matches, else asks the model.
func (r *Router) extract(ctx context.Context, text, local, instruction string) string {
	if v := strings.TrimSpace(strings.Trim(local, "\"'`.?!")); v != "" {
		return v
	}
	if r.d.Model == nil {
		return ""
	}
	v, ok := r.d.Model.ExtractEntity(ctx, text, instruction)
	if !ok {
		return ""
	}
	return v
}
