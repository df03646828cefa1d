package intent

import "strings"

type Kind int

const (
	Model Kind = iota
	OpenURL
	GetTime
	ListFiles
	ExtractData
	SetReminder
	TellJoke
	Weather
	News
	Stock
	WebSearch
)

var kindNames = map[Kind]string{
	Model:       "model",
	OpenURL:     "open-url",
	GetTime:     "get-time",
	ListFiles:   "list-files",
	ExtractData: "extract-data",
	SetReminder: "set-reminder",
	TellJoke:    "tell-joke",
	Weather:     "weather",
	News:        "news",
	Stock:       "stock",
	WebSearch:   "web-search",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// parseKind accepts the names produced by Kind.String.
func parseKind(s string) (Kind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return Model, false
}

// Site is a target of the open-url intent.
type Site struct {
	Name  string
	Title string
	URL   string
}

var Sites = []Site{
	{Name: "youtube", Title: "YouTube", URL: "https://www.youtube.com"},
	{Name: "google", Title: "Google", URL: "https://www.google.com"},
	{Name: "wikipedia", Title: "Wikipedia", URL: "https://www.wikipedia.org"},
	{Name: "stackoverflow", Title: "Stack Overflow", URL: "https://stackoverflow.com"},
	{Name: "github", Title: "GitHub", URL: "https://github.com"},
}

// Result is the outcome of one classification pass.
type Result struct {
	Kind Kind
	// Site is set for OpenURL.
	Site Site
	// Text is the original utterance, trimmed.
	Text string
}
