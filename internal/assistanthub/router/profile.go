package router

import (
	"sort"
	"strings"

	"assistanthub/internal/assistanthub/intent"
)

// Profile is one assistant persona and the commands it answers.
type Profile struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	// persona is formatted with the user's display name.
	persona  string
	Greeting string     `json:"greeting"`
	Intents  intent.Set `json:"-"`
}

func (p Profile) Persona(userName string) string {
	userName = strings.TrimSpace(userName)
	if userName == "" {
		userName = "the user"
	}
	return strings.ReplaceAll(p.persona, "{user}", userName)
}

const DefaultProfile = "astra"

var profiles = map[string]Profile{
	"astra": {
		Name:        "astra",
		DisplayName: "Astra",
		Description: "Desktop assistant: files, time, sites, reminders, search, weather, news and stocks.",
		persona: "You are Astra, a desktop assistant chatting with {user}. Answer clearly and concisely. " +
			"Do not include your name in your responses.",
		Greeting: "Hi, I am Astra. How can I help you today?",
		Intents: intent.NewSet(
			intent.OpenURL, intent.GetTime, intent.ListFiles, intent.ExtractData,
			intent.SetReminder, intent.Weather, intent.News, intent.Stock, intent.WebSearch,
		),
	},
	"vertex": {
		Name:        "vertex",
		DisplayName: "Vertex",
		Description: "Everyday bot for productivity and time management, with jokes and reminders.",
		persona: "You are Vertex, an everyday bot chatting with {user}. Provide helpful advice on productivity and time management. " +
			"Do not include your name in your responses.",
		Greeting: "Hi, I am Vertex, your everyday bot. How can I help you today?",
		Intents:  intent.NewSet(intent.TellJoke, intent.SetReminder),
	},
}

// LookupProfile is case-insensitive. Unknown names report false.
func LookupProfile(name string) (Profile, bool) {
	p, ok := profiles[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

func profileFor(name string) Profile {
	if p, ok := LookupProfile(name); ok {
		return p
	}
	return profiles[DefaultProfile]
}

// Profiles returns all profiles sorted by name.
func Profiles() []Profile {
	out := make([]Profile, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
