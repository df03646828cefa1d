package conversation

import (
	"strings"
	"sync"
)

type Speaker string

const (
	SpeakerUser   Speaker = "user"
	SpeakerBot    Speaker = "bot"
	SpeakerSystem Speaker = "system"
)

type Turn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// Log is an append-only, ordered list of turns.
// Insertion order is display order and prompt order.
type Log struct {
	mu    sync.RWMutex
	turns []Turn
}

func (l *Log) Append(speaker Speaker, text string) {
	l.mu.Lock()
	l.turns = append(l.turns, Turn{Speaker: speaker, Text: text})
	l.mu.Unlock()
}

// Turns returns a copy.
func (l *Log) Turns() []Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.turns)
}

func (l *Log) Reset() {
	l.mu.Lock()
	l.turns = nil
	l.mu.Unlock()
}

// Render formats the visible transcript, one turn per line.
// System turns are prompt material and are not shown.
func (l *Log) Render(botName string) string {
	if strings.TrimSpace(botName) == "" {
		botName = "Bot"
	}
	var b strings.Builder
	for _, t := range l.Turns() {
		switch t.Speaker {
		case SpeakerUser:
			b.WriteString("You: ")
		case SpeakerBot:
			b.WriteString(botName)
			b.WriteString(": ")
		default:
			continue
		}
		b.WriteString(t.Text)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// BuildPrompt prefixes the persona instruction and replays user and bot turns
// as alternating labeled lines.
func BuildPrompt(persona string, turns []Turn) string {
	var b strings.Builder
	if p := strings.TrimSpace(persona); p != "" {
		b.WriteString(p)
		b.WriteString("\n")
	}
	for _, t := range turns {
		switch t.Speaker {
		case SpeakerUser:
			b.WriteString("User: ")
		case SpeakerBot:
			b.WriteString("Bot: ")
		default:
			continue
		}
		b.WriteString(t.Text)
		b.WriteString("\n")
	}
	return b.String()
}
