package reminder

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var ErrNoMatch = errors.New("reminder phrase not recognised")

const Usage = "Sorry, I couldn't understand the reminder. Try: remind me to <task> at HH:MM [on DD:MM:YYYY] [daily|weekly|monthly]"

var phrasePattern = regexp.MustCompile(`(?i)remind me to\s+(.+?)\s+at\s+(\d{1,2}):(\d{2})(?:\s+on\s+(\d{1,2})[:/.-](\d{1,2})[:/.-](\d{4}))?(?:\s+(daily|weekly|monthly))?\s*[.!]?\s*$`)

// Parsed holds the fields read from a phrase before the fire time is resolved.
type Parsed struct {
	Task       string
	Hour       int
	Minute     int
	HasDate    bool
	Day        int
	Month      time.Month
	Year       int
	Recurrence Recurrence
}

// Parse reads the deterministic grammar:
//
//	remind me to <task> at <HH:MM> [on <DD:MM:YYYY>] [daily|weekly|monthly]
func Parse(text string) (Parsed, error) {
	m := phrasePattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return Parsed{}, ErrNoMatch
	}
	p := Parsed{Task: strings.TrimSpace(m[1])}
	if p.Task == "" {
		return Parsed{}, ErrNoMatch
	}
	var err error
	if p.Hour, p.Minute, err = parseClock(m[2], m[3]); err != nil {
		return Parsed{}, err
	}
	if m[4] != "" {
		if err := p.setDate(m[4], m[5], m[6]); err != nil {
			return Parsed{}, err
		}
	}
	if p.Recurrence, err = ParseRecurrence(m[7]); err != nil {
		return Parsed{}, err
	}
	return p, nil
}

// ParseExtracted reads a model reply of the form task|HH:MM|DD:MM:YYYY|recurrence.
// The date and recurrence fields may be empty or "none".
func ParseExtracted(reply string) (Parsed, error) {
	line := ""
	for _, l := range strings.Split(reply, "\n") {
		if strings.Contains(l, "|") {
			line = strings.Trim(strings.TrimSpace(l), "`\"'")
			break
		}
	}
	if line == "" {
		return Parsed{}, ErrNoMatch
	}
	fields := strings.Split(line, "|")
	for len(fields) < 4 {
		fields = append(fields, "")
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	p := Parsed{Task: fields[0]}
	if p.Task == "" || strings.EqualFold(p.Task, "none") {
		return Parsed{}, ErrNoMatch
	}
	hm := strings.SplitN(fields[1], ":", 2)
	if len(hm) != 2 {
		return Parsed{}, fmt.Errorf("%w: time %q", ErrNoMatch, fields[1])
	}
	var err error
	if p.Hour, p.Minute, err = parseClock(hm[0], hm[1]); err != nil {
		return Parsed{}, err
	}
	if d := fields[2]; d != "" && !strings.EqualFold(d, "none") {
		parts := strings.FieldsFunc(d, func(r rune) bool { return r == ':' || r == '/' || r == '-' || r == '.' })
		if len(parts) != 3 {
			return Parsed{}, fmt.Errorf("%w: date %q", ErrNoMatch, d)
		}
		if err := p.setDate(parts[0], parts[1], parts[2]); err != nil {
			return Parsed{}, err
		}
	}
	if p.Recurrence, err = ParseRecurrence(fields[3]); err != nil {
		return Parsed{}, err
	}
	return p, nil
}

func parseClock(hs, ms string) (int, int, error) {
	h, err1 := strconv.Atoi(strings.TrimSpace(hs))
	m, err2 := strconv.Atoi(strings.TrimSpace(ms))
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("%w: invalid time %s:%s", ErrNoMatch, hs, ms)
	}
	return h, m, nil
}

func (p *Parsed) setDate(ds, ms, ys string) error {
	d, err1 := strconv.Atoi(ds)
	m, err2 := strconv.Atoi(ms)
	y, err3 := strconv.Atoi(ys)
	if err1 != nil || err2 != nil || err3 != nil {
		return fmt.Errorf("%w: invalid date %s:%s:%s", ErrNoMatch, ds, ms, ys)
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || int(t.Month()) != m || t.Year() != y {
		return fmt.Errorf("%w: invalid date %s:%s:%s", ErrNoMatch, ds, ms, ys)
	}
	p.HasDate = true
	p.Day, p.Month, p.Year = d, time.Month(m), y
	return nil
}

// Resolve turns the parsed fields into an absolute fire time in now's location.
// Without a date, a time of day that is not after now moves to the next day.
func (p Parsed) Resolve(now time.Time) time.Time {
	loc := now.Location()
	if p.HasDate {
		return time.Date(p.Year, p.Month, p.Day, p.Hour, p.Minute, 0, 0, loc)
	}
	y, m, d := now.Date()
	at := time.Date(y, m, d, p.Hour, p.Minute, 0, 0, loc)
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at
}

// Delay is max(0, fireAt-now).
func Delay(fireAt, now time.Time) time.Duration {
	d := fireAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// ExtractionPrompt asks the model for the reminder fields in the deterministic formats.
func ExtractionPrompt(text string, now time.Time) string {
	return "Extract a reminder from the sentence below. The current date and time is " +
		now.Format("02:01:2006 15:04") + ".\n" +
		"Reply with exactly one line: task|HH:MM|DD:MM:YYYY|recurrence\n" +
		"Use 24-hour time. Leave the date empty if the sentence gives none. " +
		"recurrence is daily, weekly, monthly or none. Reply with none if there is no reminder.\n" +
		"Sentence: " + strings.TrimSpace(text)
}
