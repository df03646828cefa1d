package intent

import "strings"

var (
	listPrefixes    = []string{"list all files in", "list of all files in", "list files in"}
	extractPrefixes = []string{"extract data from"}
)

type rule struct {
	kind  Kind
	match func(lower string) (Site, bool)
}

func contains(words ...string) func(string) (Site, bool) {
	return func(lower string) (Site, bool) {
		for _, w := range words {
			if !strings.Contains(lower, w) {
				return Site{}, false
			}
		}
		return Site{}, true
	}
}

func hasPrefix(prefixes ...string) func(string) bool {
	return func(lower string) bool {
		for _, p := range prefixes {
			if strings.HasPrefix(lower, p) {
				return true
			}
		}
		return false
	}
}

func matchOpenSite(lower string) (Site, bool) {
	for _, s := range Sites {
		if strings.Contains(lower, "open "+s.Name) {
			return s, true
		}
	}
	return Site{}, false
}

func either(a func(string) (Site, bool), b func(string) bool) func(string) (Site, bool) {
	return func(lower string) (Site, bool) {
		if s, ok := a(lower); ok {
			return s, true
		}
		return Site{}, b(lower)
	}
}

// rules is the fixed precedence. The first match wins.
// "time" is tested before "remind me", so "remind me to stop at 10:00 on time"
// is answered with the clock.
var rules = []rule{
	{kind: OpenURL, match: matchOpenSite},
	{kind: GetTime, match: contains("time")},
	{kind: ListFiles, match: either(contains("list", "files"), hasPrefix(listPrefixes...))},
	{kind: ExtractData, match: either(contains("extract", "data"), hasPrefix(extractPrefixes...))},
	{kind: SetReminder, match: contains("remind me")},
	{kind: TellJoke, match: contains("joke")},
	{kind: Weather, match: contains("weather")},
	{kind: News, match: contains("news")},
	{kind: Stock, match: contains("stock")},
	{kind: WebSearch, match: func(lower string) (Site, bool) { return Site{}, strings.HasPrefix(lower, "search") }},
}

// order returns the rule precedence, Model excluded.
func order() []Kind {
	out := make([]Kind, len(rules))
	for i, r := range rules {
		out[i] = r.kind
	}
	return out
}

// Set is the group of intents a bot profile answers. A nil Set enables all.
type Set map[Kind]bool

func NewSet(kinds ...Kind) Set {
	s := make(Set, len(kinds))
	for _, k := range kinds {
		s[k] = true
	}
	return s
}

func (s Set) Has(k Kind) bool {
	if s == nil {
		return true
	}
	return s[k]
}

// Classify walks the ordered rules once and returns the first enabled match.
// Anything unmatched goes to the model.
func Classify(text string, enabled Set) Result {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)
	for _, r := range rules {
		if !enabled.Has(r.kind) {
			continue
		}
		if site, ok := r.match(lower); ok {
			return Result{Kind: r.kind, Site: site, Text: trimmed}
		}
	}
	return Result{Kind: Model, Text: trimmed}
}
