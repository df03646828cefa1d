package router

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"regexp"
	"strings"

	"assistanthub/internal/assistanthub/files"
	"assistanthub/internal/assistanthub/tools"
)

const (
	folderInstruction = "Extract the folder/file name from queries about listing files.\n" +
		"Return ONLY the name without additional text. Examples:\n" +
		"- Query: 'Show files in Documents' -> 'Documents'"
	fileInstruction = "Extract the file/folder name from data extraction queries.\n" +
		"Return ONLY the name without additional text. Examples:\n" +
		"- Query: 'Get data from report.pdf' -> 'report.pdf'"
	cityInstruction = "Extract the city name from this weather question.\n" +
		"Return ONLY the city name, or an empty line if there is none."
	tickerInstruction = "Extract the stock ticker symbol from this question, for example AAPL for Apple.\n" +
		"Return ONLY the symbol, or an empty line if there is none."
)

var (
	folderPattern  = regexp.MustCompile(`(?i)files\s+(?:in|from|of|inside)\s+(?:the\s+|my\s+)?(?:folder\s+|directory\s+)?(.+)$`)
	filePattern    = regexp.MustCompile(`(?i)data\s+(?:from|in|of)\s+(?:the\s+|my\s+)?(?:file\s+)?(.+)$`)
	cityPattern    = regexp.MustCompile(`(?i)weather\s+(?:like\s+)?(?:in|for|at)\s+([\p{L}][\p{L} .'-]*)`)
	upperSymbol    = regexp.MustCompile(`\b[A-Z]{1,5}(?:\.[A-Z]{1,2})?\b`)
	searchPrefixRe = regexp.MustCompile(`(?i)^search(?:\s+(?:for|about|the web for))?\s*`)
)

func submatch(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func (r *Router) listFiles(ctx context.Context, text string) string {
	if r.d.Files == nil {
		return NotAvailable
	}
	name := r.extract(ctx, text, submatch(folderPattern, text), folderInstruction)
	if name == "" {
		return "Could not determine folder name from your query."
	}
	dir, err := r.d.Files.ResolveDir(ctx, name)
	if err != nil {
		if !errors.Is(err, files.ErrNotFound) {
			log.Printf("%s folder lookup failed: name=%q err=%v", r.d.LogPrefix, name, err)
		}
		return fmt.Sprintf("Folder '%s' not found!", name)
	}
	entries, err := r.d.Files.ListDir(ctx, dir)
	if err != nil {
		return fmt.Sprintf("Error listing files in directory: %v", err)
	}
	if len(entries) == 0 {
		return fmt.Sprintf("Folder **%s** is empty.", dir)
	}
	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, fmt.Sprintf("Files in **%s**:", dir))
	for _, e := range entries {
		n := e.Name
		if e.IsDir {
			n += string(filepath.Separator)
		}
		lines = append(lines, "* **"+n+"**")
	}
	return strings.Join(lines, "\n")
}

func (r *Router) extractData(ctx context.Context, text string) string {
	if r.d.Files == nil {
		return NotAvailable
	}
	name := r.extract(ctx, text, submatch(filePattern, text), fileInstruction)
	if name == "" {
		return "Could not determine file name from your query."
	}
	path, err := r.d.Files.ResolveFile(ctx, name)
	if err != nil {
		if !errors.Is(err, files.ErrNotFound) {
			log.Printf("%s file lookup failed: name=%q err=%v", r.d.LogPrefix, name, err)
		}
		return fmt.Sprintf("File '%s' not found!", name)
	}
	content, err := r.d.Files.ReadText(ctx, path, r.d.MaxFileChars)
	switch {
	case errors.Is(err, files.ErrUnsupportedType):
		return "Unsupported file type: " + strings.ToLower(filepath.Ext(path))
	case err != nil:
		log.Printf("%s read file failed: path=%s err=%v", r.d.LogPrefix, path, err)
		return "Error reading file"
	case content == "":
		return fmt.Sprintf("**%s** has no readable text.", path)
	}
	return fmt.Sprintf("**%s** contents:\n\n%s", path, content)
}

func (r *Router) joke(ctx context.Context) string {
	if r.d.Joke == nil {
		return NotAvailable
	}
	j, err := r.d.Joke.Tell(ctx)
	if err != nil {
		log.Printf("%s joke failed: err=%v", r.d.LogPrefix, err)
		return "I'm sorry, I couldn't fetch a joke right now."
	}
	return j
}

func (r *Router) weather(ctx context.Context, text string) string {
	if r.d.Weather == nil {
		return NotAvailable
	}
	city := r.extract(ctx, text, submatch(cityPattern, text), cityInstruction)
	if city == "" {
		return "Could not determine city name from your query."
	}
	c, err := r.d.Weather.Current(ctx, city)
	if errors.Is(err, tools.ErrNotFound) {
		return fmt.Sprintf("City '%s' not found!", city)
	}
	if err != nil {
		log.Printf("%s weather failed: city=%q err=%v", r.d.LogPrefix, city, err)
		return "I'm sorry, I couldn't fetch the weather right now."
	}
	return c.String()
}

func (r *Router) news(ctx context.Context) string {
	if r.d.News == nil {
		return NotAvailable
	}
	hs, err := r.d.News.Headlines(ctx)
	if err != nil {
		log.Printf("%s news failed: err=%v", r.d.LogPrefix, err)
		return "I'm sorry, I couldn't fetch the news right now."
	}
	return tools.FormatHeadlines(hs)
}

// tickerFrom picks the first upper-case symbol-like word.
func tickerFrom(text string) string {
	for _, m := range upperSymbol.FindAllString(text, -1) {
		if m != "I" && m != "A" && m != "STOCK" {
			return m
		}
	}
	return ""
}

func (r *Router) stock(ctx context.Context, text string) string {
	if r.d.Stock == nil {
		return NotAvailable
	}
	symbol := strings.ToUpper(r.extract(ctx, text, tickerFrom(text), tickerInstruction))
	if symbol == "" {
		return "Could not determine stock symbol from your query."
	}
	q, err := r.d.Stock.Quote(ctx, symbol)
	if errors.Is(err, tools.ErrNotFound) {
		return fmt.Sprintf("Stock symbol '%s' not found!", symbol)
	}
	if err != nil {
		log.Printf("%s stock failed: symbol=%s err=%v", r.d.LogPrefix, symbol, err)
		return "I'm sorry, I couldn't fetch the stock price right now."
	}
	return q.String()
}

func (r *Router) search(ctx context.Context, text string) string {
	if r.d.Search == nil {
		return NotAvailable
	}
	q := strings.TrimSpace(searchPrefixRe.ReplaceAllString(text, ""))
	if q == "" {
		return "What would you like me to search for?"
	}
	rs, err := r.d.Search.Query(ctx, q)
	if errors.Is(err, tools.ErrNotFound) {
		return fmt.Sprintf("No results found for '%s'.", q)
	}
	if err != nil {
		log.Printf("%s search failed: q=%q err=%v", r.d.LogPrefix, q, err)
		return "I'm sorry, the search failed. Please try again later."
	}
	return tools.FormatResults(rs)
}
