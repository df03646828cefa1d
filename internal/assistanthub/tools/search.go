package tools

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type SearchResult struct {
	Title   string
	URL     string
	Snippet string
}

// Search scrapes an HTML results page.
type Search struct {
	Client *http.Client
	URL    string
	Limit  int
}

func (s Search) Query(ctx context.Context, q string) ([]SearchResult, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, fmt.Errorf("search: empty query")
	}
	u, err := url.Parse(s.URL)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	v := u.Query()
	v.Set("q", q)
	u.RawQuery = v.Encode()

	body, err := get(ctx, s.Client, u.String(), "text/html")
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	limit := s.Limit
	if limit <= 0 {
		limit = 3
	}
	var out []SearchResult
	doc.Find(".result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		a := sel.Find("a.result__a").First()
		title := strings.TrimSpace(a.Text())
		href, _ := a.Attr("href")
		if title == "" || href == "" {
			return true
		}
		out = append(out, SearchResult{
			Title:   title,
			URL:     resultURL(href),
			Snippet: strings.TrimSpace(sel.Find(".result__snippet").First().Text()),
		})
		return len(out) < limit
	})
	if len(out) == 0 {
		return nil, fmt.Errorf("search: %w", ErrNotFound)
	}
	return out, nil
}

// resultURL unwraps redirect links of the form /l/?uddg=<target>.
func resultURL(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "" && strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return href
}

func FormatResults(rs []SearchResult) string {
	var b strings.Builder
	for i, r := range rs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%d. %s\n%s", i+1, r.Title, r.URL)
		if r.Snippet != "" {
			b.WriteString("\n" + r.Snippet)
		}
	}
	return b.String()
}
