package tools

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"
)

type Headline struct {
	Title string
	Link  string
}

type News struct {
	Client  *http.Client
	FeedURL string
	Limit   int
}

func (n News) Headlines(ctx context.Context) ([]Headline, error) {
	body, err := get(ctx, n.Client, n.FeedURL, "application/rss+xml, application/atom+xml, application/xml;q=0.9")
	if err != nil {
		return nil, fmt.Errorf("news: %w", err)
	}
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("news: %w", err)
	}
	limit := n.Limit
	if limit <= 0 {
		limit = 5
	}
	out := make([]Headline, 0, limit)
	for _, it := range feed.Items {
		if it == nil {
			continue
		}
		title := strings.TrimSpace(it.Title)
		if title == "" {
			continue
		}
		out = append(out, Headline{Title: title, Link: strings.TrimSpace(it.Link)})
		if len(out) >= limit {
			break
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("news: %w", ErrNotFound)
	}
	return out, nil
}

func FormatHeadlines(hs []Headline) string {
	lines := make([]string, 0, len(hs)+1)
	lines = append(lines, "Top headlines:")
	for i, h := range hs {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, h.Title))
	}
	return strings.Join(lines, "\n")
}
