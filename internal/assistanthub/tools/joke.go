package tools

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

type Joke struct {
	Client *http.Client
	URL    string
}

// Tell fetches one joke line.
func (j Joke) Tell(ctx context.Context) (string, error) {
	body, err := get(ctx, j.Client, j.URL, "application/json")
	if err != nil {
		return "", fmt.Errorf("joke: %w", err)
	}
	joke := strings.TrimSpace(gjson.GetBytes(body, "joke").String())
	if joke == "" {
		return "", fmt.Errorf("joke: %w", ErrNotFound)
	}
	return joke, nil
}
