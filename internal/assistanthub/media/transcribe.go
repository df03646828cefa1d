package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"assistanthub/internal/assistanthub/gateway"
)

var ErrUnsupportedAudio = errors.New("unsupported audio file")

var AudioExtensions = []string{".wav", ".mp3", ".m4a", ".webm", ".ogg", ".flac"}

func supportedAudio(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range AudioExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Transcriber posts audio to an OpenAI-compatible /audio/transcriptions endpoint.
type Transcriber struct {
	Client  *http.Client
	BaseURL string
	APIKey  string
	Model   string
}

func (t Transcriber) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	filename = strings.TrimSpace(filename)
	if !supportedAudio(filename) {
		return "", fmt.Errorf("%w %q", ErrUnsupportedAudio, filename)
	}
	if len(audio) == 0 {
		return "", fmt.Errorf("%w: empty audio", ErrUnsupportedAudio)
	}
	if strings.TrimSpace(t.APIKey) == "" {
		return "", fmt.Errorf("api key is required")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("model", t.Model); err != nil {
		return "", err
	}
	fw, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(audio); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	endpoint := strings.TrimRight(strings.TrimSpace(t.BaseURL), "/") + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(t.APIKey))

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", &gateway.Error{Kind: gateway.KindGeneration, Err: err}
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &gateway.Error{Kind: gateway.KindRateLimited, Err: fmt.Errorf("status=%d", resp.StatusCode)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := gjson.GetBytes(raw, "error.message").String()
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return "", &gateway.Error{Kind: gateway.KindGeneration, Err: fmt.Errorf("status=%d: %s", resp.StatusCode, msg)}
	}
	return strings.TrimSpace(gjson.GetBytes(raw, "text").String()), nil
}
