package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	openaigo "github.com/openai/openai-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assistanthub/internal/assistanthub/conversation"
	"assistanthub/pkg/x/llm"
)

func fakeGateway(fn chatFunc) *Gateway {
	g := New(Options{Chat: llm.OpenAIChatConfig{APIKey: "k", Model: "m"}})
	g.call = fn
	return g
}

func TestComplete_TrimsReply(t *testing.T) {
	g := fakeGateway(func(ctx context.Context, model string, _ []openaigo.ChatCompletionMessageParamUnion) (string, error) {
		return "  hello there \n", nil
	})
	out, err := g.Complete(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)
}

func TestComplete_ClassifiesErrors(t *testing.T) {
	g := fakeGateway(func(context.Context, string, []openaigo.ChatCompletionMessageParamUnion) (string, error) {
		return "", errors.New("boom")
	})
	_, err := g.Complete(context.Background(), "hi")
	require.Error(t, err)
	var ge *Error
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, KindGeneration, ge.Kind)
	assert.Equal(t, "Error generating response: boom", UserMessage(err))
}

func TestExtractEntity(t *testing.T) {
	cases := []struct {
		reply string
		err   error
		want  string
		ok    bool
	}{
		{reply: "\"Downloads\"\nextra", want: "Downloads", ok: true},
		{reply: "\n  'report.pdf'  ", want: "report.pdf", ok: true},
		{reply: "\"\"", ok: false},
		{err: errors.New("down"), ok: false},
	}
	for _, tc := range cases {
		g := fakeGateway(func(context.Context, string, []openaigo.ChatCompletionMessageParamUnion) (string, error) {
			return tc.reply, tc.err
		})
		got, ok := g.ExtractEntity(context.Background(), "list all files in my downloads", "Return the folder name only.")
		assert.Equal(t, tc.ok, ok, tc.reply)
		assert.Equal(t, tc.want, got, tc.reply)
	}
}

func TestDescribeImage_UsesVisionModel(t *testing.T) {
	var gotModel string
	g := New(Options{Chat: llm.OpenAIChatConfig{APIKey: "k", Model: "text"}, VisionModel: "vision"})
	g.call = func(_ context.Context, model string, msgs []openaigo.ChatCompletionMessageParamUnion) (string, error) {
		gotModel = model
		require.Len(t, msgs, 1)
		return "TEXT", nil
	}
	out, err := g.DescribeImage(context.Background(), "image/png", []byte{1, 2, 3}, "read it")
	require.NoError(t, err)
	assert.Equal(t, "TEXT", out)
	assert.Equal(t, "vision", gotModel)

	_, err = g.DescribeImage(context.Background(), "image/png", nil, "read it")
	assert.Error(t, err)
}

func TestChat_SendsPersonaAndTranscript(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"m","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  Sure thing.  "}}]}`)
	}))
	defer srv.Close()

	g := New(Options{Chat: llm.OpenAIChatConfig{BaseURL: srv.URL + "/v1", APIKey: "k", Model: "m"}})
	out, err := g.Chat(context.Background(), "You are Vertex.", []conversation.Turn{
		{Speaker: conversation.SpeakerUser, Text: "plan my day"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Sure thing.", out)
	assert.Contains(t, body, "You are Vertex.")
	assert.Contains(t, body, "User: plan my day")
}

func TestComplete_RateLimitedFromServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"slow down","type":"rate_limit"}}`)
	}))
	defer srv.Close()

	g := New(Options{
		Chat:           llm.OpenAIChatConfig{BaseURL: srv.URL, APIKey: "k", Model: "m"},
		MaxRetries:     1,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
	})
	_, err := g.Complete(context.Background(), "hi")
	require.Error(t, err)
	assert.Equal(t, KindRateLimited, KindOf(err))
	assert.Equal(t, "Rate limit exceeded. Please try again later.", UserMessage(err))
}

func TestClassify(t *testing.T) {
	assert.Nil(t, Classify(nil))
	inner := &Error{Kind: KindRateLimited, Err: errors.New("x")}
	wrapped := fmt.Errorf("outer: %w", inner)
	assert.Same(t, inner, Classify(wrapped))
	assert.Equal(t, KindGeneration, KindOf(errors.New("plain")))
	assert.Equal(t, "rate-limited", KindRateLimited.String())
}

func TestFirstLineUnquoted(t *testing.T) {
	assert.Equal(t, "a b", FirstLineUnquoted("\n\n \"a b\" \nc"))
	assert.Equal(t, "", FirstLineUnquoted("   "))
}
