package gateway

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	openaigo "github.com/openai/openai-go/v3"
	"golang.org/x/time/rate"

	"assistanthub/internal/assistanthub/conversation"
	"assistanthub/pkg/x/llm"
)

// Completer is the model surface consumed by the router and the reminder parser.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Chat(ctx context.Context, persona string, turns []conversation.Turn) (string, error)
	ExtractEntity(ctx context.Context, query, instruction string) (string, bool)
}

type chatFunc func(ctx context.Context, model string, messages []openaigo.ChatCompletionMessageParamUnion) (string, error)

type Options struct {
	Chat        llm.OpenAIChatConfig
	VisionModel string
	HTTPClient  *http.Client

	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// RequestsPerMinute throttles outbound calls. Zero or negative disables throttling.
	RequestsPerMinute int

	LogPrefix string
}

type Gateway struct {
	opts    Options
	limiter *rate.Limiter
	call    chatFunc
}

func New(opts Options) *Gateway {
	if opts.HTTPClient == nil {
		opts.HTTPClient = llm.NewHTTPClient()
	}
	if strings.TrimSpace(opts.VisionModel) == "" {
		opts.VisionModel = opts.Chat.Model
	}
	g := &Gateway{opts: opts}
	if opts.RequestsPerMinute > 0 {
		burst := opts.RequestsPerMinute / 10
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), burst)
	}
	g.call = g.callOpenAI
	return g
}

func (g *Gateway) callOpenAI(ctx context.Context, model string, messages []openaigo.ChatCompletionMessageParamUnion) (string, error) {
	cfg := g.opts.Chat
	if strings.TrimSpace(model) != "" {
		cfg.Model = model
	}
	resp, err := llm.CallOpenAIChatCompletionWithRetry(ctx, g.opts.HTTPClient, cfg, messages, llm.CallOpenAIChatCompletionWithRetryOptions{
		MaxRetries:     g.opts.MaxRetries,
		InitialBackoff: g.opts.InitialBackoff,
		MaxBackoff:     g.opts.MaxBackoff,
		LogPrefix:      g.opts.LogPrefix,
	})
	if err != nil {
		return "", err
	}
	return llm.FirstContent(resp), nil
}

func (g *Gateway) do(ctx context.Context, model string, messages []openaigo.ChatCompletionMessageParamUnion) (string, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", &Error{Kind: KindRateLimited, Err: err}
		}
	}
	start := time.Now()
	out, err := g.call(ctx, model, messages)
	if err != nil {
		if g.opts.LogPrefix != "" {
			log.Printf("%s model call failed: elapsed=%s err=%v", g.opts.LogPrefix, time.Since(start).Truncate(time.Millisecond), err)
		}
		return "", Classify(err)
	}
	return strings.TrimSpace(out), nil
}

// Complete sends a single prompt and returns the trimmed reply.
func (g *Gateway) Complete(ctx context.Context, prompt string) (string, error) {
	return g.do(ctx, "", []openaigo.ChatCompletionMessageParamUnion{
		openaigo.UserMessage(prompt),
	})
}

// Chat replays the conversation as labeled lines behind the persona instruction.
func (g *Gateway) Chat(ctx context.Context, persona string, turns []conversation.Turn) (string, error) {
	msgs := make([]openaigo.ChatCompletionMessageParamUnion, 0, 2)
	if p := strings.TrimSpace(persona); p != "" {
		msgs = append(msgs, openaigo.SystemMessage(p))
	}
	msgs = append(msgs, openaigo.UserMessage(conversation.BuildPrompt("", turns)))
	return g.do(ctx, "", msgs)
}

// ExtractEntity asks for a single field and returns the first reply line with
// surrounding quotes removed. ok is false on any failure or an empty result.
func (g *Gateway) ExtractEntity(ctx context.Context, query, instruction string) (string, bool) {
	prompt := strings.TrimSpace(instruction) + "\nQuery: " + strings.TrimSpace(query) + "\nExtracted name:"
	out, err := g.Complete(ctx, prompt)
	if err != nil {
		return "", false
	}
	v := FirstLineUnquoted(out)
	return v, v != ""
}

// DescribeImage runs the vision model over an inline image.
func (g *Gateway) DescribeImage(ctx context.Context, mime string, data []byte, instruction string) (string, error) {
	if len(data) == 0 {
		return "", &Error{Kind: KindGeneration, Err: fmt.Errorf("empty image")}
	}
	if strings.TrimSpace(mime) == "" {
		mime = "image/png"
	}
	dataURL := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
	parts := []openaigo.ChatCompletionContentPartUnionParam{
		openaigo.TextContentPart(strings.TrimSpace(instruction)),
		openaigo.ImageContentPart(openaigo.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
	}
	return g.do(ctx, g.opts.VisionModel, []openaigo.ChatCompletionMessageParamUnion{
		openaigo.UserMessage(parts),
	})
}

// FirstLineUnquoted returns the first non-empty line without wrapping quotes.
func FirstLineUnquoted(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		return strings.TrimSpace(strings.Trim(line, "\"'`"))
	}
	return ""
}
