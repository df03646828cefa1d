package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	openaigo "github.com/openai/openai-go/v3"
)

type CallOpenAIChatCompletionWithRetryOptions struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	LogPrefix      string
	SessionID      string
}

func (o CallOpenAIChatCompletionWithRetryOptions) withDefaults() CallOpenAIChatCompletionWithRetryOptions {
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = 250 * time.Millisecond
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 5 * time.Second
	}
	return o
}

func CallOpenAIChatCompletionWithRetry(
	ctx context.Context,
	httpClient *http.Client,
	cfg OpenAIChatConfig,
	messages []openaigo.ChatCompletionMessageParamUnion,
	opts CallOpenAIChatCompletionWithRetryOptions,
) (*openaigo.ChatCompletion, error) {
	opts = opts.withDefaults()

	var lastErr error
	for attempt := 0; attempt < opts.MaxRetries; attempt++ {
		resp, err := CallOpenAIChatCompletion(ctx, httpClient, cfg, messages)
		if err == nil && resp != nil && len(resp.Choices) > 0 {
			return resp, nil
		}

		if err != nil {
			lastErr = err
		} else if resp == nil {
			lastErr = fmt.Errorf("llm returned nil response")
		} else {
			lastErr = fmt.Errorf("llm returned empty choices")
		}

		if attempt >= opts.MaxRetries-1 || !IsRetryable(lastErr) {
			return nil, lastErr
		}

		backoff := WithJitter(ExpBackoff(attempt, opts.InitialBackoff, opts.MaxBackoff))
		if strings.TrimSpace(opts.LogPrefix) != "" {
			log.Printf("%s llm transient failure: session=%s retry=%d/%d err=%v backoff=%s",
				opts.LogPrefix, opts.SessionID, attempt+1, opts.MaxRetries, lastErr, backoff,
			)
		}
		if !SleepWithContext(ctx, backoff) {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// StatusCode extracts the HTTP status from an SDK error, or 0.
func StatusCode(err error) int {
	var apiErr *openaigo.Error
	if errors.As(err, &apiErr) && apiErr != nil {
		return apiErr.StatusCode
	}
	return 0
}

// IsRetryable reports whether another attempt can change the outcome.
// Client errors other than 408/409/429 are final.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	code := StatusCode(err)
	switch {
	case code == 0:
		return true
	case code == http.StatusRequestTimeout, code == http.StatusConflict, code == http.StatusTooManyRequests:
		return true
	case code >= 500:
		return true
	}
	return false
}
