package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"assistanthub/pkg/x/llm"
)

type ErrorKind int

const (
	KindGeneration ErrorKind = iota
	KindRateLimited
)

func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate-limited"
	default:
		return "generation-error"
	}
}

// Error is the only error type returned by Gateway calls.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Classify wraps err into an *Error. Nil stays nil.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var ge *Error
	if errors.As(err, &ge) {
		return ge
	}
	if llm.StatusCode(err) == http.StatusTooManyRequests {
		return &Error{Kind: KindRateLimited, Err: err}
	}
	return &Error{Kind: KindGeneration, Err: err}
}

// KindOf reports the kind of a gateway error; unknown errors are generation errors.
func KindOf(err error) ErrorKind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindGeneration
}

// UserMessage renders err as conversation text.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "Error generating response: the request timed out."
	}
	if KindOf(err) == KindRateLimited {
		return "Rate limit exceeded. Please try again later."
	}
	return "Error generating response: " + errorDetail(err)
}

func errorDetail(err error) string {
	var ge *Error
	if errors.As(err, &ge) && ge.Err != nil {
		return ge.Err.Error()
	}
	return err.Error()
}
