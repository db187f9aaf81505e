// Package llm provides a provider-neutral text completion interface used by
// the discovery and profile agents.
package llm

import (
	"context"
	"encoding/json"
	"regexp"
	"time"

	"github.com/rotisserie/eris"
)

// ErrNoJSON is returned when a completion contains no parseable JSON payload.
var ErrNoJSON = eris.New("llm: no JSON found in completion")

// Request is a single-turn completion request.
type Request struct {
	// Phase labels the call for logs and metrics (e.g. "context", "verify").
	Phase       string
	System      string
	Prompt      string
	MaxTokens   int64
	Temperature float64
	// Timeout bounds the call. Zero means no extra deadline.
	Timeout time.Duration
}

// Completer turns a prompt into text.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a function into a Completer.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

var (
	arrayRe  = regexp.MustCompile(`(?s)\[.*\]`)
	objectRe = regexp.MustCompile(`(?s)\{.*\}`)
)

// ExtractJSONArray finds the outermost bracketed span in text and decodes it
// into dst.
func ExtractJSONArray(text string, dst any) error {
	return extract(arrayRe, text, dst)
}

// ExtractJSONObject finds the outermost braced span in text and decodes it
// into dst.
func ExtractJSONObject(text string, dst any) error {
	return extract(objectRe, text, dst)
}

func extract(re *regexp.Regexp, text string, dst any) error {
	span := re.FindString(text)
	if span == "" {
		return ErrNoJSON
	}
	if err := json.Unmarshal([]byte(span), dst); err != nil {
		return eris.Wrap(ErrNoJSON, err.Error())
	}
	return nil
}
