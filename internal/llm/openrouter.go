package llm

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/competitor-research/pkg/openrouter"
)

// OpenRouter is a Completer backed by the OpenRouter chat completions API.
type OpenRouter struct {
	client openrouter.Client
	model  string
}

// NewOpenRouter creates an OpenRouter completer. An empty model uses the
// client's default.
func NewOpenRouter(client openrouter.Client, model string) *OpenRouter {
	return &OpenRouter{client: client, model: model}
}

// Complete sends req as a chat completion.
func (o *OpenRouter) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := withTimeout(ctx, req.Timeout)
	defer cancel()

	msgs := make([]openrouter.Message, 0, 2)
	if req.System != "" {
		msgs = append(msgs, openrouter.Message{Role: "system", Content: req.System})
	}
	msgs = append(msgs, openrouter.Message{Role: "user", Content: req.Prompt})

	temp := req.Temperature
	maxTokens := req.MaxTokens
	resp, err := o.client.ChatCompletion(ctx, openrouter.ChatCompletionRequest{
		Model:       o.model,
		Messages:    msgs,
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return "", eris.Wrapf(err, "llm: openrouter %s", req.Phase)
	}
	return strings.TrimSpace(resp.Content()), nil
}
