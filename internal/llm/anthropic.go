package llm

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/competitor-research/pkg/anthropic"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = "claude-3-5-haiku-20241022"

// Anthropic is a Completer backed by the Anthropic Messages API.
type Anthropic struct {
	client anthropic.Client
	model  string
}

// NewAnthropic creates an Anthropic completer. An empty model selects
// DefaultAnthropicModel.
func NewAnthropic(client anthropic.Client, model string) *Anthropic {
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &Anthropic{client: client, model: model}
}

// Complete sends req as a single user message.
func (a *Anthropic) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := withTimeout(ctx, req.Timeout)
	defer cancel()

	temp := req.Temperature
	msg := anthropic.MessageRequest{
		Model:       a.model,
		MaxTokens:   req.MaxTokens,
		Messages:    []anthropic.Message{{Role: "user", Content: req.Prompt}},
		Temperature: &temp,
	}
	if req.System != "" {
		msg.System = []anthropic.SystemBlock{{Text: req.System}}
	}

	resp, err := a.client.CreateMessage(ctx, msg)
	if err != nil {
		return "", eris.Wrapf(err, "llm: anthropic %s", req.Phase)
	}
	resp.Usage.LogCost(a.model, req.Phase)
	return strings.TrimSpace(resp.Text()), nil
}
