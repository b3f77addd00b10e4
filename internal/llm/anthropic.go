// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/pdiddy/sim-agent/pkg/types"
)

// DefaultAnthropicModel is used when the configuration names no model.
const DefaultAnthropicModel = "claude-sonnet-4-5-20250929"

// AnthropicMessager is the subset of the SDK message service we call, so
// tests can supply a fake.
type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// AnthropicCaller sends prompts to the Claude Messages API.
type AnthropicCaller struct {
	messages AnthropicMessager
	model    string
}

// NewAnthropicCaller creates a caller from the LLM configuration.
func NewAnthropicCaller(cfg types.AIConfig) *AnthropicCaller {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}
	c := anthropic.NewClient(opts...)

	model := cfg.Model
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &AnthropicCaller{messages: &c.Messages, model: model}
}

func (a *AnthropicCaller) Name() string { return "anthropic/" + a.model }

// Generate sends one system+user exchange and concatenates the text blocks
// of the answer.
func (a *AnthropicCaller) Generate(ctx context.Context, req Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1200
	}
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   int64(maxTokens),
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(req.User))},
		Temperature: anthropic.Float(req.Temperature),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System + " Return strict JSON only."}}
	}

	resp, err := a.messages.New(ctx, params)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}
