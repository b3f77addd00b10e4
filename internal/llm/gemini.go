// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/pdiddy/sim-agent/pkg/types"
)

// DefaultGeminiModel is used when the configuration names no model.
const DefaultGeminiModel = "gemini-2.5-flash"

// geminiModels is the subset of genai.Models we call.
type geminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiCaller sends prompts to the Gemini API with a JSON response MIME type.
type GeminiCaller struct {
	models  geminiModels
	model   string
	timeout time.Duration
}

// NewGeminiCaller creates a caller from the LLM configuration.
func NewGeminiCaller(ctx context.Context, cfg types.AIConfig) (*GeminiCaller, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiCaller{models: client.Models, model: model, timeout: cfg.Timeout}, nil
}

func (g *GeminiCaller) Name() string { return "gemini/" + g.model }

func (g *GeminiCaller) Generate(ctx context.Context, req Request) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(req.Temperature)),
		ResponseMIMEType: "application/json",
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(req.User), cfg)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
