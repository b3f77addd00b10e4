// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm wraps chat-completion providers behind a JSON-only call that
// never fails the caller: every outcome is reported as a typed Result, and
// each call site keeps its own heuristic path for anything but KindOK.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/sim-agent/pkg/types"
)

// Request is one structured-output chat call.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Kind classifies the outcome of a chat call.
type Kind int

const (
	KindOK Kind = iota
	// KindDisabled means no provider is configured.
	KindDisabled
	// KindTransport covers network, HTTP and provider API errors.
	KindTransport
	// KindEmpty means the provider answered with no text.
	KindEmpty
	// KindMalformed means the text was not a JSON object.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindDisabled:
		return "disabled"
	case KindTransport:
		return "transport"
	case KindEmpty:
		return "empty"
	case KindMalformed:
		return "malformed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result is the outcome of Chat. Raw holds a JSON object when Kind is KindOK.
type Result struct {
	Kind Kind
	Raw  json.RawMessage
	Err  error
}

// OK reports whether the call produced a JSON object.
func (r Result) OK() bool { return r.Kind == KindOK }

// Decode unmarshals Raw into v. It returns false for any non-OK result or
// when the object does not fit v.
func (r Result) Decode(v any) bool {
	if !r.OK() {
		return false
	}
	return json.Unmarshal(r.Raw, v) == nil
}

// Client is the chat boundary used by every LLM-assisted stage.
type Client interface {
	Chat(ctx context.Context, req Request) Result
	Enabled() bool
	// Name identifies the provider and model, e.g. "anthropic/claude-sonnet-4-5".
	Name() string
}

// Caller sends one prompt to a provider and returns its raw text answer.
// Provider adapters implement it; JSONClient turns it into a Client.
type Caller interface {
	Generate(ctx context.Context, req Request) (string, error)
	Name() string
}

// JSONClient adapts a Caller into a Client that only accepts JSON objects.
type JSONClient struct {
	caller Caller
	logger *zap.Logger
}

// NewJSONClient wraps caller. A nil logger discards diagnostics.
func NewJSONClient(caller Caller, logger *zap.Logger) *JSONClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JSONClient{caller: caller, logger: logger}
}

func (c *JSONClient) Enabled() bool { return true }

func (c *JSONClient) Name() string { return c.caller.Name() }

// Chat calls the provider and classifies the answer. It never panics or
// returns an error to the caller.
func (c *JSONClient) Chat(ctx context.Context, req Request) Result {
	text, err := c.caller.Generate(ctx, req)
	if err != nil {
		c.logger.Warn("llm call failed", zap.String("model", c.caller.Name()), zap.Error(err))
		return Result{Kind: KindTransport, Err: err}
	}

	raw, kind := parseObject(text)
	if kind != KindOK {
		c.logger.Debug("llm answer rejected",
			zap.String("model", c.caller.Name()),
			zap.Stringer("kind", kind),
			zap.Int("chars", len(text)))
		return Result{Kind: kind, Err: fmt.Errorf("llm answer %s", kind)}
	}
	return Result{Kind: KindOK, Raw: raw}
}

// parseObject extracts a JSON object from a model answer. It tolerates code
// fences and prose around the object.
func parseObject(text string) (json.RawMessage, Kind) {
	clean := stripCodeFences(text)
	if clean == "" {
		return nil, KindEmpty
	}
	if isObject(clean) {
		return json.RawMessage(clean), KindOK
	}
	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start >= 0 && end > start {
		inner := clean[start : end+1]
		if isObject(inner) {
			return json.RawMessage(inner), KindOK
		}
	}
	return nil, KindMalformed
}

func isObject(s string) bool {
	b := bytes.TrimSpace([]byte(s))
	return len(b) > 0 && b[0] == '{' && json.Valid(b)
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		parts := strings.SplitN(s, "\n", 2)
		if len(parts) == 2 {
			s = parts[1]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// Disabled is the Client used when no provider is configured.
type Disabled struct{}

func (Disabled) Chat(context.Context, Request) Result {
	return Result{Kind: KindDisabled, Err: ErrDisabled}
}

func (Disabled) Enabled() bool { return false }

func (Disabled) Name() string { return "heuristic-fallback" }

// ErrDisabled is reported by Disabled.Chat.
var ErrDisabled = errors.New("llm disabled")

// New builds the Client described by cfg. A missing API key or the "none"
// provider yields Disabled rather than an error.
func New(ctx context.Context, cfg types.AIConfig, logger *zap.Logger) (Client, error) {
	if cfg.Provider == types.ProviderNone || cfg.Provider == "" || strings.TrimSpace(cfg.APIKey) == "" {
		return Disabled{}, nil
	}

	switch cfg.Provider {
	case types.ProviderAnthropic:
		return NewJSONClient(NewAnthropicCaller(cfg), logger), nil
	case types.ProviderGemini:
		caller, err := NewGeminiCaller(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewJSONClient(caller, logger), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q: use anthropic, gemini, or none", cfg.Provider)
	}
}
