// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"testing"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/pdiddy/sim-agent/pkg/types"
)

type fakeCaller struct {
	text string
	err  error
}

func (f fakeCaller) Generate(context.Context, Request) (string, error) { return f.text, f.err }
func (f fakeCaller) Name() string                                      { return "fake/model" }

func TestJSONClientChatKinds(t *testing.T) {
	tests := []struct {
		name    string
		caller  fakeCaller
		want    Kind
		wantRaw string
	}{
		{"plain object", fakeCaller{text: `{"a":1}`}, KindOK, `{"a":1}`},
		{"fenced object", fakeCaller{text: "```json\n{\"a\":1}\n```"}, KindOK, `{"a":1}`},
		{"prose around object", fakeCaller{text: "Here you go: {\"a\":1} hope it helps"}, KindOK, `{"a":1}`},
		{"empty answer", fakeCaller{text: "   "}, KindEmpty, ""},
		{"array is not an object", fakeCaller{text: `[1,2]`}, KindMalformed, ""},
		{"not json", fakeCaller{text: "I cannot help with that."}, KindMalformed, ""},
		{"transport error", fakeCaller{err: errors.New("boom")}, KindTransport, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewJSONClient(tt.caller, nil)
			res := c.Chat(context.Background(), Request{User: "x"})
			assert.Equal(t, tt.want, res.Kind)
			if tt.wantRaw != "" {
				assert.JSONEq(t, tt.wantRaw, string(res.Raw))
			}
			if tt.want != KindOK {
				assert.Error(t, res.Err)
			}
		})
	}
}

func TestResultDecode(t *testing.T) {
	var out struct {
		Keywords []string `json:"keywords"`
	}
	ok := Result{Kind: KindOK, Raw: []byte(`{"keywords":["a","b"]}`)}
	require.True(t, ok.Decode(&out))
	assert.Equal(t, []string{"a", "b"}, out.Keywords)

	assert.False(t, Result{Kind: KindEmpty}.Decode(&out))
	assert.False(t, Result{Kind: KindOK, Raw: []byte(`{"keywords":"nope"}`)}.Decode(&out))
}

func TestDisabledClient(t *testing.T) {
	var c Client = Disabled{}
	res := c.Chat(context.Background(), Request{})
	assert.Equal(t, KindDisabled, res.Kind)
	assert.ErrorIs(t, res.Err, ErrDisabled)
	assert.False(t, c.Enabled())
	assert.Equal(t, "heuristic-fallback", c.Name())
}

func TestNewSelectsProvider(t *testing.T) {
	ctx := context.Background()

	c, err := New(ctx, types.AIConfig{Provider: types.ProviderAnthropic}, nil)
	require.NoError(t, err)
	assert.False(t, c.Enabled(), "missing key disables the client")

	c, err = New(ctx, types.AIConfig{Provider: types.ProviderNone, APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.False(t, c.Enabled())

	c, err = New(ctx, types.AIConfig{Provider: types.ProviderAnthropic, APIKey: "k", Model: "claude-test"}, nil)
	require.NoError(t, err)
	assert.True(t, c.Enabled())
	assert.Equal(t, "anthropic/claude-test", c.Name())

	_, err = New(ctx, types.AIConfig{Provider: "openai", APIKey: "k"}, nil)
	assert.Error(t, err)
}

type fakeMessager struct {
	got  anthropic.MessageNewParams
	resp *anthropic.Message
	err  error
}

func (f *fakeMessager) New(_ context.Context, params anthropic.MessageNewParams, _ ...option.RequestOption) (*anthropic.Message, error) {
	f.got = params
	return f.resp, f.err
}

func TestAnthropicCallerGenerate(t *testing.T) {
	fm := &fakeMessager{resp: &anthropic.Message{Content: []anthropic.ContentBlockUnion{
		{Type: "text", Text: `{"simulation_type":`},
		{Type: "text", Text: `"MD"}`},
	}}}
	a := &AnthropicCaller{messages: fm, model: "claude-test"}

	text, err := a.Generate(context.Background(), Request{System: "classify", User: "text", MaxTokens: 250})
	require.NoError(t, err)
	assert.Equal(t, `{"simulation_type":"MD"}`, text)
	assert.Equal(t, int64(250), fm.got.MaxTokens)
	assert.Equal(t, anthropic.Model("claude-test"), fm.got.Model)
	require.Len(t, fm.got.System, 1)
	assert.Contains(t, fm.got.System[0].Text, "classify")
}

func TestAnthropicCallerError(t *testing.T) {
	a := &AnthropicCaller{messages: &fakeMessager{err: errors.New("429 rate limited")}, model: "m"}
	c := NewJSONClient(a, nil)
	res := c.Chat(context.Background(), Request{User: "x"})
	assert.Equal(t, KindTransport, res.Kind)
}

type fakeModels struct {
	gotModel  string
	gotConfig *genai.GenerateContentConfig
	text      string
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, _ []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.gotModel = model
	f.gotConfig = config
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{{Text: f.text}}},
	}}}, nil
}

func TestGeminiCallerGenerate(t *testing.T) {
	fm := &fakeModels{text: `{"keywords":["x"]}`}
	g := &GeminiCaller{models: fm, model: "gemini-test"}

	text, err := g.Generate(context.Background(), Request{System: "expand", User: "topic", MaxTokens: 300})
	require.NoError(t, err)
	assert.Equal(t, `{"keywords":["x"]}`, text)
	assert.Equal(t, "gemini-test", fm.gotModel)
	assert.Equal(t, "application/json", fm.gotConfig.ResponseMIMEType)
	assert.Equal(t, int32(300), fm.gotConfig.MaxOutputTokens)
	assert.NotNil(t, fm.gotConfig.SystemInstruction)
}
