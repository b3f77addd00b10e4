// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llmtest provides scripted llm.Client implementations for tests.
package llmtest

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/pdiddy/sim-agent/internal/llm"
)

// Stub answers every Chat call from Respond. Calls are recorded.
type Stub struct {
	// Respond returns the JSON answer for a request. Returning an empty
	// string yields KindEmpty; a non-nil error yields KindTransport.
	Respond func(req llm.Request) (string, error)

	mu    sync.Mutex
	calls []llm.Request
}

// JSON returns a Stub that answers every call with v encoded as JSON.
func JSON(v any) *Stub {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return &Stub{Respond: func(llm.Request) (string, error) { return string(data), nil }}
}

// BySystem returns a Stub that picks its answer by the first key found as
// a substring of the system prompt. Requests matching no key get an empty
// answer.
func BySystem(answers map[string]any) *Stub {
	return &Stub{Respond: func(req llm.Request) (string, error) {
		for key, v := range answers {
			if strings.Contains(req.System, key) {
				data, err := json.Marshal(v)
				return string(data), err
			}
		}
		return "", nil
	}}
}

// Failing returns a Stub whose every call is a transport failure.
func Failing() *Stub {
	return &Stub{Respond: func(llm.Request) (string, error) { return "", errors.New("connection refused") }}
}

func (s *Stub) Enabled() bool { return true }

func (s *Stub) Name() string { return "stub/test-model" }

func (s *Stub) Chat(_ context.Context, req llm.Request) llm.Result {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()

	text, err := s.Respond(req)
	if err != nil {
		return llm.Result{Kind: llm.KindTransport, Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return llm.Result{Kind: llm.KindEmpty}
	}
	if !json.Valid([]byte(text)) {
		return llm.Result{Kind: llm.KindMalformed}
	}
	return llm.Result{Kind: llm.KindOK, Raw: json.RawMessage(text)}
}

// Calls returns the requests seen so far.
func (s *Stub) Calls() []llm.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]llm.Request(nil), s.calls...)
}
