// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package refine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func declining() Refiner[string, string] {
	return Func[string, string](func(context.Context, string) (string, bool) { return "", false })
}

func upper() Refiner[string, string] {
	return Always(strings.ToUpper)
}

func TestChainOrder(t *testing.T) {
	var calls []string
	tier := func(name string, ok bool) Refiner[string, string] {
		return Func[string, string](func(_ context.Context, in string) (string, bool) {
			calls = append(calls, name)
			return name + ":" + in, ok
		})
	}

	tests := []struct {
		name      string
		chain     Chain[string, string]
		want      string
		wantOK    bool
		wantCalls []string
	}{
		{"first answers", Chain[string, string]{tier("llm", true), tier("rules", true)}, "llm:x", true, []string{"llm"}},
		{"first declines", Chain[string, string]{tier("llm", false), tier("rules", true)}, "rules:x", true, []string{"llm", "rules"}},
		{"nil tier skipped", Chain[string, string]{nil, tier("rules", true)}, "rules:x", true, []string{"rules"}},
		{"all decline", Chain[string, string]{tier("a", false), tier("b", false)}, "", false, []string{"a", "b"}},
		{"empty chain", Chain[string, string]{}, "", false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls = nil
			got, ok := tt.chain.Attempt(context.Background(), "x")
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantCalls, calls)
		})
	}
}

func TestChainRunFloor(t *testing.T) {
	c := Chain[string, string]{declining(), upper()}
	assert.Equal(t, "MD", c.Run(context.Background(), "md"))

	assert.Equal(t, "", Chain[string, string]{declining()}.Run(context.Background(), "md"))
}
