// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/sim-agent/internal/llm"
	"github.com/pdiddy/sim-agent/internal/llm/llmtest"
	"github.com/pdiddy/sim-agent/pkg/types"
)

func TestRules(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantType types.SimulationType
		wantConf float64
	}{
		{
			name:     "md only",
			text:     "We performed molecular dynamics simulations in GROMACS with CHARMM36 force field.",
			wantType: types.SimMD,
			wantConf: 0.95,
		},
		{
			name:     "qmmm",
			text:     "QM/MM calculations were carried out using ONIOM with a QM region and MM environment.",
			wantType: types.SimQMMM,
			wantConf: 0.95,
		},
		{
			name:     "no signal",
			text:     "This work presents an experimental synthesis and microscopy characterization.",
			wantType: types.SimUnknown,
			wantConf: 0.35,
		},
		{
			name:     "mixed md and qm",
			text:     "DFT benchmarks and molecular dynamics with GROMACS.",
			wantType: types.SimMD,
			wantConf: 0.767,
		},
		{
			name:     "tie goes to earlier type",
			text:     "oniom and gromacs",
			wantType: types.SimQMMM,
			wantConf: 0.675,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rules(tt.text)
			if got.Type != tt.wantType || got.Confidence != tt.wantConf {
				t.Errorf("Rules(%q) = %+v, want {%s %v}", tt.text, got, tt.wantType, tt.wantConf)
			}
		})
	}
}

func TestRulesMDConfidenceAboveHalf(t *testing.T) {
	got := Rules("A trajectory analysis of LAMMPS runs.")
	assert.Equal(t, types.SimMD, got.Type)
	assert.Greater(t, got.Confidence, 0.5)
}

func TestClassifierMerge(t *testing.T) {
	mdText := "molecular dynamics with gromacs and dft"
	rule := Rules(mdText)
	require.Equal(t, types.SimMD, rule.Type)

	tests := []struct {
		name   string
		client llm.Client
		want   Result
	}{
		{"disabled keeps rules", llm.Disabled{}, rule},
		{"failing keeps rules", llmtest.Failing(), rule},
		{
			"confident llm overrides",
			llmtest.JSON(map[string]any{"simulation_type": "QMMM", "confidence": 0.97, "reason": "qm region"}),
			Result{Type: types.SimQMMM, Confidence: 0.97},
		},
		{
			"equal confidence overrides",
			llmtest.JSON(map[string]any{"simulation_type": "QM", "confidence": rule.Confidence}),
			Result{Type: types.SimQM, Confidence: rule.Confidence},
		},
		{
			"less confident llm ignored",
			llmtest.JSON(map[string]any{"simulation_type": "QM", "confidence": 0.5}),
			rule,
		},
		{
			"unknown type ignored",
			llmtest.JSON(map[string]any{"simulation_type": "DFT-MD", "confidence": 0.99}),
			rule,
		},
		{
			"string confidence coerced and clamped",
			llmtest.JSON(map[string]any{"simulation_type": "CG", "confidence": "7"}),
			Result{Type: types.SimCG, Confidence: 1},
		},
		{
			"unparseable confidence is zero",
			llmtest.JSON(map[string]any{"simulation_type": "CG", "confidence": "high"}),
			rule,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Classifier{Client: tt.client}
			assert.Equal(t, tt.want, c.Classify(context.Background(), mdText))
		})
	}
}

func TestClassifierTruncatesPrompt(t *testing.T) {
	stub := llmtest.JSON(map[string]any{"simulation_type": "MD", "confidence": 0.1})
	c := &Classifier{Client: stub}
	c.Classify(context.Background(), strings.Repeat("x", 10000))

	calls := stub.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, len("Paper text:\n")+llmTextLimit, len(calls[0].User))
	assert.Equal(t, 250, calls[0].MaxTokens)
}

func TestNoSignalLLMCannotLower(t *testing.T) {
	c := &Classifier{Client: llmtest.JSON(map[string]any{"simulation_type": "Other/Unknown", "confidence": 0.2})}
	got := c.Classify(context.Background(), "experimental synthesis")
	assert.Equal(t, Result{Type: types.SimUnknown, Confidence: NoSignalConfidence}, got)
}
