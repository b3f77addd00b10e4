// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package topic turns a research topic into retrieval queries and a
// constraint that keeps the ranked pool on topic.
package topic

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/sim-agent/internal/llm"
)

// MaxKeywords caps the keyword list returned by ExpandKeywords, topic
// included.
const MaxKeywords = 6

const keywordSystemPrompt = "You expand a research topic into literature search phrases for scientific paper databases. " +
	"Return JSON with key keywords: a list of short search phrases (2 to 6 words each) that would retrieve simulation studies on the topic."

// Normalize collapses runs of whitespace in topic.
func Normalize(topic string) string {
	return strings.Join(strings.Fields(topic), " ")
}

// ExpandKeywords returns the topic followed by LLM-suggested search
// phrases, case-insensitively deduplicated and capped at MaxKeywords.
// Without a usable LLM answer the result is just the topic.
func ExpandKeywords(ctx context.Context, client llm.Client, topic string, logger *zap.Logger) []string {
	if logger == nil {
		logger = zap.NewNop()
	}
	topic = Normalize(topic)
	keywords := []string{topic}
	if client == nil || !client.Enabled() {
		return keywords
	}

	res := client.Chat(ctx, llm.Request{
		System:      keywordSystemPrompt,
		User:        fmt.Sprintf("Topic: %s\nReturn at most %d phrases.", topic, MaxKeywords-1),
		Temperature: 0,
		MaxTokens:   300,
	})
	var answer struct {
		Keywords []string `json:"keywords"`
	}
	if !res.Decode(&answer) {
		logger.Debug("keyword expansion unavailable", zap.Stringer("kind", res.Kind))
		return keywords
	}

	keywords = dedupeFold(append(keywords, answer.Keywords...))
	if len(keywords) > MaxKeywords {
		keywords = keywords[:MaxKeywords]
	}
	return keywords
}

// domainExpansions adds hand-tuned queries for topics where plain keyword
// search is known to drift.
func domainExpansions(lower string) []string {
	var out []string
	if strings.Contains(lower, "plastic") &&
		(strings.Contains(lower, "binding") || strings.Contains(lower, "adsorption") || strings.Contains(lower, "sorption")) {
		out = append(out,
			"plastic-binding peptides molecular dynamics simulation",
			"microplastic binding peptide adsorption simulation",
			"polymer-binding peptide molecular simulation",
		)
	}
	if strings.Contains(lower, "microplastic") && strings.Contains(lower, "pollutant") {
		out = append(out, "microplastic pollutant binding free energy molecular dynamics")
	}
	return out
}

// Queries returns the retrieval queries for a run: the normalized topic
// first, then domain expansions, then the expanded keywords, without
// case-insensitive duplicates.
func Queries(topic string, keywords []string) []string {
	topic = Normalize(topic)
	queries := []string{topic}
	queries = append(queries, domainExpansions(strings.ToLower(topic))...)
	for _, kw := range keywords {
		queries = append(queries, Normalize(kw))
	}
	return dedupeFold(queries)
}

func dedupeFold(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
