// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// splitSentences cuts text after '.', '!' or '?' when whitespace follows.
// Empty pieces are dropped.
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		j := i + 1
		for j < len(text) {
			r, size := utf8.DecodeRuneInString(text[j:])
			if !unicode.IsSpace(r) {
				break
			}
			j += size
		}
		if j == i+1 || j == len(text) {
			continue
		}
		if s := text[start : i+1]; strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
		start = j
		i = j - 1
	}
	if s := text[start:]; strings.TrimSpace(s) != "" {
		out = append(out, s)
	}
	return out
}

// maxObjectiveLen bounds the first-sentence objective for text without
// sentence punctuation.
const maxObjectiveLen = 500

func firstSentence(text string) string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return ""
	}
	return truncate(strings.TrimSpace(sentences[0]), maxObjectiveLen)
}

// compact collapses all whitespace runs to single spaces.
func compact(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// window returns s[idx-before : idx+after], clipped to s and to rune
// boundaries, with whitespace collapsed.
func window(s string, idx, before, after int) string {
	start := max(0, idx-before)
	end := min(len(s), idx+after)
	for start > 0 && !utf8.RuneStart(s[start]) {
		start--
	}
	for end < len(s) && !utf8.RuneStart(s[end]) {
		end++
	}
	return compact(s[start:end])
}

// findSectionLike approximates a section by the text around the first
// keyword found, trying keywords in order.
func findSectionLike(text string, keywords []string) string {
	const width = 180
	lower := strings.ToLower(text)
	// Non-ASCII case folding can change byte offsets; fall back to the
	// lowercased text so indexes stay valid.
	src := text
	if len(lower) != len(text) {
		src = lower
	}
	for _, kw := range keywords {
		if idx := strings.Index(lower, kw); idx >= 0 {
			return window(src, idx, width/2, width)
		}
	}
	return ""
}

// snippetAround returns the text centred on the first occurrence of token.
func snippetAround(text, token string, width int) string {
	idx := strings.Index(text, token)
	if idx < 0 {
		return ""
	}
	return window(text, idx, width/2, width/2)
}

// findFirst returns the first candidate contained in text.
func findFirst(text string, candidates []string) string {
	for _, c := range candidates {
		if strings.Contains(text, c) {
			return c
		}
	}
	return ""
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
