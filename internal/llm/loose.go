// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Model answers drift from the requested shape: a list where a string was
// asked for, a quoted number, a single string instead of a list. The Loose
// types decode whatever arrives into the requested Go type and never fail.

// String decodes any JSON value into text. Lists are joined with "; ",
// objects are kept as compact JSON, and null becomes "".
type String string

func (s *String) UnmarshalJSON(data []byte) error {
	*s = String(looseText(data))
	return nil
}

// Strings decodes a JSON list, or a single scalar, into a list of
// non-empty strings.
type Strings []string

func (s *Strings) UnmarshalJSON(data []byte) error {
	if looseText(data) == "" {
		*s = nil
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		if text := looseText(data); text != "" {
			*s = Strings{text}
		} else {
			*s = nil
		}
		return nil
	}
	out := make(Strings, 0, len(items))
	for _, item := range items {
		if text := looseText(item); text != "" {
			out = append(out, text)
		}
	}
	*s = out
	return nil
}

// Float decodes a JSON number or a numeric string. Anything else is 0.
type Float float64

func (f *Float) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = Float(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*f = Float(n)
			return nil
		}
	}
	*f = 0
	return nil
}

// Clamp01 returns f limited to [0,1].
func (f Float) Clamp01() float64 {
	return min(max(float64(f), 0), 1)
}

func looseText(data []byte) string {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return ""
	}
	switch data[0] {
	case '"':
		var s string
		if json.Unmarshal(data, &s) == nil {
			return strings.TrimSpace(s)
		}
	case '[':
		var items []json.RawMessage
		if json.Unmarshal(data, &items) == nil {
			parts := make([]string, 0, len(items))
			for _, item := range items {
				if text := looseText(item); text != "" {
					parts = append(parts, text)
				}
			}
			return strings.Join(parts, "; ")
		}
	case '{':
		var buf bytes.Buffer
		if json.Compact(&buf, data) == nil {
			return buf.String()
		}
	}
	return string(data)
}
