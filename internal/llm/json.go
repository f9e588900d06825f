package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON is returned when a model answer contains no decodable JSON
var ErrNoJSON = errors.New("no JSON found in response")

// StripCodeFence removes a surrounding markdown code fence
func StripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:] // drop language tag
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// DecodeJSON decodes a model answer into v.
// It tries the whole answer first, then the span from the first '{' to the
// last '}', then the span from the first '[' to the last ']'.
func DecodeJSON(raw string, v any) error {
	text := StripCodeFence(raw)
	if text == "" {
		return ErrNoJSON
	}
	if err := json.Unmarshal([]byte(text), v); err == nil {
		return nil
	}

	for _, delims := range [][2]string{{"{", "}"}, {"[", "]"}} {
		span, ok := between(text, delims[0], delims[1])
		if !ok {
			continue
		}
		if err := json.Unmarshal([]byte(span), v); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrNoJSON, truncate(text, 80))
}

func between(s, open, close string) (string, bool) {
	start := strings.Index(s, open)
	end := strings.LastIndex(s, close)
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
