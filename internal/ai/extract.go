package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/amishk599/leadradar/internal/model"
)

// jsonFenceRegex matches a fenced code block explicitly labeled as JSON.
var jsonFenceRegex = regexp.MustCompile("(?is)```[ \\t]*json[ \\t]*\\r?\\n?(.*?)```")

// ExtractJSON pulls a JSON object out of free-form classifier text.
// A fenced block labeled json wins; otherwise the first balanced top-level
// {...} span is returned. Returns model.ErrNoStructuredOutput if neither exists.
func ExtractJSON(text string) (string, error) {
	if m := jsonFenceRegex.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), nil
	}
	if span, ok := firstObjectSpan(text); ok {
		return span, nil
	}
	return "", model.ErrNoStructuredOutput
}

// firstObjectSpan scans for the first '{' and returns the text up to its
// matching '}', honoring JSON string literals and escapes.
func firstObjectSpan(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// DecodeObject extracts and unmarshals the JSON object in text.
// Extraction failures return model.ErrNoStructuredOutput; anything that is
// not a JSON object returns model.ErrMalformedJSON.
func DecodeObject(text string) (map[string]any, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedJSON, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: null object", model.ErrMalformedJSON)
	}
	return obj, nil
}

// StringField returns obj[key] as a string. Missing or null keys yield "".
func StringField(obj map[string]any, key string) (string, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is %T, want string", model.ErrMalformedJSON, key, v)
	}
	return s, nil
}

// NumberField returns obj[key] as a float64 and whether it was present.
func NumberField(obj map[string]any, key string) (float64, bool, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	f, ok := v.(float64)
	if !ok {
		return 0, true, fmt.Errorf("%w: %s is %T, want number", model.ErrMalformedJSON, key, v)
	}
	return f, true, nil
}

// StringListField returns obj[key] as a list of strings. A bare string is
// accepted as a single-element list since models often collapse short lists.
func StringListField(obj map[string]any, key string) ([]string, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil, nil
		}
		return []string{t}, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s contains %T, want string", model.ErrMalformedJSON, key, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s is %T, want list", model.ErrMalformedJSON, key, v)
	}
}
