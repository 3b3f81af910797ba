package store

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Coerce converts a raw string into the value it most likely represents:
// a JSON list/map/quoted string, a boolean keyword, an integer, a float, or,
// when nothing else parses, the string itself. It never fails.
//
// Values that must pass through a string-only transport (command arguments,
// TEXT columns) lose their type on the way in; Coerce restores it on the way
// back. A string that merely looks numeric ("007") comes back as a number,
// so callers that need literal-string semantics must quote the input.
func Coerce(raw string) any {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if v, ok := decodeStructured(s); ok {
		return v
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// decodeStructured parses JSON lists, maps and quoted strings. Bare scalars
// take the strconv path in Coerce so that integers stay integral.
func decodeStructured(s string) (any, bool) {
	switch s[0] {
	case '[', '{', '"':
	default:
		return nil, false
	}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if dec.More() {
		return nil, false
	}
	return normalizeNumbers(v), true
}

// normalizeNumbers rewrites json.Number leaves into int64 where the value is
// integral, float64 otherwise, so cached values compare predictably.
func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if n, err := strconv.ParseInt(t.String(), 10, 64); err == nil {
			return n
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case []any:
		for i := range t {
			t[i] = normalizeNumbers(t[i])
		}
		return t
	case map[string]any:
		for k := range t {
			t[k] = normalizeNumbers(t[k])
		}
		return t
	default:
		return v
	}
}
