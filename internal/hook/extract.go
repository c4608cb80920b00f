package hook

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Provider payloads come in several schema generations that move the same
// logical field around (actor_fid vs user.fid vs follower_fid, ...). Each
// logical field is described by an ordered list of dotted paths; the first
// path that yields a usable value wins, and the order is part of the
// contract because different generations populate overlapping subsets.

// fieldPaths is an ordered fallback chain of dotted paths into a decoded
// JSON object.
type fieldPaths []string

// lookup walks one dotted path through nested maps.
func lookup(data map[string]any, path string) (any, bool) {
	if data == nil {
		return nil, false
	}
	cur := any(data)
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// str returns the first non-empty string value along the chain.
func (p fieldPaths) str(data map[string]any) (string, bool) {
	for _, path := range p {
		v, ok := lookup(data, path)
		if !ok {
			continue
		}
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// present reports whether any path along the chain exists with a non-nil,
// non-empty value.
func (p fieldPaths) present(data map[string]any) bool {
	for _, path := range p {
		v, ok := lookup(data, path)
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && s == "" {
			continue
		}
		return true
	}
	return false
}

// id returns the first value along the chain that coerces to a positive
// integer identifier. Non-numeric values are skipped, never mapped to 0.
func (p fieldPaths) id(data map[string]any) (int64, bool) {
	for _, path := range p {
		v, ok := lookup(data, path)
		if !ok {
			continue
		}
		if n, ok := coerceID(v); ok {
			return n, true
		}
	}
	return 0, false
}

// num returns the first value along the chain that coerces to a float.
func (p fieldPaths) num(data map[string]any) (float64, bool) {
	for _, path := range p {
		v, ok := lookup(data, path)
		if !ok {
			continue
		}
		if f, ok := coerceFloat(v); ok {
			return f, true
		}
	}
	return 0, false
}

func coerceID(v any) (int64, bool) {
	switch x := v.(type) {
	case float64:
		n := int64(x)
		if n > 0 && float64(n) == x {
			return n, true
		}
	case int64:
		if x > 0 {
			return x, true
		}
	case int:
		if x > 0 {
			return int64(x), true
		}
	case json.Number:
		if n, err := x.Int64(); err == nil && n > 0 {
			return n, true
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil && n > 0 {
			return n, true
		}
	}
	return 0, false
}

func coerceFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f, true
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// strList returns the first value along the chain that is a list of strings.
func (p fieldPaths) strList(data map[string]any) ([]string, bool) {
	for _, path := range p {
		v, ok := lookup(data, path)
		if !ok {
			continue
		}
		arr, ok := v.([]any)
		if !ok {
			continue
		}
		out := make([]string, 0, len(arr))
		for _, it := range arr {
			if s, ok := it.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out, true
		}
	}
	return nil, false
}

// obj returns the first value along the chain that is a JSON object.
func (p fieldPaths) obj(data map[string]any) (map[string]any, bool) {
	for _, path := range p {
		v, ok := lookup(data, path)
		if !ok {
			continue
		}
		if m, ok := v.(map[string]any); ok && len(m) > 0 {
			return m, true
		}
	}
	return nil, false
}
