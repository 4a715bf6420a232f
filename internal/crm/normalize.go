package crm

import (
	"strconv"
	"strings"
)

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// listOf accepts a bare array or an envelope with results/data/items.
func listOf(data any) []any {
	switch v := data.(type) {
	case []any:
		return v
	case map[string]any:
		for _, key := range []string{"results", "data", "items"} {
			switch inner := v[key].(type) {
			case []any:
				return inner
			case map[string]any:
				if nested := listOf(inner); nested != nil {
					return nested
				}
			}
		}
	}
	return nil
}

// unwrap returns m["data"] when it is an object, otherwise m.
func unwrap(data any) map[string]any {
	m := asMap(data)
	if inner := asMap(m["data"]); inner != nil {
		return inner
	}
	return m
}

func lookup(m map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func str(m map[string]any, keys ...string) string {
	v, ok := lookup(m, keys)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

func num(m map[string]any, keys ...string) float64 {
	v, ok := lookup(m, keys)
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	case bool:
		if t {
			return 1
		}
	}
	return 0
}

func integer(m map[string]any, keys ...string) int {
	return int(num(m, keys...))
}

func boolean(m map[string]any, keys ...string) bool {
	v, ok := lookup(m, keys)
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(t))
		return b
	}
	return false
}

// ref reads a foreign key that may be a bare id or a nested {"id": ...}
// object. Missing, null and non-positive ids yield nil.
func ref(m map[string]any, keys ...string) *int {
	v, ok := lookup(m, keys)
	if !ok {
		return nil
	}
	var id int
	switch t := v.(type) {
	case map[string]any:
		id = integer(t, "id")
	default:
		id = integer(map[string]any{"v": t}, "v")
	}
	if id <= 0 {
		return nil
	}
	return &id
}

// refName returns the nested object's name when the reference is expanded.
func refName(m map[string]any, key string) string {
	if inner := asMap(m[key]); inner != nil {
		return str(inner, "name", "full_name", "title")
	}
	return ""
}

func strList(m map[string]any, keys ...string) []string {
	v, ok := lookup(m, keys)
	if !ok {
		return []string{}
	}
	out := []string{}
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	case string:
		for _, part := range strings.Split(t, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
