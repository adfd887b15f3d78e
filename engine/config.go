package engine

import (
	"strconv"

	"github.com/Jeffail/gabs/v2"
)

// Node config payloads come from the visual designer as loosely typed JSON.
// These helpers read them defensively; a missing or mistyped value falls back
// to the handler's default instead of failing the call.

func cfgString(cfg map[string]any, key, def string) string {
	if v, ok := cfg[key].(string); ok && v != "" {
		return v
	}
	return def
}

func cfgInt(cfg map[string]any, key string, def int) int {
	switch v := cfg[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func cfgBool(cfg map[string]any, key string, def bool) bool {
	switch v := cfg[key].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "1"
	}
	return def
}

func cfgStrings(cfg map[string]any, key string) []string {
	raw, ok := cfg[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		switch s := v.(type) {
		case string:
			out = append(out, s)
		case float64:
			out = append(out, strconv.Itoa(int(s)))
		case int:
			out = append(out, strconv.Itoa(s))
		}
	}
	return out
}

func cfgInts(cfg map[string]any, key string, def []int) []int {
	raw, ok := cfg[key].([]any)
	if !ok {
		return def
	}
	out := make([]int, 0, len(raw))
	for _, v := range raw {
		switch n := v.(type) {
		case int:
			out = append(out, n)
		case float64:
			out = append(out, int(n))
		case string:
			if i, err := strconv.Atoi(n); err == nil {
				out = append(out, i)
			}
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// cfgObject reads a nested JSON object from config. Designers save these
// either as real objects or as JSON-encoded strings, so both are accepted.
func cfgObject(cfg map[string]any, key string) map[string]any {
	switch v := cfg[key].(type) {
	case map[string]any:
		return v
	case string:
		if v == "" {
			return nil
		}
		parsed, err := gabs.ParseJSON([]byte(v))
		if err != nil {
			return nil
		}
		if m, ok := parsed.Data().(map[string]any); ok {
			return m
		}
	}
	return nil
}

// cfgStringMap flattens a cfgObject into string values, for header maps.
func cfgStringMap(cfg map[string]any, key string) map[string]string {
	obj := cfgObject(cfg, key)
	if obj == nil {
		return nil
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
