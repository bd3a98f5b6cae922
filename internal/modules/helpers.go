package modules

import (
	"encoding/json"
	"fmt"
)

// ToJSON marshals a value to indented JSON for tool output.
func ToJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal response: %w", err)
	}
	return string(data), nil
}

// GetString reads a string parameter with a default.
func GetString(params map[string]any, key, def string) string {
	if v, ok := params[key].(string); ok && v != "" {
		return v
	}
	return def
}

// GetInt reads a numeric parameter with a default. JSON numbers decode as
// float64.
func GetInt(params map[string]any, key string, def int) int {
	if v, ok := params[key].(float64); ok {
		return int(v)
	}
	return def
}

// GetBool reads a boolean parameter with a default.
func GetBool(params map[string]any, key string, def bool) bool {
	if v, ok := params[key].(bool); ok {
		return v
	}
	return def
}

// ToStringSlice converts a JSON array parameter to []string, skipping
// non-string elements.
func ToStringSlice(v any) []string {
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
