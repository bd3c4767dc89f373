// Package mapsafe reads loosely typed values out of backend parameter maps.
package mapsafe

import "strings"

// Get retrieves a typed value from a map[string]any.
// Numeric values are converted between int and float64; anything else must
// match T exactly. A missing key or a mismatched type yields defaultValue.
func Get[T any](m map[string]any, key string, defaultValue T) T {
	val, ok := m[key]
	if !ok || val == nil {
		return defaultValue
	}

	switch any(defaultValue).(type) {
	case int:
		switch x := val.(type) {
		case int:
			return any(x).(T)
		case int64:
			return any(int(x)).(T)
		case float64:
			return any(int(x)).(T)
		}
	case float64:
		switch x := val.(type) {
		case float64:
			return any(x).(T)
		case int:
			return any(float64(x)).(T)
		case int64:
			return any(float64(x)).(T)
		}
	default:
		if v, ok := val.(T); ok {
			return v
		}
	}

	return defaultValue
}

// String returns the trimmed string stored under key, or "" when the key is
// missing, not a string, or blank.
func String(m map[string]any, key string) string {
	return strings.TrimSpace(Get(m, key, ""))
}
