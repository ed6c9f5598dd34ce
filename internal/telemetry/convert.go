package telemetry

import (
	"strconv"
	"strings"
)

// The two backends report the same quantity under different key names
// depending on tool and firmware version. Each canonical field therefore has
// an ordered key-priority list: the first present and numerically convertible
// value wins, and values are never merged across keys.

// firstFloat returns the first key in priority order whose value converts to
// a float, or nil when none does.
func firstFloat(payload map[string]interface{}, keys ...string) *float64 {
	for _, key := range keys {
		raw, ok := payload[key]
		if !ok {
			continue
		}
		if v, ok := toFloat(raw); ok {
			return &v
		}
	}
	return nil
}

// firstUint returns the first key in priority order whose value converts to
// a non-negative integer, or nil when none does.
func firstUint(payload map[string]interface{}, keys ...string) *uint64 {
	for _, key := range keys {
		raw, ok := payload[key]
		if !ok {
			continue
		}
		if v, ok := toUint(raw); ok {
			return &v
		}
	}
	return nil
}

// toFloat converts loosely typed backend values. rocm-smi reports every value
// as a string; the library backend reports numbers. "N/A" and empty strings
// mean unknown.
func toFloat(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		s := strings.TrimSpace(v)
		if s == "" || strings.EqualFold(s, "N/A") {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// toUint converts loosely typed backend values to a counter value. Fractional
// or negative inputs do not round into a counter; they are treated as unknown.
func toUint(raw interface{}) (uint64, bool) {
	switch v := raw.(type) {
	case uint64:
		return v, true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case float64:
		if v < 0 || v != float64(uint64(v)) {
			return 0, false
		}
		return uint64(v), true
	case string:
		s := strings.TrimSpace(v)
		if s == "" || strings.EqualFold(s, "N/A") {
			return 0, false
		}
		u, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0, false
		}
		return u, true
	default:
		return 0, false
	}
}
