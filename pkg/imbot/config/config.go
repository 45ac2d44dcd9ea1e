package config

import (
	"time"

	"github.com/randalmurphal/imbot/pkg/imbot/event"
)

// Config wraps a map[string]any for type-safe value extraction.
// All accessor methods return default values if the key is missing
// or the value cannot be converted to the requested type.
type Config struct {
	data map[string]any
}

// New creates a Config from the given map.
// If data is nil, an empty Config is returned.
func New(data map[string]any) Config {
	if data == nil {
		data = make(map[string]any)
	}
	return Config{data: data}
}

// String returns the string value for key, or defaultVal if missing or not a string.
func (c Config) String(key, defaultVal string) string {
	if s, ok := c.data[key].(string); ok {
		return s
	}
	return defaultVal
}

// Bool returns the boolean value for key, or defaultVal if missing or not a bool.
func (c Config) Bool(key string, defaultVal bool) bool {
	if b, ok := c.data[key].(bool); ok {
		return b
	}
	return defaultVal
}

// Int returns the integer value for key, or defaultVal if missing or not convertible.
func (c Config) Int(key string, defaultVal int) int {
	if n, ok := toInt64(c.data[key]); ok {
		return int(n)
	}
	return defaultVal
}

// Int64 returns the 64-bit integer value for key. Bot and contact IDs use it.
func (c Config) Int64(key string, defaultVal int64) int64 {
	if n, ok := toInt64(c.data[key]); ok {
		return n
	}
	return defaultVal
}

// Int64Slice returns a list of 64-bit integers, or defaultVal if any element
// is not an integer.
func (c Config) Int64Slice(key string, defaultVal []int64) []int64 {
	raw, ok := c.data[key].([]any)
	if !ok {
		return defaultVal
	}
	out := make([]int64, 0, len(raw))
	for _, item := range raw {
		n, ok := toInt64(item)
		if !ok {
			return defaultVal
		}
		out = append(out, n)
	}
	return out
}

// Duration returns the duration value for key, or defaultVal if missing or invalid.
//
// Accepts:
//   - string: parsed with time.ParseDuration
//   - int, int64, float64: interpreted as seconds
//   - time.Duration: used directly
func (c Config) Duration(key string, defaultVal time.Duration) time.Duration {
	switch val := c.data[key].(type) {
	case string:
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	case float64:
		return time.Duration(val * float64(time.Second))
	case int:
		return time.Duration(val) * time.Second
	case int64:
		return time.Duration(val) * time.Second
	case time.Duration:
		return val
	}
	return defaultVal
}

// StringSlice returns the string slice for key, or defaultVal if missing or not convertible.
func (c Config) StringSlice(key string, defaultVal []string) []string {
	switch val := c.data[key].(type) {
	case []string:
		return val
	case []any:
		result := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return defaultVal
			}
			result = append(result, s)
		}
		return result
	}
	return defaultVal
}

// Priority returns the listener priority named by key, or defaultVal if
// missing or not a known priority name.
func (c Config) Priority(key string, defaultVal event.Priority) event.Priority {
	s, ok := c.data[key].(string)
	if !ok {
		return defaultVal
	}
	p, err := event.ParsePriority(s)
	if err != nil {
		return defaultVal
	}
	return p
}

// Section returns the nested map under key as a Config.
// A missing or non-map value yields an empty Config.
func (c Config) Section(key string) Config {
	if m, ok := c.data[key].(map[string]any); ok {
		return New(m)
	}
	return New(nil)
}

// Sections returns the list of maps under key, skipping non-map elements.
func (c Config) Sections(key string) []Config {
	raw, ok := c.data[key].([]any)
	if !ok {
		return nil
	}
	out := make([]Config, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, New(m))
		}
	}
	return out
}

// Has returns true if the key exists in the config.
func (c Config) Has(key string) bool {
	_, ok := c.data[key]
	return ok
}

// Raw returns the underlying map.
// The returned map should not be modified.
func (c Config) Raw() map[string]any {
	return c.data
}

func toInt64(v any) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int64:
		return val, true
	case float64:
		// Only convert if there's no fractional part
		if val == float64(int64(val)) {
			return int64(val), true
		}
	}
	return 0, false
}
