package scenario

import (
	"fmt"
	"time"
)

// Params carries kind-specific fault parameters. Values come from YAML, so
// numbers may arrive as int or float64; the accessors normalize both.
type Params map[string]any

// Float returns the parameter as a float64, or def when absent or not
// numeric. Percentages given as "50%" strings are also accepted.
func (p Params) Float(key string, def float64) float64 {
	v, ok := p[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		var pct float64
		if _, err := fmt.Sscanf(n, "%f%%", &pct); err == nil {
			return pct / 100
		}
		return def
	default:
		return def
	}
}

// Int returns the parameter as an int, or def when absent or not numeric.
func (p Params) Int(key string, def int) int {
	v, ok := p[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return def
	}
}

// String returns the parameter as a string, or def when absent.
func (p Params) String(key, def string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return def
}

// Millis interprets an integer parameter as milliseconds.
func (p Params) Millis(key string, def time.Duration) time.Duration {
	v, ok := p[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return time.Duration(n) * time.Millisecond
	case int64:
		return time.Duration(n) * time.Millisecond
	case float64:
		return time.Duration(n * float64(time.Millisecond))
	default:
		return def
	}
}
