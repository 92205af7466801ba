// config/parse.go
package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
)

// parseDurationFlexible accepts strings like "90s"/"2m", numeric seconds, or time.Duration.
// Returns def on empty/unknown types; returns def + error on invalid or non-positive values.
func parseDurationFlexible(raw any, def time.Duration) (time.Duration, error) {
	var secs float64
	switch t := raw.(type) {
	case time.Duration:
		if t <= 0 {
			return def, fmt.Errorf("duration must be >0")
		}
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return def, nil
		}
		if d, err := time.ParseDuration(s); err == nil {
			if d <= 0 {
				return def, fmt.Errorf("duration must be >0")
			}
			return d, nil
		}
		// Allow plain seconds in string form, e.g. "120"
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return def, fmt.Errorf("cannot parse duration %q", s)
		}
		secs = n
	case int:
		secs = float64(t)
	case int32:
		secs = float64(t)
	case int64:
		secs = float64(t)
	case float64:
		secs = t
	default:
		// Unknown type (nil, bool, etc.) – use default, no error
		return def, nil
	}
	if secs <= 0 {
		return def, fmt.Errorf("seconds must be >0")
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// parseByteSize accepts a byte count (int, int64, float64 or a digit
// string) or a size string understood by datasize, e.g. "512KB", "2MB",
// "1 GB" (binary multiples). Returns def for nil and empty strings.
func parseByteSize(raw any, def int64) (int64, error) {
	switch t := raw.(type) {
	case nil:
		return def, nil
	case int:
		return checkSize(float64(t))
	case int32:
		return checkSize(float64(t))
	case int64:
		if t < 0 {
			return 0, fmt.Errorf("size must be >= 0, got %d", t)
		}
		return t, nil
	case uint64:
		if t > math.MaxInt64 {
			return 0, fmt.Errorf("size %d is too large", t)
		}
		return int64(t), nil
	case float64:
		return checkSize(t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return def, nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return checkSize(float64(n))
		}
		var size datasize.ByteSize
		if err := size.UnmarshalText([]byte(s)); err != nil {
			return 0, fmt.Errorf("cannot parse size %q: %w", s, err)
		}
		if size.Bytes() > math.MaxInt64 {
			return 0, fmt.Errorf("size %q is too large", s)
		}
		return int64(size.Bytes()), nil
	default:
		return 0, fmt.Errorf("unsupported size value %v (%T)", raw, raw)
	}
}

func checkSize(n float64) (int64, error) {
	if n < 0 {
		return 0, fmt.Errorf("size must be >= 0, got %v", n)
	}
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("size %v is too large", n)
	}
	return int64(n), nil
}
