package projector

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Time encoding modes understood by EncodeTime.
const (
	ModeTimestamp = "timestamp"
	ModeMillis    = "ms"
	ModeSeconds   = "s"
)

const isoLayout = "2006-01-02T15:04:05.000Z"

// NormalizeTimeMode maps the accepted aliases onto ModeMillis, ModeSeconds or ModeTimestamp.
func NormalizeTimeMode(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "ms", "epoch_ms", "bigint":
		return ModeMillis
	case "s", "sec", "seconds", "epoch_s":
		return ModeSeconds
	default:
		return ModeTimestamp
	}
}

// EncodeTime renders epoch milliseconds in the column type selected by mode:
// integer milliseconds, integer seconds (floored) or an ISO-8601 UTC string.
func EncodeTime(ms int64, mode string) any {
	switch NormalizeTimeMode(mode) {
	case ModeMillis:
		return ms
	case ModeSeconds:
		return floorDiv(ms, 1000)
	default:
		return time.UnixMilli(ms).UTC().Format(isoLayout)
	}
}

// DecodeTime converts a value produced by EncodeTime back to epoch milliseconds.
func DecodeTime(v any, mode string) (int64, error) {
	switch NormalizeTimeMode(mode) {
	case ModeMillis:
		return toInt64(v)
	case ModeSeconds:
		s, err := toInt64(v)
		if err != nil {
			return 0, err
		}
		return s * 1000, nil
	default:
		return parseTimeValue(v)
	}
}

// TimeToMillis reads a stored time value of any supported encoding as epoch
// milliseconds. Numbers are taken as they are; strings are parsed as RFC 3339.
func TimeToMillis(v any) (int64, error) {
	switch t := v.(type) {
	case string:
		return parseTimeValue(t)
	case time.Time:
		return t.UnixMilli(), nil
	default:
		return toInt64(v)
	}
}

func parseTimeValue(v any) (int64, error) {
	switch t := v.(type) {
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return 0, fmt.Errorf("parse time %q: %w", t, err)
		}
		return parsed.UnixMilli(), nil
	case time.Time:
		return t.UnixMilli(), nil
	default:
		return 0, fmt.Errorf("unsupported time value %T", v)
	}
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("unsupported numeric time value %T", v)
	}
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// DefaultInterval is used when an interval code cannot be parsed.
const DefaultInterval = 4 * time.Hour

// IntervalDuration parses interval codes of the form <N><unit> with unit
// m, h or d. Anything else falls back to DefaultInterval.
func IntervalDuration(code string) time.Duration {
	s := strings.ToLower(strings.TrimSpace(code))
	if len(s) < 2 {
		return DefaultInterval
	}
	var unit time.Duration
	switch s[len(s)-1] {
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	case 'd':
		unit = 24 * time.Hour
	default:
		return DefaultInterval
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return DefaultInterval
	}
	return time.Duration(n) * unit
}

// IntervalMillis is IntervalDuration in milliseconds.
func IntervalMillis(code string) int64 {
	return IntervalDuration(code).Milliseconds()
}
