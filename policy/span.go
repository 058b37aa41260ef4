package policy

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Span is a duration written either as a number of seconds or as a compact string
// such as "30m", "12h", "7d", "2 days", or "1.5h".
type Span time.Duration

// Duration converts s to a time.Duration.
func (s Span) Duration() time.Duration { return time.Duration(s) }

var spanUnits = map[string]time.Duration{
	"ms": time.Millisecond, "msec": time.Millisecond, "msecs": time.Millisecond,
	"millisecond": time.Millisecond, "milliseconds": time.Millisecond,
	"s": time.Second, "sec": time.Second, "secs": time.Second,
	"second": time.Second, "seconds": time.Second,
	"m": time.Minute, "min": time.Minute, "mins": time.Minute,
	"minute": time.Minute, "minutes": time.Minute,
	"h": time.Hour, "hr": time.Hour, "hrs": time.Hour,
	"hour": time.Hour, "hours": time.Hour,
	"d": 24 * time.Hour, "day": 24 * time.Hour, "days": 24 * time.Hour,
	"w": 7 * 24 * time.Hour, "week": 7 * 24 * time.Hour, "weeks": 7 * 24 * time.Hour,
	"y": 8766 * time.Hour, "yr": 8766 * time.Hour, "yrs": 8766 * time.Hour,
	"year": 8766 * time.Hour, "years": 8766 * time.Hour,
}

// ParseSpan parses the string forms accepted by Span. A bare number is milliseconds,
// matching the string form used by most JWT libraries.
func ParseSpan(in string) (Span, error) {
	s := strings.ToLower(strings.TrimSpace(in))
	if s == "" {
		return 0, fmt.Errorf("policy: empty duration")
	}
	i := 0
	for i < len(s) && (s[i] == '.' || s[i] == '-' || (s[i] >= '0' && s[i] <= '9')) {
		i++
	}
	num, err := strconv.ParseFloat(s[:i], 64)
	if err != nil {
		return 0, fmt.Errorf("policy: invalid duration %q", in)
	}
	unit := strings.TrimSpace(s[i:])
	if unit == "" {
		unit = "ms"
	}
	mult, ok := spanUnits[unit]
	if !ok {
		return 0, fmt.Errorf("policy: invalid duration unit in %q", in)
	}
	return Span(num * float64(mult)), nil
}

// UnmarshalJSON accepts a number of seconds or a duration string.
func (s *Span) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*s = 0
	case float64:
		*s = Span(v * float64(time.Second))
	case string:
		parsed, err := ParseSpan(v)
		if err != nil {
			return err
		}
		*s = parsed
	default:
		return fmt.Errorf("policy: duration must be a number or string, got %T", raw)
	}
	return nil
}

// MarshalJSON writes s as a Go duration string.
func (s Span) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(s).String())
}
