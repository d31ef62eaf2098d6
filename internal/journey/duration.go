package journey

import (
	"strconv"
	"strings"
	"time"
)

// UnknownDays is returned by DaysSince when the timestamp is absent or unparseable. It means
// "unknown or very stale", not a real day count.
const UnknownDays = 999

const day = 24 * time.Hour

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts ISO-8601 date-times, plain dates and epoch-millisecond strings.
// Timestamps without a zone are read as UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if isDigits(s) {
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return time.UnixMilli(ms).UTC(), true
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// DaysSince returns whole days between ts and now, rounding any partial day up. The distance is
// absolute, so future timestamps count the same way.
func DaysSince(ts string, now time.Time) int {
	t, ok := ParseTimestamp(ts)
	if !ok {
		return UnknownDays
	}
	return elapsedDays(t, now)
}

// DaysInStage is DaysSince with 0 for absent or unparseable timestamps.
func DaysInStage(ts string, now time.Time) int {
	t, ok := ParseTimestamp(ts)
	if !ok {
		return 0
	}
	return elapsedDays(t, now)
}

// elapsedDays subtracts from the later instant. Sub saturates at the int64 bounds and negating
// the lower bound overflows.
func elapsedDays(t, now time.Time) int {
	var d time.Duration
	if t.After(now) {
		d = t.Sub(now)
	} else {
		d = now.Sub(t)
	}
	days := d / day
	if d%day != 0 {
		days++
	}
	return int(days)
}
