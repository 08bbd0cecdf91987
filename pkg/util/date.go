package util

import (
	"strconv"
	"time"
)

// forecast responses key rows by a bare datetime string without a zone
const plainDateTime = "2006-01-02 15:04:05"

// ParseTime tries RFC3339, RFC3339Nano, a plain "YYYY-MM-DD HH:MM:SS" form,
// and unix seconds or milliseconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(plainDateTime, s); err == nil {
		return t.UTC(), true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		// heuristics: values past year 33658 in seconds are milliseconds
		if ts > 1e12 {
			return time.UnixMilli(ts).UTC(), true
		}
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// FormatPlain renders t in the zone-less form used for forecast payload rows.
func FormatPlain(t time.Time) string {
	return t.UTC().Format(plainDateTime)
}
