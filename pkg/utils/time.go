package utils

import "time"

// Stored timestamps keep nanosecond precision so the strictly-increasing
// UpdatedAt guarantee survives a round trip through persistence.

// FormatTimestamp renders a time for storage in RFC3339 with nanoseconds
func FormatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

// ParseTimestamp parses a stored RFC3339 timestamp, with or without
// fractional seconds
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
