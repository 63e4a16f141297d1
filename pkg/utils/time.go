package utils

import "time"

// sortableNano keeps every fractional digit so formatted times compare
// lexically in time order
const sortableNano = "2006-01-02T15:04:05.000000000Z07:00"

// FormatRFC3339 renders t in UTC with RFC3339 precision
func FormatRFC3339(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// FormatRFC3339Nano renders t in UTC keeping sub-second precision, so
// stored timestamps sort the same way the times they came from do.
func FormatRFC3339Nano(t time.Time) string {
	return t.UTC().Format(sortableNano)
}

// ParseRFC3339 parses a time string in RFC3339 format, with or without
// fractional seconds
func ParseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
