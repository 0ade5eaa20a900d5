// Package models defines the record model of a chat backup: assistants,
// conversations, messages and their typed parts.
package models

import (
	"time"
)

// TimestampLayout is the display format used by exports and listings.
const TimestampLayout = "2006-01-02 15:04:05"

// FromEpochMillis converts a millisecond Unix timestamp to UTC time.
// Zero or negative input yields the zero time.
func FromEpochMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// FormatTimestamp renders t for display, or "" for the zero time.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(TimestampLayout)
}

// localLayouts are the shapes a message timestamp may take in the
// backup's JSON blobs. Offsets are optional; naive values are wall-clock
// time in the device's zone.
var localLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	TimestampLayout,
}

// ParseTimestamp parses a stored timestamp string, reading values without
// an offset as UTC. Numeric strings are not accepted here; use
// FromEpochMillis for those.
func ParseTimestamp(s string) (time.Time, bool) {
	return ParseTimestampIn(s, time.UTC)
}

// ParseTimestampIn is like ParseTimestamp but reads values without an
// offset as wall-clock time in loc. A nil loc means UTC. The result is
// always in UTC.
func ParseTimestampIn(s string, loc *time.Location) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
