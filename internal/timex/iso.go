package timex

import (
	"fmt"
	"time"
)

// ISOLayout is the fixed-width UTC layout used for every stored timestamp.
// Fixed width keeps lexicographic order equal to chronological order, which
// the range scans over the compound indexes rely on.
const ISOLayout = "2006-01-02T15:04:05.000Z"

// Normalize drops the monotonic reading and sub-millisecond precision and
// converts to UTC, so a value survives a store round trip unchanged.
func Normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// FormatISO renders t in ISOLayout.
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// ParseISO parses a timestamp written by FormatISO. RFC 3339 input is
// accepted as well since remote snapshots may carry other precisions.
func ParseISO(s string) (time.Time, error) {
	if t, err := time.Parse(ISOLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return Normalize(t), nil
}

// Clock returns the current time. Services take one so tests can pin it.
type Clock func() time.Time

// SystemClock is the production Clock.
func SystemClock() time.Time {
	return Normalize(time.Now())
}
