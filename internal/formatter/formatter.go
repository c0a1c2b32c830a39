// package formatter handles timestamp parsing and the human-facing date
// format used in the visible log section.
package formatter

import (
	"fmt"
	"time"
)

// logDateLayout renders as e.g. "November 12, 2025 at 10:42AM".
const logDateLayout = "January 2, 2006 at 3:04PM"

// ParsePlayedAt parses a provider played-at timestamp (ISO-8601, UTC) into an
// aware UTC time.
func ParsePlayedAt(playedAt string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, playedAt)
	if err != nil {
		// Some providers omit fractional seconds or the Z suffix.
		t, err = time.Parse("2006-01-02T15:04:05", playedAt)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse played_at %q: %w", playedAt, err)
		}
	}
	return t.UTC(), nil
}

// PlayedAtMillis converts a played-at timestamp to epoch milliseconds.
func PlayedAtMillis(playedAt string) (int64, error) {
	t, err := ParsePlayedAt(playedAt)
	if err != nil {
		return 0, err
	}
	return t.UnixMilli(), nil
}

// Location resolves an IANA timezone name, falling back to UTC when the name
// is empty or unknown.
func Location(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// FormatLogDate renders a played-at timestamp in the tenant's timezone using
// the log date format.
func FormatLogDate(playedAt string, loc *time.Location) (string, error) {
	t, err := ParsePlayedAt(playedAt)
	if err != nil {
		return "", err
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(logDateLayout), nil
}

// NowUTC returns the current UTC time as an ISO-8601 string with a Z suffix.
func NowUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}
