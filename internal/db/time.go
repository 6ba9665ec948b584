package db

import "time"

// timeLayout matches SQLite's datetime('now') output.
const timeLayout = "2006-01-02 15:04:05"

func nowString() string {
	return time.Now().UTC().Format(timeLayout)
}

// parseTimestamp accepts the formats a timestamp column can hold: the
// datetime('now') layout plus RFC3339 variants written by Go code.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{
		timeLayout,
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999-07:00",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
