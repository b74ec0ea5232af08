package model

import (
	"strings"
	"time"
)

const DayLayout = "2006-01-02"

// ParseDay turns a calendar date into its day key: midnight of that day in
// the server's local zone. RFC 3339 timestamps are accepted and keep the
// calendar day they name.
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(DayLayout, s, time.Local); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DayOf(t), nil
	}
	return time.Time{}, Invalid("Invalid date, expected YYYY-MM-DD")
}

// DayOf re-keys t onto local midnight of the calendar day shown by t's own
// location. Dates read back from storage come in as UTC midnight and must go
// through here.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

// Today is the day key for now in server local time.
func Today(now time.Time) time.Time {
	return DayOf(now.In(time.Local))
}

// FormatDay renders a day key the way it is stored.
func FormatDay(t time.Time) string {
	return t.Format(DayLayout)
}
