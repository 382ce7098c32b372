package models

import "time"

// TimeLayout is ISO 8601 in UTC with millisecond precision, e.g. 2024-05-01T12:00:00.000Z.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}
