package helpers

import (
	"strings"
	"time"
)

// Brazilian display layouts used in patient-facing messages.
const (
	DateLayoutBR = "02/01/2006"
	DateLayoutDB = "2006-01-02"
)

// FormatDateBR renders a calendar date as DD/MM/YYYY.
func FormatDateBR(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayoutBR)
}

// FormatTimeRange renders database TIME values ("HH:MM:SS") as "HH:MM - HH:MM".
func FormatTimeRange(start, end string) string {
	return clockHM(start) + " - " + clockHM(end)
}

func clockHM(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 5 {
		return s[:5]
	}
	return s
}

// StartOfDay truncates t to midnight in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// DaysAhead returns the calendar day n days after the day containing t in loc.
func DaysAhead(t time.Time, loc *time.Location, n int) time.Time {
	return StartOfDay(t, loc).AddDate(0, 0, n)
}

// ParseTimestamp accepts RFC3339 timestamps with or without fractional seconds.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		DateLayoutDB,
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
