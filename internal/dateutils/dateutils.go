// Package dateutils provides the date parsing and calendar-month helpers used by
// the cutoff filter, the monthly aggregation and the gap-filling calendar.
package dateutils

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Common date format constants used throughout the application
const (
	DateLayoutISO      = "2006-01-02"
	DateLayoutFull     = "2006-01-02 15:04:05"
	DateLayoutISOTime  = "2006-01-02T15:04:05"
	DateLayoutEuropean = "02.01.2006"
	DateLayoutSlashISO = "2006/01/02"
)

// CommonFormats is the ordered list of layouts ParseDate tries. Day-first and
// month-first slash formats are deliberately absent: the source is ISO.
var CommonFormats = []string{
	DateLayoutISO,
	time.RFC3339Nano,
	DateLayoutISOTime,
	DateLayoutFull,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05-07:00",
	DateLayoutSlashISO,
	DateLayoutEuropean,
}

var whitespace = regexp.MustCompile(`\s+`)

// ParseDate attempts to parse a date string using CommonFormats and returns the
// parsed time and the layout that matched. Offsets are discarded: the result
// keeps the wall clock and is expressed in UTC.
func ParseDate(dateStr string) (time.Time, string, error) {
	dateStr = CleanDateString(dateStr)
	if dateStr == "" {
		return time.Time{}, "", fmt.Errorf("unable to parse empty date")
	}

	for _, format := range CommonFormats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return wallClockUTC(t), format, nil
		}
	}

	return time.Time{}, "", fmt.Errorf("unable to parse date: %s", dateStr)
}

// MustParseISO parses a YYYY-MM-DD literal and panics on failure. Only for
// constants and tests.
func MustParseISO(s string) time.Time {
	t, err := time.Parse(DateLayoutISO, s)
	if err != nil {
		panic(err)
	}
	return t
}

// CleanDateString trims and collapses internal whitespace.
func CleanDateString(dateStr string) string {
	return whitespace.ReplaceAllString(strings.TrimSpace(dateStr), " ")
}

// ToISODate formats a time.Time value as an ISO date (YYYY-MM-DD)
func ToISODate(date time.Time) string {
	return date.Format(DateLayoutISO)
}

// StartOfDay truncates date to midnight, keeping its location.
func StartOfDay(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
}

// StartOfMonth returns the first day of the month for a given date, at midnight.
func StartOfMonth(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
}

// EndOfMonth returns the last day of the month for a given date
func EndOfMonth(date time.Time) time.Time {
	return StartOfMonth(date).AddDate(0, 1, -1)
}

// MonthRange returns the first day of every month from start's month through
// end's month, inclusive. It returns nil when end precedes start.
func MonthRange(start, end time.Time) []time.Time {
	first := StartOfMonth(start)
	last := StartOfMonth(end)
	if last.Before(first) {
		return nil
	}

	var months []time.Time
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		months = append(months, m)
	}
	return months
}

func wallClockUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
