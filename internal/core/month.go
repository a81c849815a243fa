package core

import (
	"fmt"
	"time"
)

// MonthKey identifies a calendar month. It is the period key used to
// match a budget against an income date.
type MonthKey struct {
	Year  int
	Month time.Month
}

// MonthOf returns the MonthKey of the given date.
func MonthOf(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: t.Month()}
}

// String formats the key as "YYYY-MM".
func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

// Contains reports whether t falls inside the month.
func (k MonthKey) Contains(t time.Time) bool {
	return t.Year() == k.Year && t.Month() == k.Month
}

// ParseMonthKey parses a budget period key. Stored keys are either a
// plain "YYYY-MM" or a longer date-like string ("2025-07-01",
// "2025-07-01T00:00:00"); anything past the first 7 characters is
// ignored for compatibility with legacy data. Returns false when the
// prefix is not a valid year-month.
func ParseMonthKey(s string) (MonthKey, bool) {
	if len(s) < 7 {
		return MonthKey{}, false
	}
	s = s[:7]
	if s[4] != '-' {
		return MonthKey{}, false
	}
	year, month := 0, 0
	for _, c := range s[:4] {
		if c < '0' || c > '9' {
			return MonthKey{}, false
		}
		year = year*10 + int(c-'0')
	}
	for _, c := range s[5:] {
		if c < '0' || c > '9' {
			return MonthKey{}, false
		}
		month = month*10 + int(c-'0')
	}
	if month < 1 || month > 12 {
		return MonthKey{}, false
	}
	return MonthKey{Year: year, Month: time.Month(month)}, true
}

// MonthBounds returns the first and last day of t's calendar month,
// both truncated to midnight UTC.
func MonthBounds(t time.Time) (first, last time.Time) {
	first = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	last = first.AddDate(0, 1, -1)
	return first, last
}

// AddMonthsClamped advances t by n calendar months, clamping the day to
// the length of the target month (Jan 31 + 1 month = Feb 28/29), the
// way LocalDate-style month arithmetic behaves.
func AddMonthsClamped(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	lastDay := first.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, t.Location())
}
