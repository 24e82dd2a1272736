package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateFormat is the wire and storage format of a Date.
const DateFormat = "2006-01-02"

// readDateFormat accepts single-digit months and days on input.
const readDateFormat = "2006-1-2"

// Date is a calendar date with day granularity. The zero value means "no date".
type Date struct {
	y int
	m time.Month
	d int
}

// NewDate returns a normalized Date for the given year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	y, m, d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Date()
	return Date{y: y, m: m, d: d}
}

// DateOf returns the calendar date of t in its own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Date())
}

// ParseDate parses a Date in YYYY-MM-DD form. Single-digit months and days are accepted.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(readDateFormat, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, want format %q: %w", s, DateFormat, err)
	}
	return DateOf(t), nil
}

// Year returns the year component.
func (d Date) Year() int { return d.y }

// Month returns the month component.
func (d Date) Month() time.Month { return d.m }

// Day returns the day of the month.
func (d Date) Day() int { return d.d }

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d == Date{} }

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	if d.IsZero() {
		return time.Time{}
	}
	return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC)
}

// Before reports whether d is strictly before x.
func (d Date) Before(x Date) bool { return d.Time().Before(x.Time()) }

// After reports whether d is strictly after x.
func (d Date) After(x Date) bool { return d.Time().After(x.Time()) }

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time().Format(DateFormat)
}

// MarshalJSON encodes the date as a YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a YYYY-MM-DD string. An empty string yields the zero Date.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DateRange is an inclusive range of calendar dates.
type DateRange struct {
	Start Date
	End   Date
}

// Contains reports whether d falls within [Start, End].
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// MonthRange returns the range covering every day of the given month.
func MonthRange(year int, month time.Month) DateRange {
	first := NewDate(year, month, 1)
	last := NewDate(year, month+1, 0)
	return DateRange{Start: first, End: last}
}
