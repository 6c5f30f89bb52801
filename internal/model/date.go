package model

import (
	"fmt"
	"time"
)

// DateLayout is the ISO calendar date layout used everywhere a date is
// stored or transmitted.
const DateLayout = "2006-01-02"

// Date is an ISO calendar date (YYYY-MM-DD). The zero value is the empty
// string and means "no date".
//
// Dates compare correctly as strings, which keeps sorting and remote
// ordering consistent.
type Date string

// ParseDate validates s and returns it as a Date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return Date(t.Format(DateLayout)), nil
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

// Valid reports whether d is a well-formed calendar date.
func (d Date) Valid() bool {
	_, err := time.Parse(DateLayout, string(d))
	return err == nil
}

// Time returns the date at midnight UTC.
func (d Date) Time() (time.Time, error) {
	return time.Parse(DateLayout, string(d))
}

func (d Date) String() string {
	return string(d)
}
