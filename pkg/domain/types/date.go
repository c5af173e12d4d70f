package types

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// DateLayout is the wire format of Date
const DateLayout = "2006-01-02"

// Date is a calendar date without time of day, formatted as YYYY-MM-DD.
// The zero value is the empty string. Lexical order equals chronological order.
type Date string

// DateOf returns the calendar date of t in t's own location
func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

// ParseDate parses a YYYY-MM-DD string
func ParseDate(s string) (Date, error) {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return "", goerr.Wrap(err, "invalid date", goerr.V("date", s))
	}
	return Date(s), nil
}

// Validate checks the date format
func (d Date) Validate() error {
	_, err := ParseDate(string(d))
	return err
}

// AddDays returns the date n days after d. An invalid d is returned unchanged.
func (d Date) AddDays(n int) Date {
	t, err := time.Parse(DateLayout, string(d))
	if err != nil {
		return d
	}
	return DateOf(t.AddDate(0, 0, n))
}

// Before reports whether d is strictly earlier than other
func (d Date) Before(other Date) bool {
	return d < other
}

// String returns the string representation of the date
func (d Date) String() string {
	return string(d)
}
