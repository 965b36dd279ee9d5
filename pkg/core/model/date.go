package model

import (
	"fmt"
	"time"
)

// DateLayout is the textual form of a Date
const DateLayout = "2006-01-02"

// Date is a calendar day. The zero value is an unset date.
type Date struct {
	t time.Time
}

// NewDate truncates t to midnight UTC of t's calendar day (in t's own location)
func NewDate(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	return Date{t: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// DateOf builds a Date from its parts
func DateOf(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return NewDate(t), nil
}

// Today returns the current calendar day in loc
func Today(now time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return NewDate(now.In(loc))
}

func (d Date) IsZero() bool { return d.t.IsZero() }

// Time returns midnight UTC of the day
func (d Date) Time() time.Time { return d.t }

func (d Date) AddDays(n int) Date {
	if d.IsZero() {
		return d
	}
	return Date{t: d.t.AddDate(0, 0, n)}
}

func (d Date) Equal(other Date) bool  { return d.t.Equal(other.t) }
func (d Date) Before(other Date) bool { return d.t.Before(other.t) }
func (d Date) After(other Date) bool  { return d.t.After(other.t) }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}
