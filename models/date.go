package models

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// DateLayout is the ISO-8601 calendar date exchanged with the record store.
const DateLayout = "2006-01-02"

// ErrMalformedDate is returned by ParseDate for values that are not calendar dates.
var ErrMalformedDate = errors.New("malformed date")

// Date is a calendar date stored as UTC midnight. The zero value means the
// date was unset or could not be parsed.
type Date struct {
	t time.Time
}

// NewDate builds a Date from its components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its calendar date in the timestamp's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Today returns the current calendar date in loc.
func Today(loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(time.Now().In(loc))
}

// ParseDate accepts "2006-01-02" and the datetime forms the PHP API sometimes
// returns ("2006-01-02 15:04:05", RFC 3339).
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrMalformedDate
	}
	for _, layout := range []string{DateLayout, "2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, ErrMalformedDate
}

// IsZero reports whether the date is unset or malformed.
func (d Date) IsZero() bool { return d.t.IsZero() }

func (d Date) Time() time.Time { return d.t }

func (d Date) Weekday() time.Weekday { return d.t.Weekday() }

func (d Date) Month() time.Month { return d.t.Month() }

func (d Date) Year() int { return d.t.Year() }

// AddDays returns the date n calendar days later.
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

func (d Date) Before(o Date) bool { return d.t.Before(o.t) }

func (d Date) After(o Date) bool { return d.t.After(o.t) }

func (d Date) Equal(o Date) bool { return d.t.Equal(o.t) }

// String returns the ISO form, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON never fails on bad content: anything that is not a date
// becomes the zero Date so callers can treat it as "no business days elapsed".
func (d *Date) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		*d = Date{}
		return nil
	}
	s, ok := raw.(string)
	if !ok {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		*d = Date{}
		return nil
	}
	*d = parsed
	return nil
}
