// Package calendar answers business-day questions against a fixed holiday set.
package calendar

import (
	"time"

	"github.com/AnaEHC/semaforo-app/models"
)

// IntakeWindowDays is the number of business days in a client's intake window.
const IntakeWindowDays = 3

// BusinessCalendar is an immutable holiday set plus the Saturday/Sunday rule.
// It is built once per session and passed to whoever needs it.
type BusinessCalendar struct {
	holidays map[models.Date]struct{}
}

// New builds a calendar from holidays. Zero dates are ignored.
func New(holidays []models.Date) *BusinessCalendar {
	set := make(map[models.Date]struct{}, len(holidays))
	for _, h := range holidays {
		if h.IsZero() {
			continue
		}
		set[h] = struct{}{}
	}
	return &BusinessCalendar{holidays: set}
}

// Holidays returns the number of holidays known to the calendar.
func (c *BusinessCalendar) Holidays() int {
	return len(c.holidays)
}

// IsHoliday reports whether d is in the holiday set.
func (c *BusinessCalendar) IsHoliday(d models.Date) bool {
	_, ok := c.holidays[d]
	return ok
}

// IsBusinessDay is false for Saturday, Sunday and holidays.
func (c *BusinessCalendar) IsBusinessDay(d models.Date) bool {
	if d.IsZero() {
		return false
	}
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !c.IsHoliday(d)
}

// RollForward returns d itself when it is a business day, otherwise the first
// business day after it.
func (c *BusinessCalendar) RollForward(d models.Date) models.Date {
	if d.IsZero() {
		return d
	}
	for !c.IsBusinessDay(d) {
		d = d.AddDays(1)
	}
	return d
}

// NextBusinessDay returns the first business day strictly after d.
func (c *BusinessCalendar) NextBusinessDay(d models.Date) models.Date {
	if d.IsZero() {
		return d
	}
	return c.RollForward(d.AddDays(1))
}

// AddBusinessDays steps n times with NextBusinessDay.
func (c *BusinessCalendar) AddBusinessDays(d models.Date, n int) models.Date {
	for i := 0; i < n; i++ {
		d = c.NextBusinessDay(d)
	}
	return d
}

// CountBusinessDays counts the business days in [entry, today]. It returns 0
// for an unset entry date or one after today.
func (c *BusinessCalendar) CountBusinessDays(entry, today models.Date) int {
	if entry.IsZero() || today.IsZero() || entry.After(today) {
		return 0
	}
	days := 0
	for d := entry; !d.After(today); d = d.AddDays(1) {
		if c.IsBusinessDay(d) {
			days++
		}
	}
	return days
}

// IntakeDays returns the business days of a new client's window: the first
// business day on or after entry, followed by the next two business days.
func (c *BusinessCalendar) IntakeDays(entry models.Date) []models.Date {
	if entry.IsZero() {
		return nil
	}
	days := make([]models.Date, 0, IntakeWindowDays)
	d := c.RollForward(entry)
	for i := 0; i < IntakeWindowDays; i++ {
		days = append(days, d)
		d = c.NextBusinessDay(d)
	}
	return days
}
