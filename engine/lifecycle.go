package engine

import (
	"fmt"

	"github.com/AnaEHC/semaforo-app/calendar"
	"github.com/AnaEHC/semaforo-app/models"
)

// Lifecycle decides when a client's window has lapsed and whether the lapsed
// block must be handed off.
type Lifecycle struct {
	cal *calendar.BusinessCalendar
}

func NewLifecycle(cal *calendar.BusinessCalendar) *Lifecycle {
	return &Lifecycle{cal: cal}
}

// Calendar exposes the calendar the lifecycle was built with.
func (l *Lifecycle) Calendar() *calendar.BusinessCalendar {
	return l.cal
}

// WindowCloseDate is three business-day steps after the block's first day.
func (l *Lifecycle) WindowCloseDate(b Block) models.Date {
	return l.cal.AddBusinessDays(b.First().DayDate, calendar.IntakeWindowDays)
}

// IsExpired reports whether today has reached the window close date.
func (l *Lifecycle) IsExpired(b Block, today models.Date) bool {
	closeDate := l.WindowCloseDate(b)
	if closeDate.IsZero() || today.IsZero() {
		return false
	}
	return !today.Before(closeDate)
}

// ShouldHandOff is true for an expired, red block nobody owns yet.
func (l *Lifecycle) ShouldHandOff(b Block, today models.Date) bool {
	return l.IsExpired(b, today) &&
		b.Latest().Status == models.StatusRed &&
		!b.HasAssignment() &&
		!b.IsClosed()
}

// HandOff is the payload for exporting a lapsed red block.
type HandOff struct {
	ClientID string
	Expiry   models.Date
	Records  []models.DailyRecord
}

// Key identifies the hand-off; one export per key.
func (h HandOff) Key() string {
	return fmt.Sprintf("%s_%s", h.ClientID, h.Expiry)
}

// Sweep splits blocks into the active working set and the expired ones.
type Sweep struct {
	Active   []Block
	Expired  []Block
	HandOffs []HandOff
}

// Evaluate classifies blocks as of today. Expired blocks leave the active set
// whether or not they are handed off.
func (l *Lifecycle) Evaluate(blocks []Block, today models.Date) Sweep {
	var s Sweep
	for _, b := range blocks {
		if !l.IsExpired(b, today) {
			s.Active = append(s.Active, b)
			continue
		}
		s.Expired = append(s.Expired, b)
		if l.ShouldHandOff(b, today) {
			s.HandOffs = append(s.HandOffs, HandOff{
				ClientID: b.ClientID,
				Expiry:   l.WindowCloseDate(b),
				Records:  b.RecordsSlice(),
			})
		}
	}
	return s
}

// Summarize collapses a block into its one-row view as of today.
func (l *Lifecycle) Summarize(b Block, today models.Date) models.ClientSummary {
	latest := b.Latest()
	first := b.First()

	products := models.ProductFlags{}
	for _, r := range b.Records {
		for p, v := range r.Products {
			products[p] = products[p] || v
		}
	}

	s := models.ClientSummary{
		ClientID:     b.ClientID,
		Cal:          first.Cal,
		Comercial:    first.Comercial,
		EntryDate:    first.EntryDate,
		LatestDay:    latest.DayDate,
		Status:       latest.Status,
		BusinessDays: l.cal.CountBusinessDays(first.EntryDate, today),
		WindowClose:  l.WindowCloseDate(b),
		Expired:      l.IsExpired(b, today),
		Products:     products,
	}
	for _, r := range b.Records {
		s.AssignedCloser = firstNonEmpty(s.AssignedCloser, r.AssignedCloser)
		s.AssignedSupercloser = firstNonEmpty(s.AssignedSupercloser, r.AssignedSupercloser)
		s.ClosingState = firstNonEmpty(s.ClosingState, r.ClosingState)
		s.CloserHandled = s.CloserHandled || r.CloserHandled
		s.SupercloserHandled = s.SupercloserHandled || r.SupercloserHandled
	}
	return s
}

// SummarizeAll summarizes every block.
func (l *Lifecycle) SummarizeAll(blocks []Block, today models.Date) []models.ClientSummary {
	out := make([]models.ClientSummary, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, l.Summarize(b, today))
	}
	return out
}

func firstNonEmpty(current, candidate string) string {
	if current != "" {
		return current
	}
	return candidate
}
