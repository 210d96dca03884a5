package engine

import (
	"strings"

	"github.com/AnaEHC/semaforo-app/models"
)

// Thresholds are elapsed business-day counts that gate the hand-off workflow.
type Thresholds struct {
	Closer      int `yaml:"closer" env:"CLOSER"`
	Supercloser int `yaml:"supercloser" env:"SUPERCLOSER"`
	OutOfFlow   int `yaml:"out_of_flow" env:"OUT_OF_FLOW"`
}

// DefaultThresholds are the values the sales team works with.
var DefaultThresholds = Thresholds{Closer: 3, Supercloser: 5, OutOfFlow: 5}

// EligibleForCloser: a red, unassigned, open client after the closer threshold.
func (t Thresholds) EligibleForCloser(s models.ClientSummary) bool {
	return s.Status == models.StatusRed &&
		s.BusinessDays >= t.Closer &&
		strings.TrimSpace(s.AssignedCloser) == "" &&
		!s.IsClosed()
}

// EligibleForSupercloser: a red, open client that already has a closer but no
// supercloser after the supercloser threshold.
func (t Thresholds) EligibleForSupercloser(s models.ClientSummary) bool {
	return s.Status == models.StatusRed &&
		s.BusinessDays >= t.Supercloser &&
		strings.TrimSpace(s.AssignedCloser) != "" &&
		strings.TrimSpace(s.AssignedSupercloser) == "" &&
		!s.IsClosed()
}

// IsOutOfFlow: an open client of the current month past the out-of-flow threshold.
func (t Thresholds) IsOutOfFlow(s models.ClientSummary, today models.Date) bool {
	return s.BusinessDays >= t.OutOfFlow &&
		!s.IsClosed() &&
		s.EntryDate.Year() == today.Year() &&
		s.EntryDate.Month() == today.Month()
}
