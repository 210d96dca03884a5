// Package engine derives traffic-light statuses and lifecycle decisions from
// a snapshot of client records. Everything here is pure and synchronous.
package engine

import (
	"errors"
	"sort"

	"github.com/AnaEHC/semaforo-app/calendar"
	"github.com/AnaEHC/semaforo-app/models"
)

// ErrIncompleteBlock marks a client without three dated records.
var ErrIncompleteBlock = errors.New("incomplete block")

// Block is the three records of one client ordered by day.
type Block struct {
	ClientID string
	Records  [calendar.IntakeWindowDays]models.DailyRecord
}

// NewBlock sorts a client's records by day and keeps the first three. Any
// missing or undated record makes the block incomplete.
func NewBlock(clientID string, records []models.DailyRecord) (Block, error) {
	if len(records) < calendar.IntakeWindowDays {
		return Block{}, ErrIncompleteBlock
	}
	sorted := make([]models.DailyRecord, len(records))
	for i, r := range records {
		if r.DayDate.IsZero() {
			return Block{}, ErrIncompleteBlock
		}
		sorted[i] = r.Clone()
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DayDate.Before(sorted[j].DayDate)
	})

	b := Block{ClientID: clientID}
	copy(b.Records[:], sorted[:calendar.IntakeWindowDays])
	return b, nil
}

// First is the record of sequence day 1.
func (b Block) First() models.DailyRecord { return b.Records[0] }

// Latest is the record of sequence day 3.
func (b Block) Latest() models.DailyRecord { return b.Records[calendar.IntakeWindowDays-1] }

// Statuses returns the current status of each record.
func (b Block) Statuses() [calendar.IntakeWindowDays]models.Status {
	var out [calendar.IntakeWindowDays]models.Status
	for i, r := range b.Records {
		out[i] = r.Status
	}
	return out
}

// Apply returns a copy of the block with statuses replaced. The receiver is
// left untouched.
func (b Block) Apply(statuses [calendar.IntakeWindowDays]models.Status) Block {
	out := Block{ClientID: b.ClientID}
	for i, r := range b.Records {
		c := r.Clone()
		c.Status = statuses[i]
		out.Records[i] = c
	}
	return out
}

// HasAssignment reports whether any record carries a closer or supercloser.
func (b Block) HasAssignment() bool {
	for _, r := range b.Records {
		if r.HasAssignment() {
			return true
		}
	}
	return false
}

// IsClosed reports whether any record carries a terminal closing state.
func (b Block) IsClosed() bool {
	for _, r := range b.Records {
		if r.IsClosed() {
			return true
		}
	}
	return false
}

// RecordsSlice returns the records as a fresh slice.
func (b Block) RecordsSlice() []models.DailyRecord {
	out := make([]models.DailyRecord, 0, len(b.Records))
	for _, r := range b.Records {
		out = append(out, r.Clone())
	}
	return out
}

// GroupBlocks splits a flat snapshot into complete blocks, in order of first
// appearance, and returns the ids of clients whose block is incomplete.
func GroupBlocks(records []models.DailyRecord) ([]Block, []string) {
	var order []string
	byClient := make(map[string][]models.DailyRecord)
	for _, r := range records {
		if r.ClientID == "" {
			continue
		}
		if _, seen := byClient[r.ClientID]; !seen {
			order = append(order, r.ClientID)
		}
		byClient[r.ClientID] = append(byClient[r.ClientID], r)
	}

	blocks := make([]Block, 0, len(order))
	var incomplete []string
	for _, id := range order {
		b, err := NewBlock(id, byClient[id])
		if err != nil {
			incomplete = append(incomplete, id)
			continue
		}
		blocks = append(blocks, b)
	}
	return blocks, incomplete
}
