package engine

import (
	"github.com/AnaEHC/semaforo-app/calendar"
	"github.com/AnaEHC/semaforo-app/models"
)

// StatusEngine derives the traffic-light status of a block over a fixed
// product set.
type StatusEngine struct {
	products []models.Product
}

// NewStatusEngine uses models.DefaultProducts when products is empty.
func NewStatusEngine(products []models.Product) *StatusEngine {
	if len(products) == 0 {
		products = models.DefaultProducts
	}
	return &StatusEngine{products: append([]models.Product(nil), products...)}
}

// Products returns the product set the engine evaluates.
func (e *StatusEngine) Products() []models.Product {
	return append([]models.Product(nil), e.products...)
}

// Derive computes the status of each record of b as of today. Records dated
// after today always come out empty.
//
// Rules, first match wins for blue; the others are independent per day:
//   - any record with every product confirmed: reached days are blue
//   - day 1 reached with at least one confirmed product: green
//   - day 2 reached with at least one product missing: yellow
//   - day 3 reached with a product missing or nothing confirmed: red
func (e *StatusEngine) Derive(b Block, today models.Date) [calendar.IntakeWindowDays]models.Status {
	var out [calendar.IntakeWindowDays]models.Status

	var confirmed, missing [calendar.IntakeWindowDays]int
	done := false
	for i, r := range b.Records {
		confirmed[i], missing[i] = r.Products.Count(e.products)
		if confirmed[i] == len(e.products) {
			done = true
		}
	}

	reached := func(i int) bool { return !b.Records[i].DayDate.After(today) }

	if done {
		for i := range b.Records {
			if reached(i) {
				out[i] = models.StatusBlueDone
			}
		}
		return out
	}

	if reached(0) && confirmed[0] >= 1 {
		out[0] = models.StatusGreen
	}
	if reached(1) && missing[1] >= 1 {
		out[1] = models.StatusYellow
	}
	// A day with nothing confirmed is red as well as one with a missing product.
	if reached(2) && (missing[2] >= 1 || confirmed[2] == 0) {
		out[2] = models.StatusRed
	}
	return out
}

// Evaluate returns b with derived statuses applied.
func (e *StatusEngine) Evaluate(b Block, today models.Date) Block {
	return b.Apply(e.Derive(b, today))
}

// Recomputation is the outcome of re-deriving a whole snapshot.
type Recomputation struct {
	Blocks     []Block
	Changed    []models.DailyRecord
	Incomplete []string
}

// Recompute derives statuses for every complete block of records. Changed
// lists the records whose status differs from the snapshot.
func (e *StatusEngine) Recompute(records []models.DailyRecord, today models.Date) Recomputation {
	blocks, incomplete := GroupBlocks(records)
	res := Recomputation{Blocks: make([]Block, 0, len(blocks)), Incomplete: incomplete}
	for _, b := range blocks {
		next := e.Evaluate(b, today)
		for i, r := range next.Records {
			if r.Status != b.Records[i].Status {
				res.Changed = append(res.Changed, r.Clone())
			}
		}
		res.Blocks = append(res.Blocks, next)
	}
	return res
}
