package engine

import (
	"time"

	"github.com/AnaEHC/semaforo-app/calendar"
	"github.com/AnaEHC/semaforo-app/models"
)

// 2025-03-03 is a Monday.
func day(d int) models.Date {
	return models.NewDate(2025, time.March, d)
}

func flags(confirmed ...models.Product) models.ProductFlags {
	f := models.ProductFlags{}
	for _, p := range models.DefaultProducts {
		f[p] = false
	}
	for _, p := range confirmed {
		f[p] = true
	}
	return f
}

var allProducts = models.DefaultProducts

func record(client string, d models.Date, f models.ProductFlags) models.DailyRecord {
	return models.DailyRecord{
		ClientID:  client,
		Cal:       "ANA",
		Comercial: "LUIS",
		DayDate:   d,
		EntryDate: day(3),
		Products:  f,
	}
}

// blockOn builds a Mon/Tue/Wed block starting 2025-03-03.
func blockOn(t interface{ Fatalf(string, ...interface{}) }, f1, f2, f3 models.ProductFlags) Block {
	b, err := NewBlock("ACME", []models.DailyRecord{
		record("ACME", day(5), f3),
		record("ACME", day(3), f1),
		record("ACME", day(4), f2),
	})
	if err != nil {
		t.Fatalf("NewBlock: %v", err)
	}
	return b
}

func statuses(s ...models.Status) [calendar.IntakeWindowDays]models.Status {
	var out [calendar.IntakeWindowDays]models.Status
	copy(out[:], s)
	return out
}
