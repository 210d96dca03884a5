package services

import (
	"context"
	"time"

	"github.com/AnaEHC/semaforo-app/api/semaforo"
	"github.com/AnaEHC/semaforo-app/calendar"
	redisdao "github.com/AnaEHC/semaforo-app/dao/redis"
	"github.com/AnaEHC/semaforo-app/db"
	"github.com/AnaEHC/semaforo-app/engine"
	"github.com/AnaEHC/semaforo-app/models"
)

// 2025-03-03 is a Monday.
func day(d int) models.Date {
	return models.NewDate(2025, time.March, d)
}

// window builds three records for client on the given days, with entry on
// the first one and confirmed products per day.
func window(client, cal string, days [3]int, confirmed ...[]models.Product) []models.DailyRecord {
	out := make([]models.DailyRecord, 0, 3)
	for i, d := range days {
		flags := models.ProductFlags{}
		for _, p := range models.DefaultProducts {
			flags[p] = false
		}
		if i < len(confirmed) {
			for _, p := range confirmed[i] {
				flags[p] = true
			}
		}
		out = append(out, models.DailyRecord{
			ClientID:  client,
			Cal:       cal,
			Comercial: "LUIS",
			DayDate:   day(d),
			EntryDate: day(days[0]),
			Products:  flags,
		})
	}
	return out
}

type fixture struct {
	api   *semaforo.SemaforoApiClientMock
	dao   *redisdao.RedisClientDAO
	today models.Date
}

func newFixture(records []models.DailyRecord, today models.Date) *fixture {
	return &fixture{
		api:   semaforo.NewSemaforoApiClientMockWith(records, nil),
		dao:   redisdao.NewRedisClientDAO(db.NewMockRedisClient(context.Background())),
		today: today,
	}
}

type stubOutOfFlow struct {
	got []models.ClientSummary
}

func (s *stubOutOfFlow) ExportOutOfFlow(ctx context.Context, summaries []models.ClientSummary) (string, error) {
	s.got = summaries
	return "fuera.xlsx", nil
}

func (f *fixture) service(out OutOfFlowExporter) *SemaforoService {
	cal := calendar.New(nil)
	return NewSemaforoService(
		f.api,
		f.dao,
		engine.NewStatusEngine(models.DefaultProducts),
		engine.NewLifecycle(cal),
		engine.DefaultThresholds,
		out,
		func() models.Date { return f.today },
	)
}
