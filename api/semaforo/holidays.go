package semaforo

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/AnaEHC/semaforo-app/models"
)

// FieldStatus is the record-store column holding the traffic-light status.
const FieldStatus = "SEMAFORO"

// LoadHolidays fetches the holiday set once. Any failure degrades to an empty
// set, leaving a weekends-only calendar.
func LoadHolidays(ctx context.Context, client SemaforoAPI) []models.Date {
	holidays, err := client.FetchHolidays(ctx)
	if err != nil {
		log.Warn().Str("component", "api").Err(err).Msg("holidays unavailable, using weekends only")
		return nil
	}
	log.Info().Str("component", "api").Int("holidays", len(holidays)).Msg("holidays loaded")
	return holidays
}
