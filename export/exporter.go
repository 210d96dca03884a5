package export

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/AnaEHC/semaforo-app/engine"
	"github.com/AnaEHC/semaforo-app/models"
)

// Exporter writes the rows of a lapsed red block somewhere staff can pick
// them up and returns where it went.
type Exporter interface {
	ExportExpiredBlock(ctx context.Context, records []models.DailyRecord) (string, error)
}

// HandOffMarkers is the subset of the Redis DAO used to keep exports unique.
type HandOffMarkers interface {
	ClaimHandOff(handOffKey string) (bool, error)
	ReleaseHandOff(handOffKey string) error
	SetHandOffLocation(handOffKey, location string) error
	GetHandOffLocation(handOffKey string) (string, error)
}

// DedupExporter exports each (client, expiry) hand-off at most once.
type DedupExporter struct {
	next    Exporter
	markers HandOffMarkers
}

func NewDedupExporter(next Exporter, markers HandOffMarkers) *DedupExporter {
	return &DedupExporter{next: next, markers: markers}
}

// Export claims the hand-off and delegates. fresh is false when an earlier
// sweep already exported it; location is then the recorded one, if any.
// A failed export releases the claim so the next sweep retries.
func (d *DedupExporter) Export(ctx context.Context, h engine.HandOff) (location string, fresh bool, err error) {
	key := h.Key()
	claimed, err := d.markers.ClaimHandOff(key)
	if err != nil {
		return "", false, err
	}
	if !claimed {
		location, err := d.markers.GetHandOffLocation(key)
		return location, false, err
	}

	location, err = d.next.ExportExpiredBlock(ctx, h.Records)
	if err != nil {
		if relErr := d.markers.ReleaseHandOff(key); relErr != nil {
			log.Error().Str("component", "export").Err(relErr).Str("handoff", key).Msg("failed to release hand-off claim")
		}
		return "", false, fmt.Errorf("export %s: %w", key, err)
	}

	if err := d.markers.SetHandOffLocation(key, location); err != nil {
		log.Warn().Str("component", "export").Err(err).Str("handoff", key).Msg("exported but location not recorded")
	}
	log.Info().Str("component", "export").Str("handoff", key).Str("location", location).Msg("hand-off exported")
	return location, true, nil
}
