package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/AnaEHC/semaforo-app/api/semaforo"
	"github.com/AnaEHC/semaforo-app/dao/redis"
	"github.com/AnaEHC/semaforo-app/engine"
	"github.com/AnaEHC/semaforo-app/models"
)

// HandOffExporter exports a lapsed red block once per (client, expiry).
type HandOffExporter interface {
	Export(ctx context.Context, h engine.HandOff) (location string, fresh bool, err error)
}

// LifecycleRefresherService periodically re-derives statuses, persists the
// ones that changed and hands off lapsed red clients.
type LifecycleRefresherService struct {
	api       semaforo.SemaforoAPI
	clientDao *redis.RedisClientDAO
	engine    *engine.StatusEngine
	lifecycle *engine.Lifecycle
	exporter  HandOffExporter
	now       func() time.Time
	loc       *time.Location
}

// NewLifecycleRefresherService constructs a new refresher with dependencies.
func NewLifecycleRefresherService(
	api semaforo.SemaforoAPI,
	clientDao *redis.RedisClientDAO,
	statusEngine *engine.StatusEngine,
	lifecycle *engine.Lifecycle,
	exporter HandOffExporter,
	now func() time.Time,
	loc *time.Location,
) *LifecycleRefresherService {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return &LifecycleRefresherService{
		api:       api,
		clientDao: clientDao,
		engine:    statusEngine,
		lifecycle: lifecycle,
		exporter:  exporter,
		now:       now,
		loc:       loc,
	}
}

// StartPeriodicJob launches the background loop at the given interval. The
// loop stops when ctx is done.
func (lr *LifecycleRefresherService) StartPeriodicJob(ctx context.Context, interval time.Duration) {
	go lr.startPeriodicJob(ctx, interval)
}

func (lr *LifecycleRefresherService) startPeriodicJob(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("component", "refresher").Msg("periodic sweep stopped")
			return
		case <-ticker.C:
			log.Info().Str("component", "refresher").Msg("running periodic lifecycle sweep")
			if _, err := lr.RunSweep(ctx); err != nil {
				log.Error().Str("component", "refresher").Err(err).Msg("lifecycle sweep failed")
			}
		}
	}
}

// RunSweep fetches the snapshot, persists changed statuses, exports due
// hand-offs and caches the result. Per-row failures are counted in the
// report; only a failed fetch aborts the sweep.
func (lr *LifecycleRefresherService) RunSweep(ctx context.Context) (models.SweepReport, error) {
	ranAt := lr.now()
	today := models.DateOf(ranAt.In(lr.loc))
	report := models.SweepReport{
		RanAt:    ranAt,
		Today:    today,
		Holidays: lr.lifecycle.Calendar().Holidays(),
	}

	records, err := lr.api.FetchClientRecords(ctx)
	if err != nil {
		return report, err
	}

	// 1) Re-derive statuses
	recomputed := lr.engine.Recompute(records, today)
	report.Clients = len(recomputed.Blocks)
	report.Incomplete = recomputed.Incomplete
	report.StatusChanges = len(recomputed.Changed)
	for _, id := range recomputed.Incomplete {
		log.Warn().Str("component", "refresher").Str("client", id).Msg("skipping incomplete block")
	}

	// 2) Persist the statuses that changed
	report.PersistErrors = lr.persistStatuses(ctx, recomputed.Changed)

	// 3) Split active and expired, hand off lapsed reds
	sweep := lr.lifecycle.Evaluate(recomputed.Blocks, today)
	report.Active = len(sweep.Active)
	report.Expired = len(sweep.Expired)
	lr.exportHandOffs(ctx, sweep.HandOffs, &report)

	// 4) Cache the snapshot and active set
	lr.cache(recomputed.Blocks, sweep.Active, report)

	log.Info().
		Str("component", "refresher").
		Int("clients", report.Clients).
		Int("status_changes", report.StatusChanges).
		Int("active", report.Active).
		Int("expired", report.Expired).
		Int("exported", len(report.Exported)).
		Msg("lifecycle sweep completed")
	return report, nil
}

func (lr *LifecycleRefresherService) persistStatuses(ctx context.Context, changed []models.DailyRecord) int {
	failures := 0
	for _, r := range changed {
		err := lr.api.PersistRecordUpdate(ctx, semaforo.RecordUpdate{
			ClientID: r.ClientID,
			Day:      r.DayDate,
			Field:    semaforo.FieldStatus,
			Value:    string(r.Status),
		})
		if err != nil {
			failures++
			log.Error().Str("component", "refresher").Err(err).Str("client", r.ClientID).Str("day", r.DayDate.String()).Msg("failed to persist status")
			continue
		}
		log.Debug().Str("component", "refresher").Str("client", r.ClientID).Str("day", r.DayDate.String()).Str("status", string(r.Status)).Msg("status persisted")
	}
	return failures
}

func (lr *LifecycleRefresherService) exportHandOffs(ctx context.Context, handOffs []engine.HandOff, report *models.SweepReport) {
	for _, h := range handOffs {
		location, fresh, err := lr.exporter.Export(ctx, h)
		switch {
		case err != nil:
			report.ExportErrors++
			log.Error().Str("component", "refresher").Err(err).Str("client", h.ClientID).Msg("hand-off export failed")
		case !fresh:
			report.AlreadyExported++
		default:
			report.Exported = append(report.Exported, models.ExportedHandOff{
				ClientID: h.ClientID,
				Expiry:   h.Expiry,
				Location: location,
			})
		}
	}
}

func (lr *LifecycleRefresherService) cache(all, active []engine.Block, report models.SweepReport) {
	snapshot := make(map[string][]models.DailyRecord, len(all))
	for _, b := range all {
		snapshot[b.ClientID] = b.RecordsSlice()
	}
	if err := lr.clientDao.ReplaceSnapshot(snapshot); err != nil {
		log.Error().Str("component", "refresher").Err(err).Msg("failed to cache snapshot")
	}

	ids := make([]string, 0, len(active))
	for _, b := range active {
		ids = append(ids, b.ClientID)
	}
	if err := lr.clientDao.SetActiveClients(ids); err != nil {
		log.Error().Str("component", "refresher").Err(err).Msg("failed to cache active clients")
	}
	if err := lr.clientDao.SetLastSweep(report); err != nil {
		log.Error().Str("component", "refresher").Err(err).Msg("failed to cache sweep report")
	}
}

// LastSweep returns the cached report of the latest sweep, or nil.
func (lr *LifecycleRefresherService) LastSweep() (*models.SweepReport, error) {
	return lr.clientDao.GetLastSweep()
}

// ActiveClients returns the ids left active by the latest sweep.
func (lr *LifecycleRefresherService) ActiveClients() ([]string, bool, error) {
	return lr.clientDao.GetActiveClients()
}
