package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/AnaEHC/semaforo-app/api/semaforo"
	"github.com/AnaEHC/semaforo-app/calendar"
	"github.com/AnaEHC/semaforo-app/dao/redis"
	"github.com/AnaEHC/semaforo-app/engine"
	"github.com/AnaEHC/semaforo-app/models"
)

var (
	ErrClientExists        = errors.New("client already exists")
	ErrClientNotFound      = errors.New("client not found")
	ErrNotToday            = errors.New("no record for today")
	ErrUnknownProduct      = errors.New("unknown product")
	ErrNotEligible         = errors.New("client not eligible")
	ErrInvalidInput        = errors.New("invalid input")
	ErrUnknownRole         = errors.New("unknown role")
	ErrInvalidClosingState = errors.New("invalid closing state")
)

// OutOfFlowExporter writes the out-of-flow listing.
type OutOfFlowExporter interface {
	ExportOutOfFlow(ctx context.Context, summaries []models.ClientSummary) (string, error)
}

// ClientFilter narrows the client listing. Empty fields match everything.
type ClientFilter struct {
	Cal            string
	Comercial      string
	Cliente        string
	Status         *models.Status
	IncludeExpired bool
}

func (f ClientFilter) matches(s models.ClientSummary) bool {
	if !f.IncludeExpired && s.Expired {
		return false
	}
	if f.Cal != "" && !strings.Contains(models.NormalizeName(s.Cal), models.NormalizeName(f.Cal)) {
		return false
	}
	if f.Comercial != "" && models.NormalizeName(s.Comercial) != models.NormalizeName(f.Comercial) {
		return false
	}
	if f.Cliente != "" && !strings.Contains(s.ClientID, models.NormalizeName(f.Cliente)) {
		return false
	}
	if f.Status != nil && s.Status != *f.Status {
		return false
	}
	return true
}

// SemaforoService serves the day-to-day operations on the client set. Reads
// go to the record store; statuses are always re-derived before use.
type SemaforoService struct {
	api        semaforo.SemaforoAPI
	clientDao  *redis.RedisClientDAO
	engine     *engine.StatusEngine
	lifecycle  *engine.Lifecycle
	thresholds engine.Thresholds
	outOfFlow  OutOfFlowExporter
	today      func() models.Date
}

// NewSemaforoService constructs a new SemaforoService.
func NewSemaforoService(
	api semaforo.SemaforoAPI,
	clientDao *redis.RedisClientDAO,
	statusEngine *engine.StatusEngine,
	lifecycle *engine.Lifecycle,
	thresholds engine.Thresholds,
	outOfFlow OutOfFlowExporter,
	today func() models.Date,
) *SemaforoService {
	return &SemaforoService{
		api:        api,
		clientDao:  clientDao,
		engine:     statusEngine,
		lifecycle:  lifecycle,
		thresholds: thresholds,
		outOfFlow:  outOfFlow,
		today:      today,
	}
}

// Today is the service's notion of the current date.
func (s *SemaforoService) Today() models.Date {
	return s.today()
}

// snapshot returns the current records with statuses re-derived. When the
// store is down the last cached snapshot is used instead.
func (s *SemaforoService) snapshot(ctx context.Context) (engine.Recomputation, error) {
	records, err := s.records(ctx)
	if err != nil {
		return engine.Recomputation{}, err
	}
	return s.engine.Recompute(records, s.today()), nil
}

// records returns the rows as stored, statuses untouched.
func (s *SemaforoService) records(ctx context.Context) ([]models.DailyRecord, error) {
	records, err := s.api.FetchClientRecords(ctx)
	if err != nil {
		cached, cacheErr := s.cachedRecords()
		if cacheErr != nil || len(cached) == 0 {
			return nil, err
		}
		log.Warn().Str("component", "service").Err(err).Int("records", len(cached)).Msg("record store unavailable, serving cached snapshot")
		return cached, nil
	}
	return records, nil
}

func (s *SemaforoService) cachedRecords() ([]models.DailyRecord, error) {
	ids, err := s.clientDao.ListClientIDs()
	if err != nil {
		return nil, err
	}
	var records []models.DailyRecord
	for _, id := range ids {
		block, err := s.clientDao.GetBlock(id)
		if err != nil {
			return nil, err
		}
		records = append(records, block...)
	}
	return records, nil
}

func (s *SemaforoService) findBlock(ctx context.Context, clientID string) (engine.Block, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return engine.Block{}, err
	}
	return pickBlock(snap.Blocks, clientID)
}

// storedBlock is findBlock without re-deriving statuses.
func (s *SemaforoService) storedBlock(ctx context.Context, clientID string) (engine.Block, error) {
	records, err := s.records(ctx)
	if err != nil {
		return engine.Block{}, err
	}
	blocks, _ := engine.GroupBlocks(records)
	return pickBlock(blocks, clientID)
}

func pickBlock(blocks []engine.Block, clientID string) (engine.Block, error) {
	id := models.NormalizeName(clientID)
	for _, b := range blocks {
		if b.ClientID == id {
			return b, nil
		}
	}
	return engine.Block{}, fmt.Errorf("%w: %s", ErrClientNotFound, id)
}

// Summaries lists one row per client matching f, newest day first.
func (s *SemaforoService) Summaries(ctx context.Context, f ClientFilter) ([]models.ClientSummary, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	all := s.lifecycle.SummarizeAll(snap.Blocks, s.today())
	out := make([]models.ClientSummary, 0, len(all))
	for _, sum := range all {
		if f.matches(sum) {
			out = append(out, sum)
		}
	}
	return engine.Select(engine.StageOverview, engine.Viewer{Role: engine.RoleDirection}, out, s.thresholds, s.today())
}

// AddClient opens a new three-day window starting on the first business day
// from today. Client names are unique after normalisation. A client whose
// earlier intake only partly reached the store gets its missing days written.
func (s *SemaforoService) AddClient(ctx context.Context, cal, comercial, cliente string) ([]models.DailyRecord, error) {
	id := models.NormalizeName(cliente)
	cal = models.NormalizeName(cal)
	comercial = models.NormalizeName(comercial)
	if id == "" || cal == "" {
		return nil, fmt.Errorf("%w: cliente and cal are required", ErrInvalidInput)
	}

	records, err := s.api.FetchClientRecords(ctx)
	if err != nil {
		return nil, err
	}
	var existing []models.DailyRecord
	for _, r := range records {
		if r.ClientID == id {
			existing = append(existing, r)
		}
	}
	if _, err := engine.NewBlock(id, existing); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrClientExists, id)
	}

	bc := s.lifecycle.Calendar()
	entry := bc.RollForward(s.today())
	for _, r := range existing {
		if !r.EntryDate.IsZero() {
			entry = r.EntryDate
			cal = firstSet(r.Cal, cal)
			comercial = firstSet(r.Comercial, comercial)
			break
		}
	}

	block := make([]models.DailyRecord, 0, calendar.IntakeWindowDays)
	var missing []models.DailyRecord
	for _, d := range bc.IntakeDays(entry) {
		if rec, ok := findDay(existing, d); ok {
			block = append(block, rec)
			continue
		}
		products := models.ProductFlags{}
		for _, p := range s.engine.Products() {
			products[p] = false
		}
		rec := models.DailyRecord{
			ClientID:  id,
			Cal:       cal,
			Comercial: comercial,
			DayDate:   d,
			EntryDate: entry,
			Status:    models.StatusEmpty,
			Products:  products,
		}
		block = append(block, rec)
		missing = append(missing, rec)
	}

	if err := s.api.PersistNewClientBlock(ctx, id, comercial, missing); err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		log.Warn().Str("component", "service").Str("client", id).Int("written", len(missing)).Msg("completed partial intake")
	}
	log.Info().Str("component", "service").Str("client", id).Str("cal", cal).Str("entry", entry.String()).Msg("client added")
	return block, nil
}

func findDay(records []models.DailyRecord, d models.Date) (models.DailyRecord, bool) {
	for _, r := range records {
		if r.DayDate.Equal(d) {
			return r, true
		}
	}
	return models.DailyRecord{}, false
}

func firstSet(stored, given string) string {
	if strings.TrimSpace(stored) != "" {
		return stored
	}
	return given
}

// ToggleProduct flips one product flag on today's record of the client and
// persists the flag and every status that changed as a result.
func (s *SemaforoService) ToggleProduct(ctx context.Context, clientID, product string) (engine.Block, error) {
	p, ok := models.ParseProduct(product, s.engine.Products())
	if !ok {
		return engine.Block{}, fmt.Errorf("%w: %q", ErrUnknownProduct, product)
	}
	b, err := s.storedBlock(ctx, clientID)
	if err != nil {
		return engine.Block{}, err
	}

	today := s.today()
	idx := -1
	for i, r := range b.Records {
		if r.DayDate.Equal(today) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return engine.Block{}, fmt.Errorf("%w: %s on %s", ErrNotToday, b.ClientID, today)
	}

	toggled := b
	rec := b.Records[idx].Clone()
	if rec.Products == nil {
		rec.Products = models.ProductFlags{}
	}
	rec.Products[p] = !rec.Products[p]
	toggled.Records[idx] = rec
	next := s.engine.Evaluate(toggled, today)

	if err := s.api.PersistRecordUpdate(ctx, semaforo.RecordUpdate{
		ClientID: b.ClientID,
		Day:      rec.DayDate,
		Field:    string(p),
		Value:    models.Mark(rec.Products[p]),
		Status:   next.Records[idx].Status,
	}); err != nil {
		return engine.Block{}, err
	}

	// Other rows are compared with what the store holds, not what it should.
	var errs []error
	for i, r := range next.Records {
		if i == idx || r.Status == b.Records[i].Status {
			continue
		}
		errs = append(errs, s.api.PersistRecordUpdate(ctx, semaforo.RecordUpdate{
			ClientID: b.ClientID,
			Day:      r.DayDate,
			Field:    semaforo.FieldStatus,
			Value:    string(r.Status),
		}))
	}
	if err := errors.Join(errs...); err != nil {
		return next, err
	}

	log.Info().Str("component", "service").Str("client", b.ClientID).Str("product", string(p)).Bool("confirmed", rec.Products[p]).Msg("product toggled")
	return next, nil
}

// AssignCloser hands a red client to a closer once the closer threshold passed.
func (s *SemaforoService) AssignCloser(ctx context.Context, clientID, closer string) error {
	closer = models.NormalizeName(closer)
	if closer == "" {
		return fmt.Errorf("%w: closer is required", ErrInvalidInput)
	}
	b, err := s.findBlock(ctx, clientID)
	if err != nil {
		return err
	}
	if !s.thresholds.EligibleForCloser(s.lifecycle.Summarize(b, s.today())) {
		return fmt.Errorf("%w: %s for closer", ErrNotEligible, b.ClientID)
	}
	if err := s.api.AssignCloser(ctx, b.ClientID, closer, s.today()); err != nil {
		return err
	}
	log.Info().Str("component", "service").Str("client", b.ClientID).Str("closer", closer).Msg("closer assigned")
	return nil
}

// AssignSupercloser escalates a red client its closer could not recover.
func (s *SemaforoService) AssignSupercloser(ctx context.Context, clientID, supercloser string) error {
	supercloser = models.NormalizeName(supercloser)
	if supercloser == "" {
		return fmt.Errorf("%w: supercloser is required", ErrInvalidInput)
	}
	b, err := s.findBlock(ctx, clientID)
	if err != nil {
		return err
	}
	if !s.thresholds.EligibleForSupercloser(s.lifecycle.Summarize(b, s.today())) {
		return fmt.Errorf("%w: %s for supercloser", ErrNotEligible, b.ClientID)
	}
	if err := s.api.AssignSupercloser(ctx, b.ClientID, supercloser, s.today()); err != nil {
		return err
	}
	log.Info().Str("component", "service").Str("client", b.ClientID).Str("supercloser", supercloser).Msg("supercloser assigned")
	return nil
}

// SaveCloserFollowUp stores the closer's notes and product flags. Unset flags
// start from what coordination recorded.
func (s *SemaforoService) SaveCloserFollowUp(ctx context.Context, f semaforo.FollowUp) error {
	b, err := s.findBlock(ctx, f.ClientID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(s.lifecycle.Summarize(b, s.today()).AssignedCloser) == "" {
		return fmt.Errorf("%w: %s has no closer", ErrNotEligible, b.ClientID)
	}
	f.ClientID = b.ClientID
	if f.Products == nil {
		f.Products = s.carriedProducts(b, func(r models.DailyRecord) models.ProductFlags { return r.CloserProducts })
	}
	return s.api.SaveCloserFollowUp(ctx, f)
}

// SaveSupercloserFollowUp stores the supercloser's notes, product flags and
// closing state. Unset flags start from the closer's, then coordination's.
func (s *SemaforoService) SaveSupercloserFollowUp(ctx context.Context, f semaforo.FollowUp) error {
	switch strings.ToUpper(strings.TrimSpace(f.ClosingState)) {
	case "", models.ClosingClosed, models.ClosingFinished, models.ClosingToCentral:
		f.ClosingState = strings.ToUpper(strings.TrimSpace(f.ClosingState))
	default:
		return fmt.Errorf("%w: %q", ErrInvalidClosingState, f.ClosingState)
	}
	b, err := s.findBlock(ctx, f.ClientID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(s.lifecycle.Summarize(b, s.today()).AssignedSupercloser) == "" {
		return fmt.Errorf("%w: %s has no supercloser", ErrNotEligible, b.ClientID)
	}
	f.ClientID = b.ClientID
	if f.Products == nil {
		f.Products = s.carriedProducts(b, func(r models.DailyRecord) models.ProductFlags { return r.SupercloserProducts })
	}
	return s.api.SaveSupercloserFollowUp(ctx, f)
}

// carriedProducts returns the stage's own flags when any are stored, else the
// closer flags, else the coordination flags merged over the window.
func (s *SemaforoService) carriedProducts(b engine.Block, own func(models.DailyRecord) models.ProductFlags) models.ProductFlags {
	for _, pick := range []func(models.DailyRecord) models.ProductFlags{
		own,
		func(r models.DailyRecord) models.ProductFlags { return r.CloserProducts },
	} {
		for _, r := range b.Records {
			if flags := pick(r); len(flags) > 0 {
				return flags.Clone()
			}
		}
	}
	return s.lifecycle.Summarize(b, s.today()).Products.Clone()
}

// StageView returns the clients a user with role sees in stage.
func (s *SemaforoService) StageView(ctx context.Context, user, role, stage string) ([]models.ClientSummary, error) {
	r, ok := engine.ParseRole(role)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	today := s.today()
	return engine.Select(engine.Stage(stage), engine.Viewer{User: user, Role: r}, s.lifecycle.SummarizeAll(snap.Blocks, today), s.thresholds, today)
}

// ExportOutOfFlow writes the current out-of-flow listing and returns where.
func (s *SemaforoService) ExportOutOfFlow(ctx context.Context) (string, []models.ClientSummary, error) {
	rows, err := s.StageView(ctx, "", string(engine.RoleDirection), string(engine.StageOutOfFlow))
	if err != nil {
		return "", nil, err
	}
	location, err := s.outOfFlow.ExportOutOfFlow(ctx, rows)
	if err != nil {
		return "", nil, err
	}
	return location, rows, nil
}
