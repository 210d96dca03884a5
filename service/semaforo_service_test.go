package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnaEHC/semaforo-app/api"
	"github.com/AnaEHC/semaforo-app/api/semaforo"
	"github.com/AnaEHC/semaforo-app/calendar"
	"github.com/AnaEHC/semaforo-app/engine"
	"github.com/AnaEHC/semaforo-app/models"
)

func TestAddClient_StartsOnNextBusinessDay(t *testing.T) {
	f := newFixture(nil, day(8))
	svc := f.service(nil)

	block, err := svc.AddClient(context.Background(), "madrid", "luis", "  panaderia   lopez ")

	require.NoError(t, err)
	require.Len(t, block, 3)
	assert.Equal(t, "PANADERIA LOPEZ", block[0].ClientID)
	assert.Equal(t, []models.Date{day(10), day(11), day(12)}, []models.Date{block[0].DayDate, block[1].DayDate, block[2].DayDate})
	for _, r := range block {
		assert.Equal(t, day(10), r.EntryDate)
		assert.Equal(t, "MADRID", r.Cal)
		assert.Equal(t, models.StatusEmpty, r.Status)
		assert.Len(t, r.Products, len(models.DefaultProducts))
	}
	assert.Len(t, f.api.Records(), 3)
}

func TestAddClient_RejectsDuplicatesAndBlanks(t *testing.T) {
	f := newFixture(window("PANADERIA LOPEZ", "MADRID", [3]int{3, 4, 5}), day(8))
	svc := f.service(nil)

	_, err := svc.AddClient(context.Background(), "madrid", "luis", "panadería lopez")
	assert.NoError(t, err, "accented name is a different client")

	_, err = svc.AddClient(context.Background(), "madrid", "luis", "Panaderia Lopez")
	assert.True(t, errors.Is(err, ErrClientExists))

	_, err = svc.AddClient(context.Background(), "madrid", "luis", "   ")
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

// flakyStore drops the rows of failDay and reports the failure, keeping the
// others, the way the row-by-row store client does.
type flakyStore struct {
	*semaforo.SemaforoApiClientMock
	failDay models.Date
	written [][]models.DailyRecord
}

func (s *flakyStore) PersistNewClientBlock(ctx context.Context, clientID, comercial string, records []models.DailyRecord) error {
	s.written = append(s.written, records)
	var kept []models.DailyRecord
	var failed error
	for _, r := range records {
		if r.DayDate.Equal(s.failDay) {
			failed = fmt.Errorf("day %s: %w", r.DayDate, api.ErrUnavailable)
			continue
		}
		kept = append(kept, r)
	}
	if err := s.SemaforoApiClientMock.PersistNewClientBlock(ctx, clientID, comercial, kept); err != nil {
		return err
	}
	return failed
}

func TestAddClient_CompletesPartialIntake(t *testing.T) {
	f := newFixture(nil, day(3))
	store := &flakyStore{SemaforoApiClientMock: f.api, failDay: day(4)}
	svc := NewSemaforoService(
		store,
		f.dao,
		engine.NewStatusEngine(models.DefaultProducts),
		engine.NewLifecycle(calendar.New(nil)),
		engine.DefaultThresholds,
		nil,
		func() models.Date { return f.today },
	)
	ctx := context.Background()

	_, err := svc.AddClient(ctx, "madrid", "luis", "acme")
	require.True(t, errors.Is(err, api.ErrUnavailable))
	assert.Len(t, f.api.Records(), 2)

	store.failDay = models.Date{}
	f.today = day(5)
	block, err := svc.AddClient(ctx, "madrid", "luis", "acme")
	require.NoError(t, err)

	require.Len(t, store.written, 2)
	require.Len(t, store.written[1], 1, "only the missing day is written")
	assert.Equal(t, day(4), store.written[1][0].DayDate)
	assert.Equal(t, day(3), store.written[1][0].EntryDate)
	assert.Equal(t, []models.Date{day(3), day(4), day(5)}, []models.Date{block[0].DayDate, block[1].DayDate, block[2].DayDate})
	assert.Len(t, f.api.Records(), 3)

	summaries, err := svc.Summaries(ctx, ClientFilter{})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "ACME", summaries[0].ClientID)

	_, err = svc.AddClient(ctx, "madrid", "luis", "acme")
	assert.True(t, errors.Is(err, ErrClientExists))
}

func TestToggleProduct_PersistsFlagAndStatusChanges(t *testing.T) {
	f := newFixture(window("ACME", "MADRID", [3]int{3, 4, 5}), day(4))
	svc := f.service(nil)
	ctx := context.Background()

	b, err := svc.ToggleProduct(ctx, "acme", "f2025")
	require.NoError(t, err)
	assert.Equal(t, [3]models.Status{models.StatusEmpty, models.StatusYellow, models.StatusEmpty}, b.Statuses())

	_, err = svc.ToggleProduct(ctx, "ACME", "F2026")
	require.NoError(t, err)
	b, err = svc.ToggleProduct(ctx, "ACME", "HL")
	require.NoError(t, err)

	assert.Equal(t, [3]models.Status{models.StatusBlueDone, models.StatusBlueDone, models.StatusEmpty}, b.Statuses())
	require.Len(t, f.api.Updates, 4)
	assert.Equal(t, semaforo.RecordUpdate{ClientID: "ACME", Day: day(4), Field: "F2025", Value: models.MarkConfirmed, Status: models.StatusYellow}, f.api.Updates[0])
	assert.Equal(t, semaforo.RecordUpdate{ClientID: "ACME", Day: day(4), Field: "HL", Value: models.MarkConfirmed, Status: models.StatusBlueDone}, f.api.Updates[2])
	assert.Equal(t, semaforo.RecordUpdate{ClientID: "ACME", Day: day(3), Field: semaforo.FieldStatus, Value: string(models.StatusBlueDone)}, f.api.Updates[3])
}

func TestToggleProduct_RepairsStaleStoredStatus(t *testing.T) {
	records := window("ACME", "MADRID", [3]int{3, 4, 5}, []models.Product{models.ProductF2025})
	f := newFixture(records, day(4))
	svc := f.service(nil)

	_, err := svc.ToggleProduct(context.Background(), "ACME", "F2026")
	require.NoError(t, err)

	require.Len(t, f.api.Updates, 2)
	assert.Equal(t, models.StatusYellow, f.api.Updates[0].Status)
	assert.Equal(t, semaforo.RecordUpdate{ClientID: "ACME", Day: day(3), Field: semaforo.FieldStatus, Value: string(models.StatusGreen)}, f.api.Updates[1])
	stored := f.api.Records()
	assert.Equal(t, models.StatusGreen, stored[0].Status)
	assert.Equal(t, models.StatusYellow, stored[1].Status)
}

func TestToggleProduct_Errors(t *testing.T) {
	f := newFixture(window("ACME", "MADRID", [3]int{10, 11, 12}), day(4))
	svc := f.service(nil)
	ctx := context.Background()

	_, err := svc.ToggleProduct(ctx, "ACME", "XX")
	assert.True(t, errors.Is(err, ErrUnknownProduct))

	_, err = svc.ToggleProduct(ctx, "ACME", "HL")
	assert.True(t, errors.Is(err, ErrNotToday))

	_, err = svc.ToggleProduct(ctx, "NADIE", "HL")
	assert.True(t, errors.Is(err, ErrClientNotFound))

	assert.Empty(t, f.api.Updates)
}

func TestAssignCloserAndSupercloser(t *testing.T) {
	f := newFixture(window("ACME", "MADRID", [3]int{3, 4, 5}), day(5))
	svc := f.service(nil)
	ctx := context.Background()

	err := svc.AssignSupercloser(ctx, "ACME", "jefe")
	assert.True(t, errors.Is(err, ErrNotEligible), "no closer yet")

	require.NoError(t, svc.AssignCloser(ctx, "ACME", "marta"))
	for _, r := range f.api.Records() {
		assert.Equal(t, "MARTA", r.AssignedCloser)
		assert.Equal(t, day(5), r.CloserAssignedAt)
	}

	err = svc.AssignCloser(ctx, "ACME", "otro")
	assert.True(t, errors.Is(err, ErrNotEligible), "already assigned")

	err = svc.AssignSupercloser(ctx, "ACME", "jefe")
	assert.True(t, errors.Is(err, ErrNotEligible), "below supercloser threshold")

	f.today = day(7)
	require.NoError(t, svc.AssignSupercloser(ctx, "ACME", "jefe"))
	assert.Equal(t, "JEFE", f.api.Records()[0].AssignedSupercloser)

	assert.True(t, errors.Is(svc.AssignCloser(ctx, "ACME", ""), ErrInvalidInput))
}

func TestAssignCloser_RequiresRed(t *testing.T) {
	all := []models.Product{models.ProductF2025, models.ProductF2026, models.ProductHL}
	f := newFixture(window("ACME", "MADRID", [3]int{3, 4, 5}, nil, nil, all), day(6))
	svc := f.service(nil)

	err := svc.AssignCloser(context.Background(), "ACME", "marta")

	assert.True(t, errors.Is(err, ErrNotEligible))
}

func TestFollowUps(t *testing.T) {
	f := newFixture(window("ACME", "MADRID", [3]int{3, 4, 5}, []models.Product{models.ProductHL}), day(5))
	svc := f.service(nil)
	ctx := context.Background()

	err := svc.SaveCloserFollowUp(ctx, semaforo.FollowUp{ClientID: "ACME", Notes: "llamar"})
	assert.True(t, errors.Is(err, ErrNotEligible))

	require.NoError(t, svc.AssignCloser(ctx, "ACME", "marta"))
	require.NoError(t, svc.SaveCloserFollowUp(ctx, semaforo.FollowUp{ClientID: "acme", Notes: "llamar", Handled: true}))

	rec := f.api.Records()[0]
	assert.Equal(t, "llamar", rec.CloserNotes)
	assert.True(t, rec.CloserHandled)
	assert.True(t, rec.CloserProducts[models.ProductHL], "carried from coordination")
	assert.False(t, rec.CloserProducts[models.ProductF2025])

	err = svc.SaveSupercloserFollowUp(ctx, semaforo.FollowUp{ClientID: "ACME", ClosingState: "tal vez"})
	assert.True(t, errors.Is(err, ErrInvalidClosingState))

	f.today = day(7)
	require.NoError(t, svc.AssignSupercloser(ctx, "ACME", "jefe"))
	require.NoError(t, svc.SaveSupercloserFollowUp(ctx, semaforo.FollowUp{ClientID: "ACME", ClosingState: "finalizado"}))

	rec = f.api.Records()[0]
	assert.True(t, rec.IsClosed())
	assert.True(t, rec.SupercloserProducts[models.ProductHL], "carried from closer")
}

func TestFollowUps_AssignmentOnAnyRow(t *testing.T) {
	records := window("ACME", "MADRID", [3]int{3, 4, 5})
	records[2].AssignedCloser = "MARTA"
	records[1].AssignedSupercloser = "JEFE"
	f := newFixture(records, day(7))
	svc := f.service(nil)
	ctx := context.Background()

	assert.NoError(t, svc.SaveCloserFollowUp(ctx, semaforo.FollowUp{ClientID: "ACME", Notes: "llamar"}))
	assert.NoError(t, svc.SaveSupercloserFollowUp(ctx, semaforo.FollowUp{ClientID: "ACME", Notes: "visitar"}))
	assert.Equal(t, "visitar", f.api.Records()[0].SupercloserNotes)
}

func TestStageView(t *testing.T) {
	records := append(window("ACME", "MADRID", [3]int{3, 4, 5}), window("BETA", "SEVILLA", [3]int{3, 4, 5})...)
	f := newFixture(records, day(4))
	svc := f.service(nil)
	ctx := context.Background()

	rows, err := svc.StageView(ctx, "madrid", "coordinador", string(engine.StageCoordination))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ACME", rows[0].ClientID)

	_, err = svc.StageView(ctx, "madrid", "becario", string(engine.StageCoordination))
	assert.True(t, errors.Is(err, ErrUnknownRole))

	_, err = svc.StageView(ctx, "madrid", "coordinador", string(engine.StageOverview))
	assert.True(t, errors.Is(err, engine.ErrStageNotAllowed))
}

func TestSummaries_FiltersAndCacheFallback(t *testing.T) {
	records := append(window("ACME", "MADRID", [3]int{3, 4, 5}), window("BETA", "SEVILLA", [3]int{10, 11, 12})...)
	f := newFixture(records, day(10))
	svc := f.service(nil)
	ctx := context.Background()

	rows, err := svc.Summaries(ctx, ClientFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1, "expired clients are hidden")
	assert.Equal(t, "BETA", rows[0].ClientID)

	rows, err = svc.Summaries(ctx, ClientFilter{IncludeExpired: true, Cal: "madrid"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ACME", rows[0].ClientID)

	rows, err = svc.Summaries(ctx, ClientFilter{IncludeExpired: true, Cal: "vill"})
	require.NoError(t, err)
	require.Len(t, rows, 1, "cal matches on a fragment")
	assert.Equal(t, "BETA", rows[0].ClientID)

	red := models.StatusRed
	rows, err = svc.Summaries(ctx, ClientFilter{IncludeExpired: true, Status: &red, Cliente: "ac"})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	f.api.Fail = errors.New("down")
	_, err = svc.Summaries(ctx, ClientFilter{})
	assert.Error(t, err, "nothing cached yet")

	require.NoError(t, f.dao.UpsertBlock("BETA", records[3:]))
	rows, err = svc.Summaries(ctx, ClientFilter{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestExportOutOfFlow(t *testing.T) {
	records := append(window("ACME", "MADRID", [3]int{3, 4, 5}), window("BETA", "SEVILLA", [3]int{6, 7, 10})...)
	f := newFixture(records, day(7))
	out := &stubOutOfFlow{}
	svc := f.service(out)

	location, rows, err := svc.ExportOutOfFlow(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "fuera.xlsx", location)
	require.Len(t, rows, 1)
	assert.Equal(t, "ACME", rows[0].ClientID)
	assert.Equal(t, rows, out.got)
}
