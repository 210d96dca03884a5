package export

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	redisdao "github.com/AnaEHC/semaforo-app/dao/redis"
	"github.com/AnaEHC/semaforo-app/db"
	"github.com/AnaEHC/semaforo-app/engine"
	"github.com/AnaEHC/semaforo-app/models"
)

var exportDay = models.NewDate(2025, time.March, 6)

func fixedToday() models.Date { return exportDay }

func redRecords(client string) []models.DailyRecord {
	out := make([]models.DailyRecord, 0, 3)
	for i := 0; i < 3; i++ {
		out = append(out, models.DailyRecord{
			ClientID:  client,
			Cal:       "MADRID",
			Comercial: "ANA",
			DayDate:   models.NewDate(2025, time.March, 3+i),
			EntryDate: models.NewDate(2025, time.March, 3),
			Status:    models.StatusRed,
			Products:  models.ProductFlags{models.ProductHL: i == 0},
		})
	}
	return out
}

func readRows(t *testing.T, path, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return rows
}

func TestExcelExporter_ExportExpiredBlock(t *testing.T) {
	dir := t.TempDir()
	exp := NewExcelExporter(dir, "sistema", models.DefaultProducts, fixedToday)

	path, err := exp.ExportExpiredBlock(context.Background(), redRecords("ACME"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ROJOS_SISTEMA_2025-03-06.xlsx"), path)

	_, err = exp.ExportExpiredBlock(context.Background(), redRecords("BETA"))
	require.NoError(t, err)

	rows := readRows(t, path, handOffSheet)
	require.Len(t, rows, 7)
	assert.Equal(t, []string{"CLIENTE", "CAL", "COMERCIAL", "DIA", "FECHA_ENTRADA", "SEMAFORO", "F2025", "F2026", "HL"}, rows[0][:9])
	assert.Equal(t, "ACME", rows[1][0])
	assert.Equal(t, "2025-03-03", rows[1][3])
	assert.Equal(t, "ROJO", rows[1][5])
	assert.Equal(t, "✔", rows[1][8])
	assert.Equal(t, "BETA", rows[6][0])
}

func TestExcelExporter_EmptyBlock(t *testing.T) {
	exp := NewExcelExporter(t.TempDir(), "sistema", models.DefaultProducts, fixedToday)

	_, err := exp.ExportExpiredBlock(context.Background(), nil)

	assert.Error(t, err)
}

func TestExcelExporter_ExportOutOfFlow(t *testing.T) {
	dir := t.TempDir()
	exp := NewExcelExporter(dir, "sistema", models.DefaultProducts, fixedToday)
	summaries := []models.ClientSummary{
		{ClientID: "ACME", Cal: "MADRID", EntryDate: models.NewDate(2025, time.March, 3), BusinessDays: 6, Status: models.StatusRed},
	}

	path, err := exp.ExportOutOfFlow(context.Background(), summaries)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Clientes_Fuera_Flujo_2025-03-06.xlsx"), path)
	rows := readRows(t, path, outOfFlowSheet)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"ACME", "MADRID", "", "2025-03-03", "6", "ROJO"}, rows[1][:6])
}

type countingExporter struct {
	calls int
	fail  error
}

func (c *countingExporter) ExportExpiredBlock(ctx context.Context, records []models.DailyRecord) (string, error) {
	c.calls++
	if c.fail != nil {
		return "", c.fail
	}
	return "file-" + records[0].ClientID, nil
}

func newMarkers() *redisdao.RedisClientDAO {
	return redisdao.NewRedisClientDAO(db.NewMockRedisClient(context.Background()))
}

func TestDedupExporter_ExportsOncePerKey(t *testing.T) {
	inner := &countingExporter{}
	dedup := NewDedupExporter(inner, newMarkers())
	h := engine.HandOff{ClientID: "ACME", Expiry: exportDay, Records: redRecords("ACME")}

	location, fresh, err := dedup.Export(context.Background(), h)
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Equal(t, "file-ACME", location)

	location, fresh, err = dedup.Export(context.Background(), h)
	require.NoError(t, err)
	assert.False(t, fresh)
	assert.Equal(t, "file-ACME", location)
	assert.Equal(t, 1, inner.calls)

	h.Expiry = exportDay.AddDays(7)
	_, fresh, err = dedup.Export(context.Background(), h)
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Equal(t, 2, inner.calls)
}

func TestDedupExporter_FailureReleasesClaim(t *testing.T) {
	inner := &countingExporter{fail: errors.New("disk full")}
	dedup := NewDedupExporter(inner, newMarkers())
	h := engine.HandOff{ClientID: "ACME", Expiry: exportDay, Records: redRecords("ACME")}

	_, _, err := dedup.Export(context.Background(), h)
	require.Error(t, err)

	inner.fail = nil
	_, fresh, err := dedup.Export(context.Background(), h)
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Equal(t, 2, inner.calls)
}
