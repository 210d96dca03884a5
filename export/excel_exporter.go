package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/AnaEHC/semaforo-app/models"
)

const (
	handOffSheet   = "ROJOS"
	outOfFlowSheet = "FUERA DE FLUJO"
)

// ExcelExporter writes hand-offs into one workbook per user and day under dir.
type ExcelExporter struct {
	dir      string
	user     string
	products []models.Product
	today    func() models.Date

	mu sync.Mutex
}

func NewExcelExporter(dir, user string, products []models.Product, today func() models.Date) *ExcelExporter {
	return &ExcelExporter{
		dir:      dir,
		user:     models.NormalizeName(user),
		products: products,
		today:    today,
	}
}

func (e *ExcelExporter) handOffHeader() []interface{} {
	header := []interface{}{"CLIENTE", "CAL", "COMERCIAL", "DIA", "FECHA_ENTRADA", "SEMAFORO"}
	for _, p := range e.products {
		header = append(header, string(p))
	}
	return append(header, "ASIGNADO_CLOSER", "ASIGNADO_SUPERCLOSER", "ESTADO_CIERRE")
}

func (e *ExcelExporter) handOffRow(r models.DailyRecord) []interface{} {
	row := []interface{}{r.ClientID, r.Cal, r.Comercial, r.DayDate.String(), r.EntryDate.String(), string(r.Status)}
	for _, p := range e.products {
		row = append(row, models.Mark(r.Products[p]))
	}
	return append(row, r.AssignedCloser, r.AssignedSupercloser, r.ClosingState)
}

// ExportExpiredBlock appends the block's rows to ROJOS_<user>_<date>.xlsx,
// creating the workbook on the first hand-off of the day.
func (e *ExcelExporter) ExportExpiredBlock(ctx context.Context, records []models.DailyRecord) (string, error) {
	if len(records) == 0 {
		return "", errors.New("empty block")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(e.dir, fmt.Sprintf("ROJOS_%s_%s.xlsx", e.user, e.today()))

	f, next, err := e.openHandOffBook(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	for _, r := range records {
		if err := writeRow(f, handOffSheet, next, e.handOffRow(r)); err != nil {
			return "", err
		}
		next++
	}
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	return path, nil
}

// openHandOffBook opens the day's workbook or creates it with a header. It
// returns the next free row.
func (e *ExcelExporter) openHandOffBook(path string) (*excelize.File, int, error) {
	if _, err := os.Stat(path); err == nil {
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, 0, fmt.Errorf("open %s: %w", path, err)
		}
		rows, err := f.GetRows(handOffSheet)
		if err != nil {
			_ = f.Close()
			return nil, 0, fmt.Errorf("read %s: %w", path, err)
		}
		return f, len(rows) + 1, nil
	}

	f, err := newBook(handOffSheet)
	if err != nil {
		return nil, 0, err
	}
	if err := writeRow(f, handOffSheet, 1, e.handOffHeader()); err != nil {
		_ = f.Close()
		return nil, 0, err
	}
	return f, 2, nil
}

// ExportOutOfFlow writes the out-of-flow listing to
// Clientes_Fuera_Flujo_<date>.xlsx, replacing any earlier file of the day.
func (e *ExcelExporter) ExportOutOfFlow(ctx context.Context, summaries []models.ClientSummary) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(e.dir, fmt.Sprintf("Clientes_Fuera_Flujo_%s.xlsx", e.today()))

	f, err := newBook(outOfFlowSheet)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	header := []interface{}{"CLIENTE", "CAL", "COMERCIAL", "FECHA_ENTRADA", "DIAS_HABILES", "SEMAFORO", "ASIGNADO_CLOSER", "ASIGNADO_SUPERCLOSER", "ESTADO_CIERRE"}
	if err := writeRow(f, outOfFlowSheet, 1, header); err != nil {
		return "", err
	}
	for i, s := range summaries {
		row := []interface{}{s.ClientID, s.Cal, s.Comercial, s.EntryDate.String(), s.BusinessDays, string(s.Status), s.AssignedCloser, s.AssignedSupercloser, s.ClosingState}
		if err := writeRow(f, outOfFlowSheet, i+2, row); err != nil {
			return "", err
		}
	}
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	return path, nil
}

func newBook(sheet string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("name sheet: %w", err)
	}
	return f, nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}
