package semaforo

import (
	"context"
	"fmt"
	"sync"

	"github.com/AnaEHC/semaforo-app/models"
	"github.com/AnaEHC/semaforo-app/util"
)

// SemaforoApiClientMock is an in-memory record store, seeded from JSON
// fixtures, used in dev mode and tests.
type SemaforoApiClientMock struct {
	mu       sync.Mutex
	records  []models.DailyRecord
	holidays []models.Date

	// Updates lists every PersistRecordUpdate call in order.
	Updates []RecordUpdate

	// Fail, when set, is returned by every call.
	Fail error
}

// NewSemaforoApiClientMock seeds the mock from fixture files. A missing
// fixture leaves that part empty.
func NewSemaforoApiClientMock(clientsPath, holidaysPath string) *SemaforoApiClientMock {
	m := &SemaforoApiClientMock{}
	if records, err := util.ReadClientRecordsFromJSON(clientsPath); err == nil {
		m.records = records
	}
	if holidays, err := util.ReadHolidaysFromJSON(holidaysPath); err == nil {
		m.holidays = holidays
	}
	return m
}

// NewSemaforoApiClientMockWith seeds the mock from memory.
func NewSemaforoApiClientMockWith(records []models.DailyRecord, holidays []models.Date) *SemaforoApiClientMock {
	m := &SemaforoApiClientMock{holidays: holidays}
	for _, r := range records {
		m.records = append(m.records, r.Clone())
	}
	return m
}

func (m *SemaforoApiClientMock) FetchHolidays(ctx context.Context) ([]models.Date, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	return append([]models.Date(nil), m.holidays...), nil
}

func (m *SemaforoApiClientMock) FetchClientRecords(ctx context.Context) ([]models.DailyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	out := make([]models.DailyRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r.Clone())
	}
	return out, nil
}

func (m *SemaforoApiClientMock) PersistRecordUpdate(ctx context.Context, u RecordUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.Updates = append(m.Updates, u)
	for i := range m.records {
		r := &m.records[i]
		if r.ClientID != u.ClientID || !r.DayDate.Equal(u.Day) {
			continue
		}
		if u.Field == FieldStatus {
			r.Status = models.Status(u.Value)
			return nil
		}
		if r.Products == nil {
			r.Products = models.ProductFlags{}
		}
		r.Products[models.Product(u.Field)] = u.Value == models.MarkConfirmed
		r.Status = u.Status
		return nil
	}
	return fmt.Errorf("row %s %s not found", u.ClientID, u.Day)
}

func (m *SemaforoApiClientMock) PersistNewClientBlock(ctx context.Context, clientID, comercial string, records []models.DailyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	for _, r := range records {
		c := r.Clone()
		c.ClientID = clientID
		c.Comercial = comercial
		m.records = append(m.records, c)
	}
	return nil
}

func (m *SemaforoApiClientMock) AssignCloser(ctx context.Context, clientID, closer string, on models.Date) error {
	return m.eachRow(clientID, func(r *models.DailyRecord) {
		r.AssignedCloser = closer
		r.CloserAssignedAt = on
	})
}

func (m *SemaforoApiClientMock) AssignSupercloser(ctx context.Context, clientID, supercloser string, on models.Date) error {
	return m.eachRow(clientID, func(r *models.DailyRecord) {
		r.AssignedSupercloser = supercloser
		r.SupercloserAssignedAt = on
	})
}

func (m *SemaforoApiClientMock) SaveCloserFollowUp(ctx context.Context, f FollowUp) error {
	return m.eachRow(f.ClientID, func(r *models.DailyRecord) {
		r.CloserNotes = f.Notes
		r.CloserProducts = f.Products.Clone()
		r.CloserHandled = f.Handled
	})
}

func (m *SemaforoApiClientMock) SaveSupercloserFollowUp(ctx context.Context, f FollowUp) error {
	return m.eachRow(f.ClientID, func(r *models.DailyRecord) {
		r.SupercloserNotes = f.Notes
		r.SupercloserProducts = f.Products.Clone()
		r.SupercloserHandled = f.Handled
		r.ClosingState = f.ClosingState
	})
}

// Records returns a copy of the stored rows.
func (m *SemaforoApiClientMock) Records() []models.DailyRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.DailyRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r.Clone())
	}
	return out
}

func (m *SemaforoApiClientMock) eachRow(clientID string, fn func(r *models.DailyRecord)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	found := false
	for i := range m.records {
		if m.records[i].ClientID == clientID {
			fn(&m.records[i])
			found = true
		}
	}
	if !found {
		return fmt.Errorf("client %s not found", clientID)
	}
	return nil
}
