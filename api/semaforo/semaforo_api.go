package semaforo

import (
	"context"

	"github.com/AnaEHC/semaforo-app/models"
)

// RecordUpdate changes one column of one row in the record store. A product
// update also carries the row's status derived after the change; a status
// update has Field FieldStatus and the status as Value.
type RecordUpdate struct {
	ClientID string
	Day      models.Date
	Field    string
	Value    string
	Status   models.Status
}

// FollowUp is what a closer or supercloser saves after working a client.
type FollowUp struct {
	ClientID     string
	Notes        string
	State        string
	Products     models.ProductFlags
	Handled      bool
	ClosingState string
}

// SemaforoAPI is the narrow interface to the remote record store.
type SemaforoAPI interface {
	FetchHolidays(ctx context.Context) ([]models.Date, error)
	FetchClientRecords(ctx context.Context) ([]models.DailyRecord, error)
	PersistRecordUpdate(ctx context.Context, update RecordUpdate) error
	PersistNewClientBlock(ctx context.Context, clientID, comercial string, records []models.DailyRecord) error
	AssignCloser(ctx context.Context, clientID, closer string, on models.Date) error
	AssignSupercloser(ctx context.Context, clientID, supercloser string, on models.Date) error
	SaveCloserFollowUp(ctx context.Context, f FollowUp) error
	SaveSupercloserFollowUp(ctx context.Context, f FollowUp) error
}
