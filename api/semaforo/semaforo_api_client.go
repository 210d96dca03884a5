package semaforo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/AnaEHC/semaforo-app/api"
	"github.com/AnaEHC/semaforo-app/models"
)

// Actions understood by the PHP endpoint.
const (
	ACTION_HOLIDAYS         = "festivos"
	ACTION_CLIENTS          = "clientes"
	ACTION_UPDATE_PRODUCT   = "actualizar_producto"
	ACTION_UPDATE_STATUS    = "actualizar_semaforo"
	ACTION_INSERT_CLIENT    = "insertar_cliente"
	ACTION_ASSIGN_CLOSER    = "asignar_closer"
	ACTION_ASSIGN_SUPER     = "asignar_supercloser"
	ACTION_CLOSER_FOLLOW_UP = "seguimiento_closer"
	ACTION_SUPER_FOLLOW_UP  = "seguimiento_super"
	responseStatusOK        = "ok"
)

// SemaforoApiClient embeds the common HTTPClient
type SemaforoApiClient struct {
	*api.HTTPClient
}

// NewSemaforoApiClient creates a new instance of SemaforoApiClient
func NewSemaforoApiClient(httpClient *api.HTTPClient) *SemaforoApiClient {
	return &SemaforoApiClient{
		HTTPClient: httpClient,
	}
}

type writeResponse struct {
	Status  string `json:"status"`
	Message string `json:"mensaje"`
}

// FetchHolidays returns every holiday the store knows. Malformed dates are dropped.
func (c *SemaforoApiClient) FetchHolidays(ctx context.Context) ([]models.Date, error) {
	var raw []models.Date
	if err := c.PostForm(ctx, "", url.Values{"accion": {ACTION_HOLIDAYS}}, &raw); err != nil {
		return nil, fmt.Errorf("fetch holidays: %w", err)
	}
	holidays := make([]models.Date, 0, len(raw))
	for _, d := range raw {
		if !d.IsZero() {
			holidays = append(holidays, d)
		}
	}
	return holidays, nil
}

// FetchClientRecords returns all rows across all clients.
func (c *SemaforoApiClient) FetchClientRecords(ctx context.Context) ([]models.DailyRecord, error) {
	var records []models.DailyRecord
	if err := c.PostForm(ctx, "", url.Values{"accion": {ACTION_CLIENTS}}, &records); err != nil {
		return nil, fmt.Errorf("fetch clients: %w", err)
	}
	return records, nil
}

// PersistRecordUpdate writes one row. Product flags travel with the row's
// status in a single call; status-only writes use their own action.
func (c *SemaforoApiClient) PersistRecordUpdate(ctx context.Context, u RecordUpdate) error {
	if u.Field == FieldStatus {
		return c.write(ctx, map[string]interface{}{
			"accion":   ACTION_UPDATE_STATUS,
			"cliente":  u.ClientID,
			"dia":      u.Day.String(),
			"semaforo": u.Value,
		})
	}
	return c.write(ctx, map[string]interface{}{
		"accion":   ACTION_UPDATE_PRODUCT,
		"producto": u.Field,
		"valor":    u.Value,
		"semaforo": string(u.Status),
		"cliente":  u.ClientID,
		"dia":      u.Day.String(),
	})
}

// PersistNewClientBlock inserts the rows of a new client one by one. Every
// row is attempted; failures are joined.
func (c *SemaforoApiClient) PersistNewClientBlock(ctx context.Context, clientID, comercial string, records []models.DailyRecord) error {
	var errs []error
	for _, r := range records {
		payload := map[string]interface{}{
			"accion":        ACTION_INSERT_CLIENT,
			"CAL":           r.Cal,
			"COMERCIAL":     comercial,
			"CLIENTE":       clientID,
			"DIA":           r.DayDate.String(),
			"FECHA_ENTRADA": r.EntryDate.String(),
		}
		if err := c.write(ctx, payload); err != nil {
			errs = append(errs, fmt.Errorf("day %s: %w", r.DayDate, err))
		}
	}
	return errors.Join(errs...)
}

// AssignCloser is the one write the store takes form-encoded.
func (c *SemaforoApiClient) AssignCloser(ctx context.Context, clientID, closer string, on models.Date) error {
	values := url.Values{
		"accion":  {ACTION_ASSIGN_CLOSER},
		"cliente": {clientID},
		"closer":  {closer},
		"fecha":   {on.String()},
	}
	var res writeResponse
	if err := c.PostForm(ctx, "", values, &res); err != nil {
		return fmt.Errorf("%s: %w", ACTION_ASSIGN_CLOSER, err)
	}
	return checkWrite(ACTION_ASSIGN_CLOSER, res)
}

func (c *SemaforoApiClient) AssignSupercloser(ctx context.Context, clientID, supercloser string, on models.Date) error {
	return c.write(ctx, map[string]interface{}{
		"accion":  ACTION_ASSIGN_SUPER,
		"cliente": clientID,
		"nombre":  supercloser,
		"fecha":   on.String(),
	})
}

func (c *SemaforoApiClient) SaveCloserFollowUp(ctx context.Context, f FollowUp) error {
	return c.write(ctx, map[string]interface{}{
		"accion":      ACTION_CLOSER_FOLLOW_UP,
		"cliente":     f.ClientID,
		"seguimiento": f.Notes,
		"estado":      f.State,
		"gestionado":  f.Handled,
		"productos":   productColumns("CLOSER_", f.Products),
	})
}

func (c *SemaforoApiClient) SaveSupercloserFollowUp(ctx context.Context, f FollowUp) error {
	datos := productColumns("SUPERCLOSER_", f.Products)
	datos["SEGUIMIENTO_SUPERCLOSER"] = f.Notes
	datos["ESTADO_CIERRE"] = f.ClosingState
	datos["GESTIONADO_SUPER"] = f.Handled
	return c.write(ctx, map[string]interface{}{
		"accion":  ACTION_SUPER_FOLLOW_UP,
		"cliente": f.ClientID,
		"datos":   datos,
	})
}

func (c *SemaforoApiClient) write(ctx context.Context, payload map[string]interface{}) error {
	var res writeResponse
	if err := c.Request(ctx, http.MethodPost, "", nil, payload, &res); err != nil {
		return fmt.Errorf("%s: %w", payload["accion"], err)
	}
	return checkWrite(payload["accion"], res)
}

func checkWrite(action interface{}, res writeResponse) error {
	if res.Status != "" && !strings.EqualFold(res.Status, responseStatusOK) {
		return fmt.Errorf("%s: %w: store answered %q %s", action, api.ErrUnavailable, res.Status, res.Message)
	}
	return nil
}

func productColumns(prefix string, flags models.ProductFlags) map[string]interface{} {
	out := make(map[string]interface{}, len(flags))
	for p, v := range flags {
		out[prefix+string(p)] = models.Mark(v)
	}
	return out
}
