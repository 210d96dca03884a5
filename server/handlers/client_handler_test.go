package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnaEHC/semaforo-app/api/semaforo"
	"github.com/AnaEHC/semaforo-app/calendar"
	redisdao "github.com/AnaEHC/semaforo-app/dao/redis"
	"github.com/AnaEHC/semaforo-app/db"
	"github.com/AnaEHC/semaforo-app/engine"
	"github.com/AnaEHC/semaforo-app/export"
	"github.com/AnaEHC/semaforo-app/models"
	services "github.com/AnaEHC/semaforo-app/service"
)

// 2025-03-05 is a Wednesday.
var handlerToday = models.NewDate(2025, time.March, 5)

func seedRecords() []models.DailyRecord {
	var out []models.DailyRecord
	for _, c := range []struct{ id, cal string }{{"ACME", "MADRID"}, {"BETA", "SEVILLA"}} {
		for i := 0; i < 3; i++ {
			out = append(out, models.DailyRecord{
				ClientID:  c.id,
				Cal:       c.cal,
				Comercial: "LUIS",
				DayDate:   models.NewDate(2025, time.March, 3+i),
				EntryDate: models.NewDate(2025, time.March, 3),
				Products:  models.ProductFlags{},
			})
		}
	}
	return out
}

func newTestRouter(t *testing.T) (*mux.Router, *semaforo.SemaforoApiClientMock) {
	t.Helper()
	apiMock := semaforo.NewSemaforoApiClientMockWith(seedRecords(), nil)
	dao := redisdao.NewRedisClientDAO(db.NewMockRedisClient(context.Background()))
	statusEngine := engine.NewStatusEngine(models.DefaultProducts)
	lifecycle := engine.NewLifecycle(calendar.New(nil))
	today := func() models.Date { return handlerToday }
	excel := export.NewExcelExporter(t.TempDir(), "sistema", models.DefaultProducts, today)

	svc := services.NewSemaforoService(apiMock, dao, statusEngine, lifecycle, engine.DefaultThresholds, excel, today)
	refresher := services.NewLifecycleRefresherService(apiMock, dao, statusEngine, lifecycle,
		export.NewDedupExporter(excel, dao),
		func() time.Time { return handlerToday.Time().Add(10 * time.Hour) },
		time.UTC)
	h := NewClientHandler(svc, refresher)

	r := mux.NewRouter()
	r.HandleFunc("/ping", h.Ping).Methods("GET")
	r.HandleFunc("/v1/clients", h.ListClients).Methods("GET")
	r.HandleFunc("/v1/clients", h.AddClient).Methods("POST")
	r.HandleFunc("/v1/clients/{id}/products/{product}/toggle", h.ToggleProduct).Methods("POST")
	r.HandleFunc("/v1/clients/{id}/closer", h.AssignCloser).Methods("POST")
	r.HandleFunc("/v1/clients/{id}/closer/follow-up", h.CloserFollowUp).Methods("POST")
	r.HandleFunc("/v1/stages/{stage}", h.StageView).Methods("GET")
	r.HandleFunc("/v1/sweep", h.RunSweep).Methods("POST")
	r.HandleFunc("/v1/sweep/last", h.LastSweep).Methods("GET")
	r.HandleFunc("/v1/report/chart", h.StatusChart).Methods("GET")
	return r, apiMock
}

func do(r *mux.Router, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestClientHandler_Ping(t *testing.T) {
	r, _ := newTestRouter(t)

	rr := do(r, "GET", "/ping", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"pong"}`, rr.Body.String())
}

func TestClientHandler_ListClients(t *testing.T) {
	r, _ := newTestRouter(t)

	rr := do(r, "GET", "/v1/clients?cal=madrid&semaforo=rojo", "")

	require.Equal(t, http.StatusOK, rr.Code)
	var rows []models.ClientSummary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "ACME", rows[0].ClientID)
	assert.Equal(t, models.StatusRed, rows[0].Status)

	rr = do(r, "GET", "/v1/clients?semaforo=morado", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestClientHandler_AddClient(t *testing.T) {
	r, apiMock := newTestRouter(t)

	rr := do(r, "POST", "/v1/clients", `{"cal":"madrid","comercial":"luis","cliente":"gamma"}`)
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Len(t, apiMock.Records(), 9)

	rr = do(r, "POST", "/v1/clients", `{"cal":"madrid","comercial":"luis","cliente":"acme"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(r, "POST", "/v1/clients", `not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestClientHandler_ToggleProduct(t *testing.T) {
	r, _ := newTestRouter(t)

	rr := do(r, "POST", "/v1/clients/acme/products/hl/toggle", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var records []models.DailyRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &records))
	require.Len(t, records, 3)
	assert.True(t, records[2].Products[models.ProductHL])
	assert.Equal(t, models.StatusRed, records[2].Status)

	assert.Equal(t, http.StatusBadRequest, do(r, "POST", "/v1/clients/acme/products/xx/toggle", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, "POST", "/v1/clients/nadie/products/hl/toggle", "").Code)
}

func TestClientHandler_AssignCloserAndFollowUp(t *testing.T) {
	r, apiMock := newTestRouter(t)

	rr := do(r, "POST", "/v1/clients/acme/closer", `{"nombre":"marta"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "MARTA", apiMock.Records()[0].AssignedCloser)

	rr = do(r, "POST", "/v1/clients/acme/closer", `{"nombre":"otro"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = do(r, "POST", "/v1/clients/acme/closer/follow-up", `{"seguimiento":"llamar","productos":{"hl":true},"gestionado":true}`)
	require.Equal(t, http.StatusOK, rr.Code)
	rec := apiMock.Records()[0]
	assert.Equal(t, "llamar", rec.CloserNotes)
	assert.True(t, rec.CloserProducts[models.ProductHL])
}

func TestClientHandler_StageView(t *testing.T) {
	r, _ := newTestRouter(t)

	rr := do(r, "GET", "/v1/stages/closer-assignment?user=direccion&role=DIRECCION", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var resp StageResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Len(t, resp.Clients, 2)
	assert.Equal(t, handlerToday, resp.Today)
	assert.Contains(t, resp.Viewable, engine.StageOutOfFlow)

	assert.Equal(t, http.StatusForbidden, do(r, "GET", "/v1/stages/overview?user=ana&role=CLOSER", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, "GET", "/v1/stages/nope?user=ana&role=DIRECCION", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, "GET", "/v1/stages/overview?user=ana&role=BECARIO", "").Code)
}

func TestClientHandler_Sweep(t *testing.T) {
	r, _ := newTestRouter(t)

	assert.Equal(t, http.StatusNotFound, do(r, "GET", "/v1/sweep/last", "").Code)

	rr := do(r, "POST", "/v1/sweep", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var report models.SweepReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.Equal(t, 2, report.Clients)
	assert.Equal(t, 2, report.Active)

	assert.Equal(t, http.StatusOK, do(r, "GET", "/v1/sweep/last", "").Code)
}

func TestClientHandler_StatusChart(t *testing.T) {
	r, _ := newTestRouter(t)

	rr := do(r, "GET", "/v1/report/chart", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rr.Body.String(), "ROJO")
}
