package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/AnaEHC/semaforo-app/api"
	"github.com/AnaEHC/semaforo-app/api/semaforo"
	"github.com/AnaEHC/semaforo-app/engine"
	"github.com/AnaEHC/semaforo-app/models"
	services "github.com/AnaEHC/semaforo-app/service"
	"github.com/AnaEHC/semaforo-app/util"
)

const (
	CAL_QUERY_ARG       = "cal"
	COMERCIAL_QUERY_ARG = "comercial"
	CLIENTE_QUERY_ARG   = "cliente"
	SEMAFORO_QUERY_ARG  = "semaforo"
	EXPIRED_QUERY_ARG   = "vencidos"
	USER_QUERY_ARG      = "user"
	ROLE_QUERY_ARG      = "role"

	ID_PATH_VAR      = "id"
	PRODUCT_PATH_VAR = "product"
	STAGE_PATH_VAR   = "stage"

	REPORT_TITLE = "Semáforo de clientes"
)

// NewClientRequest is the intake form.
type NewClientRequest struct {
	Cal       string `json:"cal"`
	Comercial string `json:"comercial"`
	Cliente   string `json:"cliente"`
}

// AssignRequest names the closer or supercloser taking a client.
type AssignRequest struct {
	Nombre string `json:"nombre"`
}

// FollowUpRequest is what a closer or supercloser saves.
type FollowUpRequest struct {
	Seguimiento  string          `json:"seguimiento"`
	Estado       string          `json:"estado"`
	Productos    map[string]bool `json:"productos"`
	Gestionado   bool            `json:"gestionado"`
	EstadoCierre string          `json:"estado_cierre"`
}

// StageResponse lists a stage's clients.
type StageResponse struct {
	Stage    engine.Stage           `json:"stage"`
	Today    models.Date            `json:"today"`
	Clients  []models.ClientSummary `json:"clients"`
	Viewable []engine.Stage         `json:"viewable"`
}

type ClientHandler struct {
	semaforoService *services.SemaforoService
	refresher       *services.LifecycleRefresherService
}

func NewClientHandler(semaforoService *services.SemaforoService, refresher *services.LifecycleRefresherService) *ClientHandler {
	return &ClientHandler{
		semaforoService: semaforoService,
		refresher:       refresher,
	}
}

// Ping handles GET /ping
func (h *ClientHandler) Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "pong"})
}

// ListClients handles GET /v1/clients
func (h *ClientHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rows, err := h.semaforoService.Summaries(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// AddClient handles POST /v1/clients
func (h *ClientHandler) AddClient(w http.ResponseWriter, r *http.Request) {
	var req NewClientRequest
	if !decode(w, r, &req) {
		return
	}
	block, err := h.semaforoService.AddClient(r.Context(), req.Cal, req.Comercial, req.Cliente)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, block)
}

// ToggleProduct handles POST /v1/clients/{id}/products/{product}/toggle
func (h *ClientHandler) ToggleProduct(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	block, err := h.semaforoService.ToggleProduct(r.Context(), vars[ID_PATH_VAR], vars[PRODUCT_PATH_VAR])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, block.RecordsSlice())
}

// StageView handles GET /v1/stages/{stage}?user=&role=
func (h *ClientHandler) StageView(w http.ResponseWriter, r *http.Request) {
	stage := engine.Stage(mux.Vars(r)[STAGE_PATH_VAR])
	q := r.URL.Query()
	rows, err := h.semaforoService.StageView(r.Context(), q.Get(USER_QUERY_ARG), q.Get(ROLE_QUERY_ARG), string(stage))
	if err != nil {
		writeError(w, err)
		return
	}
	role, _ := engine.ParseRole(q.Get(ROLE_QUERY_ARG))
	writeJSON(w, http.StatusOK, StageResponse{
		Stage:    stage,
		Today:    h.semaforoService.Today(),
		Clients:  rows,
		Viewable: role.Stages(),
	})
}

// AssignCloser handles POST /v1/clients/{id}/closer
func (h *ClientHandler) AssignCloser(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.semaforoService.AssignCloser(r.Context(), mux.Vars(r)[ID_PATH_VAR], req.Nombre); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// AssignSupercloser handles POST /v1/clients/{id}/supercloser
func (h *ClientHandler) AssignSupercloser(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.semaforoService.AssignSupercloser(r.Context(), mux.Vars(r)[ID_PATH_VAR], req.Nombre); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CloserFollowUp handles POST /v1/clients/{id}/closer/follow-up
func (h *ClientHandler) CloserFollowUp(w http.ResponseWriter, r *http.Request) {
	f, ok := decodeFollowUp(w, r)
	if !ok {
		return
	}
	if err := h.semaforoService.SaveCloserFollowUp(r.Context(), f); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SupercloserFollowUp handles POST /v1/clients/{id}/supercloser/follow-up
func (h *ClientHandler) SupercloserFollowUp(w http.ResponseWriter, r *http.Request) {
	f, ok := decodeFollowUp(w, r)
	if !ok {
		return
	}
	if err := h.semaforoService.SaveSupercloserFollowUp(r.Context(), f); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RunSweep handles POST /v1/sweep
func (h *ClientHandler) RunSweep(w http.ResponseWriter, r *http.Request) {
	report, err := h.refresher.RunSweep(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// LastSweep handles GET /v1/sweep/last
func (h *ClientHandler) LastSweep(w http.ResponseWriter, r *http.Request) {
	report, err := h.refresher.LastSweep()
	if err != nil {
		writeError(w, err)
		return
	}
	if report == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no sweep has run yet"})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ExportOutOfFlow handles POST /v1/export/out-of-flow
func (h *ClientHandler) ExportOutOfFlow(w http.ResponseWriter, r *http.Request) {
	location, rows, err := h.semaforoService.ExportOutOfFlow(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ubicacion": location,
		"clientes":  len(rows),
	})
}

// StatusChart handles GET /v1/report/chart
func (h *ClientHandler) StatusChart(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rows, err := h.semaforoService.Summaries(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := util.RenderStatusReport(w, REPORT_TITLE, rows); err != nil {
		log.Error().Str("component", "handler").Err(err).Msg("failed to render status chart")
	}
}

func parseFilter(r *http.Request) (services.ClientFilter, error) {
	q := r.URL.Query()
	f := services.ClientFilter{
		Cal:       q.Get(CAL_QUERY_ARG),
		Comercial: q.Get(COMERCIAL_QUERY_ARG),
		Cliente:   q.Get(CLIENTE_QUERY_ARG),
	}
	if v := q.Get(EXPIRED_QUERY_ARG); v != "" {
		f.IncludeExpired, _ = strconv.ParseBool(v)
	}
	if v := q.Get(SEMAFORO_QUERY_ARG); v != "" {
		st, ok := parseStatus(v)
		if !ok {
			return f, badRequest("invalid argument " + SEMAFORO_QUERY_ARG)
		}
		f.Status = &st
	}
	return f, nil
}

// parseStatus accepts a stored status value or its label.
func parseStatus(v string) (models.Status, bool) {
	v = strings.TrimSpace(v)
	for _, st := range models.Statuses {
		if strings.EqualFold(v, string(st)) || strings.EqualFold(v, st.Label()) {
			return st, true
		}
	}
	return "", false
}

func decodeFollowUp(w http.ResponseWriter, r *http.Request) (semaforo.FollowUp, bool) {
	var req FollowUpRequest
	if !decode(w, r, &req) {
		return semaforo.FollowUp{}, false
	}
	f := semaforo.FollowUp{
		ClientID:     mux.Vars(r)[ID_PATH_VAR],
		Notes:        req.Seguimiento,
		State:        req.Estado,
		Handled:      req.Gestionado,
		ClosingState: req.EstadoCierre,
	}
	if req.Productos != nil {
		f.Products = models.ProductFlags{}
		for p, v := range req.Productos {
			f.Products[models.Product(models.NormalizeName(p))] = v
		}
	}
	return f, true
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

type badRequest string

func (e badRequest) Error() string { return string(e) }

func statusFor(err error) int {
	var br badRequest
	switch {
	case errors.As(err, &br),
		errors.Is(err, services.ErrUnknownProduct),
		errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrUnknownRole),
		errors.Is(err, services.ErrInvalidClosingState),
		errors.Is(err, engine.ErrUnknownStage):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrStageNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, services.ErrClientNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrClientExists):
		return http.StatusConflict
	case errors.Is(err, services.ErrNotToday), errors.Is(err, services.ErrNotEligible):
		return http.StatusUnprocessableEntity
	case errors.Is(err, api.ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		log.Error().Str("component", "handler").Err(err).Int("code", code).Msg("request failed")
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Str("component", "handler").Err(err).Msg("error encoding response")
	}
}
