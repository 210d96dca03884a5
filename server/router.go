package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// ClientRoutes is the set of handlers the router exposes.
type ClientRoutes interface {
	Ping(w http.ResponseWriter, r *http.Request)
	ListClients(w http.ResponseWriter, r *http.Request)
	AddClient(w http.ResponseWriter, r *http.Request)
	ToggleProduct(w http.ResponseWriter, r *http.Request)
	StageView(w http.ResponseWriter, r *http.Request)
	AssignCloser(w http.ResponseWriter, r *http.Request)
	AssignSupercloser(w http.ResponseWriter, r *http.Request)
	CloserFollowUp(w http.ResponseWriter, r *http.Request)
	SupercloserFollowUp(w http.ResponseWriter, r *http.Request)
	RunSweep(w http.ResponseWriter, r *http.Request)
	LastSweep(w http.ResponseWriter, r *http.Request)
	ExportOutOfFlow(w http.ResponseWriter, r *http.Request)
	StatusChart(w http.ResponseWriter, r *http.Request)
}

type Router struct {
	clientHandler ClientRoutes
	router        *mux.Router
}

// NewRouter creates a router with the app's routes.
func NewRouter(
	clientHandler ClientRoutes,
	router *mux.Router) *Router {
	return &Router{
		clientHandler: clientHandler,
		router:        router,
	}
}

func (r *Router) RegisterRoutes() {
	h := r.clientHandler

	r.router.HandleFunc("/ping", h.Ping).Methods("GET")

	// expects optional ?cal=&comercial=&cliente=&semaforo=&vencidos=
	r.router.HandleFunc("/v1/clients", h.ListClients).Methods("GET")
	r.router.HandleFunc("/v1/clients", h.AddClient).Methods("POST")
	r.router.HandleFunc("/v1/clients/{id}/products/{product}/toggle", h.ToggleProduct).Methods("POST")
	r.router.HandleFunc("/v1/clients/{id}/closer", h.AssignCloser).Methods("POST")
	r.router.HandleFunc("/v1/clients/{id}/supercloser", h.AssignSupercloser).Methods("POST")
	r.router.HandleFunc("/v1/clients/{id}/closer/follow-up", h.CloserFollowUp).Methods("POST")
	r.router.HandleFunc("/v1/clients/{id}/supercloser/follow-up", h.SupercloserFollowUp).Methods("POST")

	// expects ?user={name}&role={DIRECCION|COORDINADOR|CLOSER|SUPER}
	r.router.HandleFunc("/v1/stages/{stage}", h.StageView).Methods("GET")

	r.router.HandleFunc("/v1/sweep", h.RunSweep).Methods("POST")
	r.router.HandleFunc("/v1/sweep/last", h.LastSweep).Methods("GET")
	r.router.HandleFunc("/v1/export/out-of-flow", h.ExportOutOfFlow).Methods("POST")
	r.router.HandleFunc("/v1/report/chart", h.StatusChart).Methods("GET")
}
