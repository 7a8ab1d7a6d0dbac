// Package api exposes the ledger link and client records over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cybertec-postgresql/ledgerlink/internal/clients"
	"github.com/cybertec-postgresql/ledgerlink/internal/sync"
)

// API serves the HTTP endpoints
type API struct {
	service *sync.Service
	clients *clients.Repository
	mux     *http.ServeMux
}

// NewRouter wires the handlers for the sync service and the client repository
func NewRouter(service *sync.Service, repo *clients.Repository) http.Handler {
	a := &API{
		service: service,
		clients: repo,
		mux:     http.NewServeMux(),
	}

	a.mux.HandleFunc("GET /healthz", healthz)

	a.mux.HandleFunc("GET /api/ledger/status", a.ledgerStatus)
	a.mux.HandleFunc("GET /api/ledger/companies", a.ledgerCompanies)
	a.mux.HandleFunc("GET /api/ledger/sync", a.listSyncRecords)
	a.mux.HandleFunc("POST /api/ledger/sync", a.syncCompany)

	a.mux.HandleFunc("GET /api/clients", a.listClients)
	a.mux.HandleFunc("POST /api/clients", a.createClient)
	a.mux.HandleFunc("GET /api/clients/{id}", a.getClient)
	a.mux.HandleFunc("GET /api/clients/{id}/services", a.listServices)
	a.mux.HandleFunc("POST /api/clients/{id}/services", a.appendService)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, KindNotFound, "not found")
	})

	return a
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	a.mux.ServeHTTP(rec, r)

	logrus.WithFields(logrus.Fields{
		"method":   r.Method,
		"path":     r.URL.Path,
		"status":   rec.status,
		"duration": time.Since(start),
	}).Debug("HTTP request served")
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
