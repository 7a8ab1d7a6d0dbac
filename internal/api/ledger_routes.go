package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cybertec-postgresql/ledgerlink/internal/clients"
	"github.com/cybertec-postgresql/ledgerlink/internal/sync"
)

type syncRequest struct {
	CompanyName string           `json:"companyName"`
	ClientID    clients.ClientID `json:"clientId"`
}

type syncResponse struct {
	Success     bool             `json:"success"`
	ClientID    clients.ClientID `json:"clientId"`
	CompanyName string           `json:"companyName"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	Message     string           `json:"message"`
}

func (a *API) ledgerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.service.Status(r.Context()))
}

func (a *API) ledgerCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := a.service.Companies(r.Context())
	if err != nil {
		writeServiceError(w, fmt.Errorf("%w: %w", sync.ErrDirectoryUnavailable, err))
		return
	}
	writeJSON(w, http.StatusOK, companies)
}

func (a *API) listSyncRecords(w http.ResponseWriter, r *http.Request) {
	records, err := a.service.Records(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (a *API) syncCompany(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := decodeStrictJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if strings.TrimSpace(req.CompanyName) == "" {
		writeError(w, http.StatusBadRequest, KindInvalidRequest, "companyName is required")
		return
	}
	if req.ClientID <= 0 {
		writeError(w, http.StatusBadRequest, KindInvalidRequest, "clientId is required")
		return
	}

	record, err := a.service.Sync(r.Context(), req.ClientID, req.CompanyName)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, syncResponse{
		Success:     true,
		ClientID:    record.ClientID,
		CompanyName: record.CompanyName,
		UpdatedAt:   record.UpdatedAt,
		Message:     fmt.Sprintf("Client linked to %s", record.CompanyName),
	})
}
