package api

import (
	"net/http"

	"github.com/cybertec-postgresql/ledgerlink/internal/clients"
)

type createClientRequest struct {
	Name  string `json:"name"`
	GSTIN string `json:"gstin"`
}

type appendServiceRequest struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	Description string `json:"description"`
}

func (a *API) listClients(w http.ResponseWriter, _ *http.Request) {
	items, err := a.clients.ListClients()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *API) createClient(w http.ResponseWriter, r *http.Request) {
	var req createClientRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	created, err := a.clients.CreateClient(req.Name, req.GSTIN)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) getClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathClientID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	client, err := a.clients.GetClient(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

func (a *API) listServices(w http.ResponseWriter, r *http.Request) {
	id, err := pathClientID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	client, err := a.clients.GetClient(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, client.Services)
}

func (a *API) appendService(w http.ResponseWriter, r *http.Request) {
	id, err := pathClientID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var req appendServiceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if req.Status == "" {
		req.Status = "pending"
	}
	service, err := a.clients.AppendService(id, clients.Service{
		Name:        req.Name,
		Status:      req.Status,
		Description: req.Description,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, service)
}
