package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/cybertec-postgresql/ledgerlink/internal/clients"
	"github.com/cybertec-postgresql/ledgerlink/internal/ledger"
	"github.com/cybertec-postgresql/ledgerlink/internal/sync"
)

const maxJSONBodyBytes int64 = 1 << 20

// Error kinds reported in the "error" field of failed responses
const (
	KindDirectoryUnavailable = "DirectoryUnavailable"
	KindCompanyNotFound      = "CompanyNotFound"
	KindInvalidRequest       = "InvalidRequest"
	KindClientNotFound       = "ClientNotFound"
	KindNotFound             = "NotFound"
	KindInternal             = "Internal"
)

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// decodeJSON reads a size limited JSON body, ignoring unknown fields
func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	return newBodyDecoder(w, r).Decode(target)
}

// decodeStrictJSON is decodeJSON rejecting unknown fields
func decodeStrictJSON(w http.ResponseWriter, r *http.Request, target any) error {
	decoder := newBodyDecoder(w, r)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func newBodyDecoder(w http.ResponseWriter, r *http.Request) *json.Decoder {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	return json.NewDecoder(r.Body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"status":    status,
			"body_type": fmt.Sprintf("%T", body),
		}).Warn("Failed to write JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorBody{Success: false, Error: kind, Message: message})
}

func writeDecodeError(w http.ResponseWriter, err error) {
	message := "invalid JSON"
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		message = fmt.Sprintf("request body too large (max %d bytes)", maxJSONBodyBytes)
	case errors.Is(err, clients.ErrInvalidClientID):
		message = "clientId must be a positive integer"
	}
	writeError(w, http.StatusBadRequest, KindInvalidRequest, message)
}

// writeServiceError maps domain errors to HTTP responses
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sync.ErrDirectoryUnavailable), errors.Is(err, ledger.ErrTransport):
		writeError(w, http.StatusBadGateway, KindDirectoryUnavailable, "ledger application is not reachable")
	case errors.Is(err, sync.ErrCompanyNotFound):
		writeError(w, http.StatusNotFound, KindCompanyNotFound, err.Error())
	case errors.Is(err, clients.ErrInvalidClientID), errors.Is(err, clients.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, KindInvalidRequest, err.Error())
	case errors.Is(err, clients.ErrClientNotFound):
		writeError(w, http.StatusNotFound, KindClientNotFound, "client not found")
	default:
		logrus.WithError(err).Error("Request failed")
		writeError(w, http.StatusInternalServerError, KindInternal, "internal server error")
	}
}

func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
}

// statusRecorder captures the status code for request logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func pathClientID(r *http.Request) (clients.ClientID, error) {
	return clients.ParseClientID(r.PathValue("id"))
}
