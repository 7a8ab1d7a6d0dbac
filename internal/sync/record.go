// Package sync links internal clients to companies kept in the ledger application.
package sync

import (
	"context"
	"errors"
	"time"

	"github.com/cybertec-postgresql/ledgerlink/internal/clients"
)

var (
	// ErrDirectoryUnavailable is returned when the company list could not be fetched
	ErrDirectoryUnavailable = errors.New("ledger directory unavailable")
	// ErrCompanyNotFound is returned when the requested company is not in the current listing
	ErrCompanyNotFound = errors.New("company not found in ledger")
	// ErrInvalidClientID is returned for client identifiers that are not positive
	ErrInvalidClientID = clients.ErrInvalidClientID
)

// Record links one client to the ledger company it was last synced with
type Record struct {
	ClientID    clients.ClientID `json:"clientId"`
	CompanyName string           `json:"companyName"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// Store keeps at most one Record per client. Upsert replaces any previous
// record of the same client: the old record is removed and the new one is
// appended, so All returns records in the order they were last linked.
type Store interface {
	Upsert(ctx context.Context, record Record) error
	All(ctx context.Context) ([]Record, error)
}

// replace drops every record of rec.ClientID from records and appends rec
func replace(records []Record, rec Record) []Record {
	out := make([]Record, 0, len(records)+1)
	for _, r := range records {
		if r.ClientID != rec.ClientID {
			out = append(out, r)
		}
	}
	return append(out, rec)
}
