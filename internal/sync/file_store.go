package sync

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/cybertec-postgresql/ledgerlink/internal/collection"
)

// SyncCollection is the collection file holding the sync records
const SyncCollection = "ledger_sync.json"

// FileStore keeps the sync records as a JSON array in the collection store.
// The collection lock serializes concurrent upserts within the process.
type FileStore struct {
	store *collection.Store
	name  string
}

// NewFileStore creates a file-backed sync store
func NewFileStore(store *collection.Store) *FileStore {
	return &FileStore{store: store, name: SyncCollection}
}

// Upsert rewrites the whole collection with record replacing any previous
// record of the same client
func (s *FileStore) Upsert(_ context.Context, record Record) error {
	err := collection.UpdateAs(s.store, s.name, func(records []Record) ([]Record, error) {
		return replace(records, record), nil
	})
	if err != nil {
		return fmt.Errorf("failed to store sync record: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"client_id": record.ClientID,
		"company":   record.CompanyName,
		"backend":   "file",
	}).Debug("Sync record stored")
	return nil
}

// All returns every record in stored order. A missing or unreadable file is empty.
func (s *FileStore) All(_ context.Context) ([]Record, error) {
	records, err := collection.ReadAs[Record](s.store, s.name)
	if err != nil {
		return nil, fmt.Errorf("failed to read sync records: %w", err)
	}
	return records, nil
}
