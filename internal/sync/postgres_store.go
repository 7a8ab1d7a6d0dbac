package sync

import (
	"context"
	"fmt"
	gosync "sync"

	"github.com/sirupsen/logrus"

	"github.com/cybertec-postgresql/ledgerlink/internal/clients"
	"github.com/cybertec-postgresql/ledgerlink/internal/db"
)

const (
	deleteRecordSQL = `DELETE FROM ledger_sync WHERE client_id = $1`
	insertRecordSQL = `INSERT INTO ledger_sync (client_id, company_name, updated_at) VALUES ($1, $2, $3)`
	selectRecordSQL = `SELECT client_id, company_name, updated_at FROM ledger_sync ORDER BY seq ASC`
)

// PostgresStore keeps the sync records in the ledger_sync table
type PostgresStore struct {
	pool db.PgxIface
	mu   gosync.Mutex
}

// NewPostgresStore creates a PostgreSQL-backed sync store. The schema is
// expected to be migrated already.
func NewPostgresStore(pool db.PgxIface) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Upsert deletes any record of the client and inserts the new one in a
// single transaction, so the new record also gets a new position.
func (s *PostgresStore) Upsert(ctx context.Context, record Record) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, deleteRecordSQL, int64(record.ClientID)); err != nil {
		return fmt.Errorf("failed to delete previous sync record: %w", err)
	}
	if _, err = tx.Exec(ctx, insertRecordSQL, int64(record.ClientID), record.CompanyName, record.UpdatedAt); err != nil {
		return fmt.Errorf("failed to insert sync record: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit sync record: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"client_id": record.ClientID,
		"company":   record.CompanyName,
		"backend":   "postgresql",
	}).Debug("Sync record stored")
	return nil
}

// All returns every record in insertion order
func (s *PostgresStore) All(ctx context.Context) ([]Record, error) {
	rows, err := s.pool.Query(ctx, selectRecordSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync records: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var (
			clientID int64
			record   Record
		)
		if err := rows.Scan(&clientID, &record.CompanyName, &record.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning sync record: %w", err)
		}
		record.ClientID = clients.ClientID(clientID)
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync records: %w", err)
	}

	return records, nil
}
