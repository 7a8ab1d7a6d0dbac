package sync

import (
	"context"
	"fmt"
	"slices"
	gosync "sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cybertec-postgresql/ledgerlink/internal/clients"
	"github.com/cybertec-postgresql/ledgerlink/internal/ledger"
)

// Directory is the view of the ledger application the service needs
type Directory interface {
	ListCompanies(ctx context.Context) ([]string, error)
	ProbeStatus(ctx context.Context) ledger.ConnectionStatus
	URL() string
}

// StatusReport is the connection state shown to users
type StatusReport struct {
	Status  ledger.ConnectionStatus `json:"status"`
	Message string                  `json:"message"`
}

// Service validates requested links against the ledger and commits them to the store
type Service struct {
	directory Directory
	store     Store
	now       func() time.Time

	mu       gosync.Mutex
	lastTime time.Time
}

// NewService creates a new synchronization service
func NewService(directory Directory, store Store) *Service {
	return &Service{
		directory: directory,
		store:     store,
		now:       time.Now,
	}
}

// Sync links clientID to companyName if the ledger currently lists a company
// with exactly that name. The listing and the commit are not atomic: the
// roster may change in between and the link is still stored.
func (s *Service) Sync(ctx context.Context, clientID clients.ClientID, companyName string) (Record, error) {
	if clientID <= 0 {
		return Record{}, fmt.Errorf("%w: %d", ErrInvalidClientID, clientID)
	}

	companies, err := s.directory.ListCompanies(ctx)
	if err != nil {
		logrus.WithError(err).WithField("client_id", clientID).Warn("Cannot sync, ledger directory unavailable")
		return Record{}, fmt.Errorf("%w: %w", ErrDirectoryUnavailable, err)
	}

	if !slices.Contains(companies, companyName) {
		logrus.WithFields(logrus.Fields{
			"client_id": clientID,
			"company":   companyName,
			"available": len(companies),
		}).Info("Requested company is not listed by the ledger")
		return Record{}, fmt.Errorf("%w: %q", ErrCompanyNotFound, companyName)
	}

	record := Record{
		ClientID:    clientID,
		CompanyName: companyName,
		UpdatedAt:   s.timestamp(),
	}
	if err := s.store.Upsert(ctx, record); err != nil {
		return Record{}, fmt.Errorf("failed to commit sync record: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"client_id": clientID,
		"company":   companyName,
	}).Info("Client linked to ledger company")
	return record, nil
}

// Companies returns the current ledger listing
func (s *Service) Companies(ctx context.Context) ([]string, error) {
	return s.directory.ListCompanies(ctx)
}

// Records returns all stored links
func (s *Service) Records(ctx context.Context) ([]Record, error) {
	return s.store.All(ctx)
}

// Status probes the ledger application
func (s *Service) Status(ctx context.Context) StatusReport {
	status := s.directory.ProbeStatus(ctx)
	if status == ledger.StatusConnected {
		return StatusReport{Status: status, Message: "Connected to ledger application"}
	}
	return StatusReport{
		Status:  ledger.StatusDisconnected,
		Message: fmt.Sprintf("Ledger application not reachable at %s", s.directory.URL()),
	}
}

// timestamp returns the current UTC time, never earlier than the previous one
func (s *Service) timestamp() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.now().UTC()
	if t.Before(s.lastTime) {
		t = s.lastTime
	}
	s.lastTime = t
	return t
}
