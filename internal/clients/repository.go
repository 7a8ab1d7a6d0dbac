// Package clients keeps the client records and the services rendered to them
// in the clients collection.
package clients

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cybertec-postgresql/ledgerlink/internal/collection"
)

// CollectionName is the file holding all clients
const CollectionName = "clients.json"

var (
	ErrClientNotFound = errors.New("client not found")
	ErrInvalidInput   = errors.New("invalid input")
)

// Service is a piece of work rendered to a client
type Service struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	Description string `json:"description"`
}

// Client is a customer of the firm
type Client struct {
	ID       ClientID  `json:"id"`
	Name     string    `json:"name"`
	GSTIN    string    `json:"gstin"`
	Services []Service `json:"services"`
}

// Repository reads and writes clients through the collection store
type Repository struct {
	store *collection.Store
	now   func() time.Time
}

// NewRepository creates a client repository
func NewRepository(store *collection.Store) *Repository {
	return &Repository{store: store, now: time.Now}
}

// ListClients returns all clients in stored order
func (r *Repository) ListClients() ([]Client, error) {
	items, err := collection.ReadAs[Client](r.store, CollectionName)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	for i := range items {
		if items[i].Services == nil {
			items[i].Services = []Service{}
		}
	}
	return items, nil
}

// GetClient returns the client with the given id
func (r *Repository) GetClient(id ClientID) (Client, error) {
	items, err := r.ListClients()
	if err != nil {
		return Client{}, err
	}
	for _, c := range items {
		if c.ID == id {
			return c, nil
		}
	}
	return Client{}, fmt.Errorf("%w: %s", ErrClientNotFound, id)
}

// CreateClient stores a new client with a millisecond timestamp id
func (r *Repository) CreateClient(name, gstin string) (Client, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Client{}, fmt.Errorf("%w: client name is required", ErrInvalidInput)
	}

	var created Client
	err := collection.UpdateAs(r.store, CollectionName, func(items []Client) ([]Client, error) {
		var last int64
		for _, c := range items {
			last = max(last, int64(c.ID))
		}
		created = Client{
			ID:       ClientID(r.nextID(last)),
			Name:     name,
			GSTIN:    strings.TrimSpace(gstin),
			Services: []Service{},
		}
		return append(items, created), nil
	})
	if err != nil {
		return Client{}, fmt.Errorf("failed to create client: %w", err)
	}

	logrus.WithField("client_id", created.ID).Info("Client created")
	return created, nil
}

// AppendService adds a service to an existing client
func (r *Repository) AppendService(id ClientID, service Service) (Service, error) {
	service.Name = strings.TrimSpace(service.Name)
	if service.Name == "" {
		return Service{}, fmt.Errorf("%w: service name is required", ErrInvalidInput)
	}

	err := collection.UpdateAs(r.store, CollectionName, func(items []Client) ([]Client, error) {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			var last int64
			for _, s := range items[i].Services {
				last = max(last, s.ID)
			}
			service.ID = r.nextID(last)
			items[i].Services = append(items[i].Services, service)
			return items, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrClientNotFound, id)
	})
	if err != nil {
		return Service{}, err
	}

	logrus.WithFields(logrus.Fields{
		"client_id":  id,
		"service_id": service.ID,
	}).Info("Service added to client")
	return service, nil
}

// nextID returns the current time in milliseconds, bumped past last so ids
// created within the same millisecond stay unique.
func (r *Repository) nextID(last int64) int64 {
	return max(r.now().UnixMilli(), last+1)
}
