package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	gosync "sync"

	"github.com/sirupsen/logrus"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdStore keeps one key per client under <prefix>sync/. A record is
// replaced by a single put, so the mod revision of each key gives the order
// in which clients were last linked.
type EtcdStore struct {
	kv     clientv3.KV
	prefix string
	mu     gosync.Mutex
}

// NewEtcdStore creates an etcd-backed sync store below prefix
func NewEtcdStore(kv clientv3.KV, prefix string) *EtcdStore {
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &EtcdStore{kv: kv, prefix: prefix + "sync/"}
}

func (s *EtcdStore) key(record Record) string {
	return s.prefix + record.ClientID.String()
}

// Upsert replaces the record of the client
func (s *EtcdStore) Upsert(ctx context.Context, record Record) error {
	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode sync record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.key(record)
	resp, err := s.kv.Put(ctx, key, string(value))
	if err != nil {
		return fmt.Errorf("failed to put sync record %s: %w", key, err)
	}

	fields := logrus.Fields{
		"client_id": record.ClientID,
		"company":   record.CompanyName,
		"backend":   "etcd",
	}
	if resp != nil && resp.Header != nil {
		fields["revision"] = resp.Header.Revision
	}
	logrus.WithFields(fields).Debug("Sync record stored")
	return nil
}

// All returns every record ordered by mod revision. Values that cannot be
// decoded are skipped.
func (s *EtcdStore) All(ctx context.Context) ([]Record, error) {
	resp, err := s.kv.Get(ctx, s.prefix,
		clientv3.WithPrefix(),
		clientv3.WithSort(clientv3.SortByModRevision, clientv3.SortAscend))
	if err != nil {
		return nil, fmt.Errorf("failed to get sync records: %w", err)
	}

	records := make([]Record, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var record Record
		if err := json.Unmarshal(kv.Value, &record); err != nil {
			logrus.WithError(err).WithField("key", string(kv.Key)).Warn("Skipping unreadable sync record")
			continue
		}
		records = append(records, record)
	}
	return records, nil
}
