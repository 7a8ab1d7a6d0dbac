package sync

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pb "go.etcd.io/etcd/api/v3/etcdserverpb"
	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/cybertec-postgresql/ledgerlink/internal/clients"
)

// memoryKV is a minimal in-memory clientv3.KV. Range reads are always sorted
// by mod revision, which is the only ordering the store asks for.
type memoryKV struct {
	clientv3.KV

	mu       gosync.Mutex
	revision int64
	kvs      map[string]*mvccpb.KeyValue
	failPut  error
}

func newMemoryKV() *memoryKV {
	return &memoryKV{kvs: map[string]*mvccpb.KeyValue{}}
}

func (m *memoryKV) header() *pb.ResponseHeader {
	return &pb.ResponseHeader{Revision: m.revision}
}

func (m *memoryKV) Put(_ context.Context, key, val string, _ ...clientv3.OpOption) (*clientv3.PutResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut != nil {
		return nil, m.failPut
	}
	m.revision++
	kv, ok := m.kvs[key]
	if !ok {
		kv = &mvccpb.KeyValue{Key: []byte(key), CreateRevision: m.revision}
		m.kvs[key] = kv
	}
	kv.Value = []byte(val)
	kv.ModRevision = m.revision
	kv.Version++
	return &clientv3.PutResponse{Header: m.header()}, nil
}

func (m *memoryKV) Get(_ context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	op := clientv3.OpGet(key, opts...)
	prefixed := len(op.RangeBytes()) > 0

	var kvs []*mvccpb.KeyValue
	for k, kv := range m.kvs {
		if k == key || (prefixed && strings.HasPrefix(k, key)) {
			kvs = append(kvs, kv)
		}
	}
	sort.Slice(kvs, func(i, j int) bool { return kvs[i].ModRevision < kvs[j].ModRevision })
	return &clientv3.GetResponse{Header: m.header(), Kvs: kvs, Count: int64(len(kvs))}, nil
}

func TestEtcdStoreContract(t *testing.T) {
	storeContract(t, NewEtcdStore(newMemoryKV(), "/ledger"))
}

func TestEtcdStoreKeys(t *testing.T) {
	kv := newMemoryKV()
	store := NewEtcdStore(kv, "/ledger/")

	require.NoError(t, store.Upsert(context.Background(), Record{ClientID: 9, CompanyName: "Acme", UpdatedAt: time.Now()}))

	require.Contains(t, kv.kvs, "/ledger/sync/9")
	var stored Record
	require.NoError(t, json.Unmarshal(kv.kvs["/ledger/sync/9"].Value, &stored))
	assert.Equal(t, clients.ClientID(9), stored.ClientID)
	assert.Equal(t, "Acme", stored.CompanyName)
}

func TestEtcdStoreSkipsUnreadableValues(t *testing.T) {
	kv := newMemoryKV()
	store := NewEtcdStore(kv, "/")
	_, err := kv.Put(context.Background(), "/sync/1", "not json")
	require.NoError(t, err)
	require.NoError(t, store.Upsert(context.Background(), Record{ClientID: 2, CompanyName: "Acme", UpdatedAt: time.Now()}))

	records, err := store.All(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Acme", records[0].CompanyName)
}

func TestEtcdStorePutFailure(t *testing.T) {
	kv := newMemoryKV()
	ctx := context.Background()
	store := NewEtcdStore(kv, "/")
	require.NoError(t, store.Upsert(ctx, Record{ClientID: 1, CompanyName: "Acme", UpdatedAt: time.Now()}))

	kv.failPut = errors.New("etcdserver: request timed out")
	err := store.Upsert(ctx, Record{ClientID: 1, CompanyName: "Beta", UpdatedAt: time.Now()})
	assert.ErrorIs(t, err, kv.failPut)

	kv.failPut = nil
	records, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1, "a failed put must keep the previous link")
	assert.Equal(t, "Acme", records[0].CompanyName)
}
