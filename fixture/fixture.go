// Package fixture provides an in-memory store.DataSource for tests and
// the cmd/hubdemo example, standing in for a real backend.
package fixture

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"hubjs.dev/hub/store"
)

// DataSource is a concurrency-safe, in-memory store.DataSource. Records
// are keyed by type then id; CreateRecord assigns a fresh server id,
// discarding whatever synthetic id the record carried before commit.
type DataSource struct {
	mu   sync.Mutex
	data map[string]map[string]store.DataHash

	// FailOn, if set, makes the next matching commit attempt fail with err,
	// then clears that entry. CreateRecord looks entries up by record type
	// and UpdateRecord by the hash's "id"; DestroyRecord does not consult
	// FailOn. It lets tests exercise CommitRecords' error path.
	FailOn map[string]error
}

// New returns an empty DataSource.
func New() *DataSource {
	return &DataSource{data: make(map[string]map[string]store.DataHash)}
}

func (d *DataSource) bucket(recordType string) map[string]store.DataHash {
	if d.data[recordType] == nil {
		d.data[recordType] = make(map[string]store.DataHash)
	}
	return d.data[recordType]
}

// CreateRecord assigns hash a fresh server id and stores it.
func (d *DataSource) CreateRecord(ctx context.Context, key store.StoreKey, recordType string, hash store.DataHash) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err, ok := d.FailOn[recordType]; ok {
		delete(d.FailOn, recordType)
		return err
	}
	id := uuid.NewString()
	stored := hash.Clone()
	stored["id"] = id
	d.bucket(recordType)[id] = stored
	return nil
}

// UpdateRecord overwrites the stored hash for (recordType, id).
func (d *DataSource) UpdateRecord(ctx context.Context, key store.StoreKey, recordType string, hash store.DataHash) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, _ := hash["id"].(string)
	if err, ok := d.FailOn[id]; ok {
		delete(d.FailOn, id)
		return err
	}
	d.bucket(recordType)[id] = hash.Clone()
	return nil
}

// DestroyRecord removes (recordType, id) from the backing map.
func (d *DataSource) DestroyRecord(ctx context.Context, key store.StoreKey, recordType string, hash store.DataHash) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, _ := hash["id"].(string)
	delete(d.bucket(recordType), id)
	return nil
}

// Get returns the currently stored hash for (recordType, id), for test
// assertions.
func (d *DataSource) Get(recordType, id string) (store.DataHash, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, ok := d.bucket(recordType)[id]
	return h, ok
}

// Count returns how many records of recordType are currently stored.
func (d *DataSource) Count(recordType string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.bucket(recordType))
}
