package store

import (
	"hubjs.dev/hub/idutil"
	"hubjs.dev/hub/kvo"
)

// Record is a store-backed observable object: its attributes are kvo
// computed properties whose Fn reads and writes through the owning
// Store's data hash for its StoreKey, so every Get/Set funnels through
// the ordinary kvo notification machinery.
type Record struct {
	kvo.Observable
	store      *Store
	storeKey   StoreKey
	recordType string
}

// Store returns the context this record was obtained from.
func (r *Record) Store() *Store { return r.store }

// StoreKey returns the record's identity key.
func (r *Record) StoreKey() StoreKey { return r.storeKey }

// RecordType returns the record's type name as registered via
// Store.RegisterSchema.
func (r *Record) RecordType() string { return r.recordType }

// Status returns the record's current status in its owning context.
func (r *Record) Status() Status { return r.store.ReadStatus(r.storeKey) }

// ID returns the record's "id" data hash field, the identifier it is
// indexed under in its Store.
func (r *Record) ID() string {
	id, _ := r.store.ReadDataHash(r.storeKey)["id"].(string)
	return id
}

func (r *Record) dirtyStatus() Status {
	if r.store.ReadStatus(r.storeKey)&READYNEW != 0 {
		return READYNEW
	}
	return READYDIRTY
}

func (s *Store) newRecord(recordType string, sk StoreKey) *Record {
	r := &Record{store: s, storeKey: sk, recordType: recordType}
	r.InitObservable(r)
	if schema := s.schemaFor(recordType); schema != nil {
		for name, prop := range schema.attributes {
			r.DefineProperty(name, prop)
		}
	}
	return r
}

// Find returns the Record for (recordType, id) in this context, allocating
// a StoreKey on first reference. It writes no data hash or status, so a
// key that was never written reads as EMPTY.
func (s *Store) Find(recordType, id string) *Record {
	sk := s.StoreKeyFor(recordType, id)
	return s.findByStoreKey(recordType, sk)
}

func (s *Store) findByStoreKey(recordType string, sk StoreKey) *Record {
	if r, ok := s.records[sk]; ok {
		return r
	}
	r := s.newRecord(recordType, sk)
	s.records[sk] = r
	return r
}

// CreateRecord allocates a new record of recordType with an initial hash,
// assigning it a synthetic id, and marks it READY_NEW. A later commit
// does not change the id the Store holds for the record.
func (s *Store) CreateRecord(recordType string, hash DataHash) *Record {
	id := idutil.NewID()
	sk := s.StoreKeyFor(recordType, id)
	if hash == nil {
		hash = make(DataHash)
	}
	hash["id"] = id
	s.WriteDataHash(sk, hash, READYNEW)
	return s.findByStoreKey(recordType, sk)
}

// LoadRecords bulk-installs hashes (each expected to carry an "id" field)
// as READY_CLEAN, as a DataSource-backed bootstrap or fixture load would.
func (s *Store) LoadRecords(recordType string, hashes []DataHash) []StoreKey {
	keys := make([]StoreKey, 0, len(hashes))
	for _, h := range hashes {
		id, _ := h["id"].(string)
		sk := s.StoreKeyFor(recordType, id)
		s.WriteDataHash(sk, h, READYCLEAN)
		keys = append(keys, sk)
	}
	return keys
}

// DestroyRecord marks rec for deletion. A record that was never
// successfully committed (still READY_NEW) is simply dropped as
// DESTROYED_CLEAN; anything else is marked DESTROYED_DIRTY so
// CommitRecords dispatches a DestroyRecord call.
func (s *Store) DestroyRecord(rec *Record) {
	if s.ReadStatus(rec.storeKey)&READYNEW != 0 {
		s.setStatus(rec.storeKey, DESTROYEDCLEAN)
		return
	}
	s.setStatus(rec.storeKey, DESTROYEDDIRTY)
}
