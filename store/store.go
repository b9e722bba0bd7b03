package store

import (
	"context"
	"sort"

	"hubjs.dev/hub/hublog"
)

// DataSource persists committed records. Implementations talk to whatever
// backend an embedding application chooses; the fixture package provides
// an in-memory one for tests and examples.
type DataSource interface {
	CreateRecord(ctx context.Context, key StoreKey, recordType string, hash DataHash) error
	UpdateRecord(ctx context.Context, key StoreKey, recordType string, hash DataHash) error
	DestroyRecord(ctx context.Context, key StoreKey, recordType string, hash DataHash) error
}

// CommitResult reports the outcome of a CommitRecords call.
type CommitResult struct {
	Succeeded []StoreKey
	Failed    []StoreKey
}

// Store is a copy-on-write data hash table addressed by StoreKey. A root
// Store (Parent() == nil) owns the identity mapping from (recordType, id)
// to StoreKey and the authoritative data; an EditingContext is a Store
// whose parent is non-nil and which only materializes entries it has
// actually touched, deferring everything else to its parent chain.
type Store struct {
	parent *Store

	// Identity mapping and allocation: owned by the root only. Children
	// always delegate StoreKeyFor to s.rootStore().
	nextKey               StoreKey
	recordTypesByKey      map[StoreKey]string
	idsByType             map[string]map[string]StoreKey

	// Per-context, sparse: absent means "defer to parent" (root treats
	// absence as EMPTY/zero-value).
	dataHashes map[StoreKey]DataHash
	statuses   map[StoreKey]Status
	revisions  map[StoreKey]uint64
	editStates map[StoreKey]EditState

	records map[StoreKey]*Record
	schemas map[string]*Schema

	dataSource DataSource
	log        *hublog.Logger
}

// NewStore creates a root store backed by ds. ds may be nil for stores
// that never commit (e.g. throwaway scratch contexts in tests).
func NewStore(ds DataSource) *Store {
	return &Store{
		recordTypesByKey: make(map[StoreKey]string),
		idsByType:        make(map[string]map[string]StoreKey),
		dataHashes:       make(map[StoreKey]DataHash),
		statuses:         make(map[StoreKey]Status),
		revisions:        make(map[StoreKey]uint64),
		editStates:       make(map[StoreKey]EditState),
		records:          make(map[StoreKey]*Record),
		schemas:          make(map[string]*Schema),
		dataSource:       ds,
		log:              hublog.NewLogger(nil).WithField("component", "store"),
	}
}

// WithLogger overrides the logger this store and its children log commit
// failures through.
func (s *Store) WithLogger(log *hublog.Logger) *Store {
	s.log = log
	return s
}

// RegisterSchema associates attribute descriptors with a record type name
// so Find/CreateRecord know which kvo properties to define on new Record
// instances of that type.
func (s *Store) RegisterSchema(recordType string, schema *Schema) {
	s.rootStore().schemas[recordType] = schema
}

func (s *Store) schemaFor(recordType string) *Schema {
	return s.rootStore().schemas[recordType]
}

// CreateEditingContext returns a child Store. Nothing is copied eagerly;
// every StoreKey starts INHERITED and materializes lazily on first read
// or write.
func (s *Store) CreateEditingContext() *Store {
	return &Store{
		parent:     s,
		dataHashes: make(map[StoreKey]DataHash),
		statuses:   make(map[StoreKey]Status),
		revisions:  make(map[StoreKey]uint64),
		editStates: make(map[StoreKey]EditState),
		records:    make(map[StoreKey]*Record),
		log:        s.log,
	}
}

// Parent returns the context's parent store, or nil for a root store.
func (s *Store) Parent() *Store {
	return s.parent
}

func (s *Store) rootStore() *Store {
	if s.parent == nil {
		return s
	}
	return s.parent.rootStore()
}

// StoreKeyFor returns the StoreKey identifying (recordType, id), allocating
// one on first reference. The mapping is shared across an entire store
// hierarchy: every context resolves the same (type, id) pair to the same
// key.
func (s *Store) StoreKeyFor(recordType, id string) StoreKey {
	root := s.rootStore()
	if m, ok := root.idsByType[recordType]; ok {
		if sk, ok := m[id]; ok {
			return sk
		}
	}
	root.nextKey++
	sk := root.nextKey
	if root.idsByType[recordType] == nil {
		root.idsByType[recordType] = make(map[string]StoreKey)
	}
	root.idsByType[recordType][id] = sk
	root.recordTypesByKey[sk] = recordType
	return sk
}

func (s *Store) recordTypeFor(sk StoreKey) string {
	return s.rootStore().recordTypesByKey[sk]
}

// StoreKeyEditState reports sk's edit state in this context.
func (s *Store) StoreKeyEditState(sk StoreKey) EditState {
	if s.parent == nil {
		return Editable
	}
	if st, ok := s.editStates[sk]; ok {
		return st
	}
	return Inherited
}

func (s *Store) setEditState(sk StoreKey, state EditState) {
	if s.parent == nil {
		return
	}
	s.editStates[sk] = state
}

// ReadDataHash returns sk's current data hash as seen from this context.
// Reading an INHERITED key transitions it to LOCKED and snapshots the
// parent's revision, but still defers every subsequent read to the
// parent: LOCKED means "no private copy yet", not "frozen view".
func (s *Store) ReadDataHash(sk StoreKey) DataHash {
	if s.parent == nil {
		return s.dataHashes[sk]
	}
	switch s.StoreKeyEditState(sk) {
	case Editable:
		return s.dataHashes[sk]
	case Locked:
		return s.parent.ReadDataHash(sk)
	default:
		hash := s.parent.ReadDataHash(sk)
		s.setEditState(sk, Locked)
		s.revisions[sk] = s.parent.revisionFor(sk)
		return hash
	}
}

func (s *Store) revisionFor(sk StoreKey) uint64 {
	if rev, ok := s.revisions[sk]; ok {
		return rev
	}
	if s.parent != nil {
		return s.parent.revisionFor(sk)
	}
	return 0
}

// ReadEditableDataHash returns a private, mutable copy of sk's hash,
// shallow-copying from the parent chain and transitioning sk to EDITABLE
// if this context did not already own one.
func (s *Store) ReadEditableDataHash(sk StoreKey) DataHash {
	if s.StoreKeyEditState(sk) == Editable {
		if s.dataHashes[sk] == nil {
			s.dataHashes[sk] = make(DataHash)
		}
		return s.dataHashes[sk]
	}
	copied := s.ReadDataHash(sk).Clone()
	s.dataHashes[sk] = copied
	s.setEditState(sk, Editable)
	return copied
}

// WriteDataHash installs hash as sk's private value in this context,
// transitioning it to EDITABLE, and optionally updates its status. It does
// not advance sk's revision counter; that happens when the record layer
// calls DataHashDidChange.
func (s *Store) WriteDataHash(sk StoreKey, hash DataHash, status ...Status) *Store {
	s.dataHashes[sk] = hash
	s.setEditState(sk, Editable)
	if len(status) > 0 {
		s.setStatus(sk, status[0])
	}
	return s
}

// DataHashDidChange bumps sk's revision counter in this context. Called by
// the record layer once per logical edit, independent of how many
// attributes within the hash actually changed.
func (s *Store) DataHashDidChange(sk StoreKey) uint64 {
	s.revisions[sk]++
	return s.revisions[sk]
}

func (s *Store) setStatus(sk StoreKey, status Status) {
	s.statuses[sk] = status
}

// ReadStatus returns sk's current status, deferring to the parent chain
// when this context has no local entry.
func (s *Store) ReadStatus(sk StoreKey) Status {
	if st, ok := s.statuses[sk]; ok {
		return st
	}
	if s.parent != nil {
		return s.parent.ReadStatus(sk)
	}
	return EMPTY
}

// WriteStatus sets sk's status directly in this context, without touching
// its data hash or edit state.
func (s *Store) WriteStatus(sk StoreKey, status Status) {
	s.setStatus(sk, status)
}

func (s *Store) dirtyStoreKeys() []StoreKey {
	keys := make([]StoreKey, 0, len(s.statuses))
	for sk, st := range s.statuses {
		if st&dirtyMask != 0 {
			keys = append(keys, sk)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// CommitRecords dispatches every dirty StoreKey in this context to the
// DataSource, in ascending StoreKey order (the order records were first
// referenced), updating status on success or failure.
func (s *Store) CommitRecords(ctx context.Context) CommitResult {
	var result CommitResult
	if s.dataSource == nil {
		return result
	}
	for _, sk := range s.dirtyStoreKeys() {
		status := s.ReadStatus(sk)
		recordType := s.recordTypeFor(sk)
		hash := s.ReadDataHash(sk)

		s.setStatus(sk, status|BUSYCOMMITTING)
		err := s.dispatch(ctx, sk, recordType, status, hash)

		if err != nil {
			s.setStatus(sk, ERROR)
			result.Failed = append(result.Failed, sk)
			if s.log != nil {
				s.log.WithError(err).WithField("storeKey", sk).Warn("commit failed")
			}
			continue
		}
		if status&DESTROYEDDIRTY != 0 {
			s.setStatus(sk, DESTROYEDCLEAN)
		} else {
			s.setStatus(sk, READYCLEAN)
		}
		result.Succeeded = append(result.Succeeded, sk)
	}
	return result
}

// dispatch calls the DataSource method matching status. A DataSource is
// caller-supplied code, the same boundary kvo's observer callbacks cross;
// a panic there is logged with a stack trace before it propagates, rather
// than leaving CommitRecords's remaining dirty keys half-processed with no
// trace of why.
func (s *Store) dispatch(ctx context.Context, sk StoreKey, recordType string, status Status, hash DataHash) (err error) {
	defer s.log.RecoverAndLog()
	switch {
	case status&READYNEW != 0:
		err = s.dataSource.CreateRecord(ctx, sk, recordType, hash)
	case status&DESTROYEDDIRTY != 0:
		err = s.dataSource.DestroyRecord(ctx, sk, recordType, hash)
	default:
		err = s.dataSource.UpdateRecord(ctx, sk, recordType, hash)
	}
	return err
}

// CommitChanges merges every EDITABLE entry in this context back into its
// parent, then resets those entries to INHERITED. It is an error to call
// CommitChanges on a root store.
func (s *Store) CommitChanges() error {
	if s.parent == nil {
		return errNotAChildContext
	}
	for sk, state := range s.editStates {
		if state != Editable {
			continue
		}
		if hash, ok := s.dataHashes[sk]; ok {
			s.parent.dataHashes[sk] = hash
		}
		if st, ok := s.statuses[sk]; ok {
			s.parent.setStatus(sk, st)
		}
		delete(s.dataHashes, sk)
		delete(s.statuses, sk)
		delete(s.revisions, sk)
		s.editStates[sk] = Inherited
	}
	return nil
}

// StoreKeys returns every StoreKey ever allocated in this hierarchy.
func (s *Store) StoreKeys() []StoreKey {
	root := s.rootStore()
	keys := make([]StoreKey, 0, len(root.recordTypesByKey))
	for sk := range root.recordTypesByKey {
		keys = append(keys, sk)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

type storeError string

func (e storeError) Error() string { return string(e) }

const errNotAChildContext = storeError("store: CommitChanges called on a root store")
