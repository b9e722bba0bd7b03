package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *Store {
	return NewStore(nil)
}

func TestS4_NestedContextWritePropagation(t *testing.T) {
	root := newTestStore()
	sk := root.StoreKeyFor("widget", "w1")
	root.WriteDataHash(sk, DataHash{"name": "H1"}, READYCLEAN)

	child := root.CreateEditingContext()
	assert.Equal(t, Inherited, child.StoreKeyEditState(sk))

	h := child.ReadDataHash(sk)
	require.Equal(t, "H1", h["name"])
	assert.Equal(t, Locked, child.StoreKeyEditState(sk))

	root.WriteDataHash(sk, DataHash{"name": "H2"}, READYCLEAN)
	h = child.ReadDataHash(sk)
	assert.Equal(t, "H2", h["name"], "LOCKED child has no private copy, sees parent's current hash")

	editable := child.ReadEditableDataHash(sk)
	editable["name"] = "child-owns-this"
	child.WriteDataHash(sk, editable, READYDIRTY)
	assert.Equal(t, Editable, child.StoreKeyEditState(sk))

	root.WriteDataHash(sk, DataHash{"name": "H3"}, READYCLEAN)
	assert.Equal(t, "child-owns-this", child.ReadDataHash(sk)["name"], "EDITABLE child no longer tracks parent writes")
	assert.Equal(t, "H3", root.ReadDataHash(sk)["name"])
}

func TestUniversalProperty5_CommitChangesPropagatesToParent(t *testing.T) {
	root := newTestStore()
	sk := root.StoreKeyFor("widget", "w1")
	root.WriteDataHash(sk, DataHash{"name": "H1"}, READYCLEAN)

	child := root.CreateEditingContext()
	editable := child.ReadEditableDataHash(sk)
	editable["name"] = "edited-in-child"
	child.WriteDataHash(sk, editable, READYDIRTY)

	require.NoError(t, child.CommitChanges())

	assert.Equal(t, "edited-in-child", root.ReadDataHash(sk)["name"])
	assert.Equal(t, READYDIRTY, root.ReadStatus(sk))
	assert.Equal(t, Inherited, child.StoreKeyEditState(sk))
}

func TestCommitChanges_OnRootReturnsError(t *testing.T) {
	root := newTestStore()
	assert.Error(t, root.CommitChanges())
}

type fakeDataSource struct {
	created, updated, destroyed int
	failCreate                  bool
}

func (f *fakeDataSource) CreateRecord(ctx context.Context, key StoreKey, recordType string, hash DataHash) error {
	if f.failCreate {
		return assert.AnError
	}
	f.created++
	return nil
}

func (f *fakeDataSource) UpdateRecord(ctx context.Context, key StoreKey, recordType string, hash DataHash) error {
	f.updated++
	return nil
}

func (f *fakeDataSource) DestroyRecord(ctx context.Context, key StoreKey, recordType string, hash DataHash) error {
	f.destroyed++
	return nil
}

func TestCommitRecords_DispatchesByStatus(t *testing.T) {
	ds := &fakeDataSource{}
	s := NewStore(ds)

	newSK := s.StoreKeyFor("widget", "new-1")
	s.WriteDataHash(newSK, DataHash{"name": "new"}, READYNEW)

	dirtySK := s.StoreKeyFor("widget", "dirty-1")
	s.WriteDataHash(dirtySK, DataHash{"name": "dirty"}, READYDIRTY)

	destroySK := s.StoreKeyFor("widget", "destroy-1")
	s.WriteDataHash(destroySK, DataHash{"name": "gone"}, DESTROYEDDIRTY)

	result := s.CommitRecords(context.Background())

	assert.Equal(t, 1, ds.created)
	assert.Equal(t, 1, ds.updated)
	assert.Equal(t, 1, ds.destroyed)
	assert.ElementsMatch(t, []StoreKey{newSK, dirtySK, destroySK}, result.Succeeded)
	assert.Empty(t, result.Failed)

	assert.Equal(t, READYCLEAN, s.ReadStatus(newSK))
	assert.Equal(t, READYCLEAN, s.ReadStatus(dirtySK))
	assert.Equal(t, DESTROYEDCLEAN, s.ReadStatus(destroySK))
}

func TestCommitRecords_MarksFailuresWithError(t *testing.T) {
	ds := &fakeDataSource{failCreate: true}
	s := NewStore(ds)

	sk := s.StoreKeyFor("widget", "w1")
	s.WriteDataHash(sk, DataHash{"name": "x"}, READYNEW)

	result := s.CommitRecords(context.Background())
	assert.Empty(t, result.Succeeded)
	assert.Equal(t, []StoreKey{sk}, result.Failed)
	assert.Equal(t, ERROR, s.ReadStatus(sk))
}

type panickingDataSource struct{}

func (panickingDataSource) CreateRecord(ctx context.Context, key StoreKey, recordType string, hash DataHash) error {
	panic("boom")
}

func (panickingDataSource) UpdateRecord(ctx context.Context, key StoreKey, recordType string, hash DataHash) error {
	return nil
}

func (panickingDataSource) DestroyRecord(ctx context.Context, key StoreKey, recordType string, hash DataHash) error {
	return nil
}

func TestCommitRecords_DataSourcePanicIsLoggedAndRepropagated(t *testing.T) {
	s := NewStore(panickingDataSource{})
	sk := s.StoreKeyFor("widget", "w1")
	s.WriteDataHash(sk, DataHash{"name": "x"}, READYNEW)

	assert.PanicsWithValue(t, "boom", func() {
		s.CommitRecords(context.Background())
	})
}

func TestDestroyRecord_NewRecordIsDroppedClean(t *testing.T) {
	s := newTestStore()
	rec := s.CreateRecord("widget", DataHash{"name": "temp"})
	s.DestroyRecord(rec)
	assert.Equal(t, DESTROYEDCLEAN, s.ReadStatus(rec.StoreKey()))
}

func TestDestroyRecord_ExistingRecordIsDirty(t *testing.T) {
	s := newTestStore()
	sk := s.StoreKeyFor("widget", "w1")
	s.WriteDataHash(sk, DataHash{"name": "x"}, READYCLEAN)
	rec := s.Find("widget", "w1")

	s.DestroyRecord(rec)
	assert.Equal(t, DESTROYEDDIRTY, s.ReadStatus(sk))
}

func TestFind_ReturnsSameRecordInstance(t *testing.T) {
	s := newTestStore()
	a := s.Find("widget", "w1")
	b := s.Find("widget", "w1")
	assert.Same(t, a, b)
}

func TestLoadRecords_InstallsReadyClean(t *testing.T) {
	s := newTestStore()
	keys := s.LoadRecords("widget", []DataHash{
		{"id": "w1", "name": "first"},
		{"id": "w2", "name": "second"},
	})
	require.Len(t, keys, 2)
	for _, sk := range keys {
		assert.Equal(t, READYCLEAN, s.ReadStatus(sk))
	}
}

func TestStoreKeyFor_SharedAcrossHierarchy(t *testing.T) {
	root := newTestStore()
	child := root.CreateEditingContext()

	sk1 := root.StoreKeyFor("widget", "w1")
	sk2 := child.StoreKeyFor("widget", "w1")
	assert.Equal(t, sk1, sk2)
}
