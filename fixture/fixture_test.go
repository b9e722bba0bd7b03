package fixture_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubjs.dev/hub/fixture"
	"hubjs.dev/hub/store"
)

func TestFixture_CreateAssignsServerID(t *testing.T) {
	ds := fixture.New()
	s := store.NewStore(ds)
	rec := s.CreateRecord("widget", store.DataHash{"name": "temp"})

	result := s.CommitRecords(context.Background())
	require.Len(t, result.Succeeded, 1)
	assert.Equal(t, store.READYCLEAN, s.ReadStatus(rec.StoreKey()))
	assert.Equal(t, 1, ds.Count("widget"))
}

func TestFixture_UpdateOverwritesStoredHash(t *testing.T) {
	ds := fixture.New()
	s := store.NewStore(ds)
	sk := s.StoreKeyFor("widget", "w1")
	s.WriteDataHash(sk, store.DataHash{"id": "w1", "name": "orig"}, store.READYCLEAN)

	s.WriteDataHash(sk, store.DataHash{"id": "w1", "name": "changed"}, store.READYDIRTY)
	s.CommitRecords(context.Background())

	got, ok := ds.Get("widget", "w1")
	require.True(t, ok)
	assert.Equal(t, "changed", got["name"])
}

func TestFixture_DestroyRemovesRecord(t *testing.T) {
	ds := fixture.New()
	s := store.NewStore(ds)
	sk := s.StoreKeyFor("widget", "w1")
	s.WriteDataHash(sk, store.DataHash{"id": "w1", "name": "orig"}, store.READYDIRTY)
	s.CommitRecords(context.Background())
	require.Equal(t, 1, ds.Count("widget"))

	rec := s.Find("widget", "w1")
	s.DestroyRecord(rec)
	s.CommitRecords(context.Background())

	assert.Equal(t, 0, ds.Count("widget"))
}
