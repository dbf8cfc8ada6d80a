package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborml/harbor/internal/infrastructure/logging"
	"github.com/harborml/harbor/internal/shared/errors"
	"github.com/harborml/harbor/internal/shared/id"
)

func newTestStore(t *testing.T) (*Store, id.NamespaceID, id.DatasetID) {
	t.Helper()

	store, err := NewStore(t.TempDir(), logging.NewNop())
	require.NoError(t, err)

	nsID := id.NewNamespaceID()
	dsID := id.NewDatasetID()
	require.NoError(t, store.CreateDirectory(nsID, dsID))
	return store, nsID, dsID
}

func TestStoreWriteThenRead(t *testing.T) {
	store, nsID, dsID := newTestStore(t)
	ctx := context.Background()

	first := []Record{
		{ID: "a", Text: "one"},
		{ID: "b", Text: "two", Embedding: []float32{1, 2}},
	}
	second := []Record{
		{ID: "c", Text: "three", Tags: map[string]string{"k": "v"}},
	}

	require.NoError(t, store.Write(ctx, nsID, dsID, first))
	require.NoError(t, store.Write(ctx, nsID, dsID, second))

	got, err := store.Read(ctx, nsID, dsID)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Segments concatenate in creation order.
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, "c", got[2].ID)
	assert.Equal(t, []float32{1, 2}, got[1].Embedding)
	assert.Equal(t, map[string]string{"k": "v"}, got[2].Tags)
}

func TestStoreEachWriteCreatesOneSegment(t *testing.T) {
	store, nsID, dsID := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Write(ctx, nsID, dsID, []Record{{ID: "x"}}))
	}

	paths, err := filepath.Glob(filepath.Join(store.root, nsID.String(), dsID.String(), "*"+segmentSuffix))
	require.NoError(t, err)
	assert.Len(t, paths, 3)
}

func TestStoreAssignsMissingIDs(t *testing.T) {
	store, nsID, dsID := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, nsID, dsID, []Record{
		{Text: "anonymous"},
		{ID: "explicit", Text: "named"},
	}))

	got, err := store.Read(ctx, nsID, dsID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.NotEmpty(t, got[0].ID)
	assert.Equal(t, "explicit", got[1].ID)
}

func TestStoreReadEmptyDataset(t *testing.T) {
	store, nsID, dsID := newTestStore(t)

	got, err := store.Read(context.Background(), nsID, dsID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStoreMissingDirectoryIsStorageError(t *testing.T) {
	store, err := NewStore(t.TempDir(), logging.NewNop())
	require.NoError(t, err)

	nsID := id.NewNamespaceID()
	dsID := id.NewDatasetID()

	err = store.Write(context.Background(), nsID, dsID, []Record{{ID: "a"}})
	assert.ErrorIs(t, err, errors.ErrStorageUnavailable)

	_, err = store.Read(context.Background(), nsID, dsID)
	assert.ErrorIs(t, err, errors.ErrStorageUnavailable)
}

func TestStoreCorruptSegmentFailsWholeRead(t *testing.T) {
	store, nsID, dsID := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, nsID, dsID, []Record{{ID: "good"}}))

	dir := filepath.Join(store.root, nsID.String(), dsID.String())
	bad := filepath.Join(dir, "0000000000000_zzz"+segmentSuffix)
	require.NoError(t, os.WriteFile(bad, []byte("garbage"), 0o644))

	_, err := store.Read(ctx, nsID, dsID)
	assert.ErrorIs(t, err, errors.ErrCorruptSegment)
}

func TestStoreWriteLeavesNoTempFiles(t *testing.T) {
	store, nsID, dsID := newTestStore(t)

	require.NoError(t, store.Write(context.Background(), nsID, dsID, []Record{{ID: "a"}}))

	entries, err := os.ReadDir(filepath.Join(store.root, nsID.String(), dsID.String()))
	require.NoError(t, err)
	for _, e := range entries {
		assert.Equal(t, segmentSuffix, filepath.Ext(e.Name()))
	}
}

func TestStoreRemoveDirectory(t *testing.T) {
	store, nsID, dsID := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, nsID, dsID, []Record{{ID: "a"}}))
	require.NoError(t, store.RemoveDirectory(nsID, dsID))

	_, err := store.Read(ctx, nsID, dsID)
	assert.ErrorIs(t, err, errors.ErrStorageUnavailable)
}

func TestStoreRemoveNamespaceDirectory(t *testing.T) {
	store, nsID, dsID := newTestStore(t)

	require.NoError(t, store.RemoveNamespaceDirectory(nsID))

	_, err := os.Stat(filepath.Join(store.root, nsID.String()))
	assert.True(t, os.IsNotExist(err))
	_ = dsID
}
