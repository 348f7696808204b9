package pebble

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/homestore/pkg/db"
	"github.com/eigerco/homestore/pkg/db/dbtest"
)

func newStore(t *testing.T) db.KVStore {
	store, err := Open(t.TempDir(), db.Options{})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestKVStore(t *testing.T) {
	dbtest.Run(t, newStore)
}

func TestReopenKeepsCommittedEntries(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(dir, db.Options{})
	require.NoError(t, err)
	require.NoError(t, store.Put("persist", []byte("me")))
	require.NoError(t, store.Put("gone", []byte("soon")))
	_, err = store.Delete("gone")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = Open(dir, db.Options{})
	require.NoError(t, err)
	defer store.Close() //nolint:errcheck

	got, err := store.Get("persist")
	require.NoError(t, err)
	assert.Equal(t, []byte("me"), got)

	keys, err := store.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"persist"}, keys)
}

func TestOpenFailures(t *testing.T) {
	t.Run("path_is_a_file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "not-a-dir")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

		_, err := Open(file, db.Options{})
		assert.ErrorIs(t, err, db.ErrEngineOpen)
	})

	t.Run("invalid_bucket", func(t *testing.T) {
		_, err := Open(t.TempDir(), db.Options{Bucket: "bad\x00name"})
		assert.ErrorIs(t, err, db.ErrEngineOpen)
		assert.ErrorIs(t, err, ErrInvalidBucket)
	})
}

func TestSizeCeiling(t *testing.T) {
	t.Run("store_already_full", func(t *testing.T) {
		store, err := Open(t.TempDir(), db.Options{MaxSize: 1})
		require.NoError(t, err)
		defer store.Close() //nolint:errcheck

		err = store.Put("k", []byte("v"))
		assert.ErrorIs(t, err, db.ErrEngineWrite)
		assert.ErrorIs(t, err, db.ErrFull)

		_, err = store.Get("k")
		assert.ErrorIs(t, err, db.ErrNotFound)
	})

	t.Run("value_larger_than_headroom", func(t *testing.T) {
		store, err := Open(t.TempDir(), db.Options{MaxSize: 16 << 20})
		require.NoError(t, err)
		defer store.Close() //nolint:errcheck

		require.NoError(t, store.Put("small", []byte("fits")))

		err = store.Put("huge", bytes.Repeat([]byte{1}, 32<<20))
		assert.ErrorIs(t, err, db.ErrEngineWrite)
		assert.ErrorIs(t, err, db.ErrFull)

		_, err = store.Get("huge")
		assert.ErrorIs(t, err, db.ErrNotFound)
	})
}

func TestBucketsAreIsolated(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(dir, db.Options{Bucket: "blobs"})
	require.NoError(t, err)
	require.NoError(t, store.Put("k", []byte("v")))
	require.NoError(t, store.Close())

	other, err := Open(dir, db.Options{})
	require.NoError(t, err)
	defer other.Close() //nolint:errcheck

	keys, err := other.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys, "marker and foreign bucket keys must not leak into the listing")
}
