package bolt

import (
	"bytes"
	"fmt"
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

func TestOpenCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "env")

	store, err := Open(dir, db.Options{})
	require.NoError(t, err)
	defer store.Close() //nolint:errcheck

	assert.FileExists(t, filepath.Join(dir, FileName))
	assert.Equal(t, filepath.Join(dir, FileName), store.Path())
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

	t.Run("environment_locked", func(t *testing.T) {
		dir := t.TempDir()
		first, err := Open(dir, db.Options{})
		require.NoError(t, err)
		defer first.Close() //nolint:errcheck

		_, err = Open(dir, db.Options{})
		assert.ErrorIs(t, err, db.ErrEngineOpen)
	})

	t.Run("corrupt_environment", func(t *testing.T) {
		dir := t.TempDir()
		garbage := bytes.Repeat([]byte{0xde, 0xad, 0xbe, 0xef}, 4096)
		require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), garbage, 0o600))

		_, err := Open(dir, db.Options{})
		assert.ErrorIs(t, err, db.ErrEngineOpen)
	})
}

func TestSizeCeiling(t *testing.T) {
	t.Run("oversized_value", func(t *testing.T) {
		store, err := Open(t.TempDir(), db.Options{MaxSize: 4 << 20})
		require.NoError(t, err)
		defer store.Close() //nolint:errcheck

		require.NoError(t, store.Put("small", []byte("fits")))

		err = store.Put("huge", bytes.Repeat([]byte{1}, 8<<20))
		assert.ErrorIs(t, err, db.ErrEngineWrite)
		assert.ErrorIs(t, err, db.ErrFull)

		got, err := store.Get("small")
		require.NoError(t, err)
		assert.Equal(t, []byte("fits"), got)

		_, err = store.Get("huge")
		assert.ErrorIs(t, err, db.ErrNotFound)
	})

	t.Run("fills_up", func(t *testing.T) {
		store, err := Open(t.TempDir(), db.Options{MaxSize: 4 << 20})
		require.NoError(t, err)
		defer store.Close() //nolint:errcheck

		value := bytes.Repeat([]byte{2}, 1<<20)
		stored := 0
		for ; stored < 8; stored++ {
			if err = store.Put(fmt.Sprintf("chunk-%d", stored), value); err != nil {
				break
			}
		}
		require.ErrorIs(t, err, db.ErrFull)
		assert.Positive(t, stored)
		assert.Less(t, stored, 4)

		keys, err := store.Keys()
		require.NoError(t, err)
		assert.Len(t, keys, stored)

		// deletes stay possible once the ceiling is reached
		deleted, err := store.Delete("chunk-0")
		require.NoError(t, err)
		assert.True(t, deleted)
	})
}

func TestCustomBucket(t *testing.T) {
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
	assert.Empty(t, keys)
}
