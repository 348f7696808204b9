// Package dbtest holds the behavioral tests every db.KVStore backend must pass.
package dbtest

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/homestore/pkg/db"
)

// Opener returns a fresh, empty store. Cleanup is registered on t.
type Opener func(t *testing.T) db.KVStore

// Run executes the shared contract tests against stores produced by open.
func Run(t *testing.T, open Opener) {
	tests := []struct {
		name string
		fn   func(t *testing.T, store db.KVStore)
	}{
		{name: "round_trip", fn: testRoundTrip},
		{name: "overwrite", fn: testOverwrite},
		{name: "empty_value", fn: testEmptyValue},
		{name: "get_missing", fn: testGetMissing},
		{name: "delete", fn: testDelete},
		{name: "empty_key", fn: testEmptyKey},
		{name: "keys_empty_store", fn: testKeysEmpty},
		{name: "keys_ordering", fn: testKeysOrdering},
		{name: "keys_completeness", fn: testKeysCompleteness},
		{name: "concurrent_puts", fn: testConcurrentPuts},
		{name: "concurrent_mixed", fn: testConcurrentMixed},
		{name: "store_closure", fn: testStoreClosure},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, open(t))
		})
	}
}

func testRoundTrip(t *testing.T, store db.KVStore) {
	values := map[string][]byte{
		"foo":            []byte("bar"),
		"binary":         {0x00, 0xff, 0x10, 0x00},
		"with/slashes":   []byte("nested-looking key"),
		"unicode-κλειδί": []byte("value"),
	}

	for k, v := range values {
		require.NoError(t, store.Put(k, v))
	}
	for k, v := range values {
		got, err := store.Get(k)
		require.NoError(t, err)
		assert.Equal(t, v, got, "key %s", k)
	}
}

func testOverwrite(t *testing.T, store db.KVStore) {
	require.NoError(t, store.Put("k", []byte("a much longer first value")))
	require.NoError(t, store.Put("k", []byte("v2")))

	got, err := store.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	keys, err := store.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, keys)
}

func testEmptyValue(t *testing.T, store db.KVStore) {
	require.NoError(t, store.Put("empty", []byte{}))

	got, err := store.Get("empty")
	require.NoError(t, err)
	assert.Empty(t, got)

	deleted, err := store.Delete("empty")
	require.NoError(t, err)
	assert.True(t, deleted)
}

func testGetMissing(t *testing.T, store db.KVStore) {
	_, err := store.Get("missing")
	assert.ErrorIs(t, err, db.ErrNotFound)
	assert.NotErrorIs(t, err, db.ErrEngineRead)
}

func testDelete(t *testing.T, store db.KVStore) {
	deleted, err := store.Delete("absent")
	require.NoError(t, err)
	assert.False(t, deleted)

	require.NoError(t, store.Put("present", []byte("value")))

	deleted, err = store.Delete("present")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = store.Get("present")
	assert.ErrorIs(t, err, db.ErrNotFound)

	deleted, err = store.Delete("present")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func testEmptyKey(t *testing.T, store db.KVStore) {
	assert.ErrorIs(t, store.Put("", []byte("v")), db.ErrEmptyKey)

	_, err := store.Get("")
	assert.ErrorIs(t, err, db.ErrEmptyKey)

	_, err = store.Delete("")
	assert.ErrorIs(t, err, db.ErrEmptyKey)
}

func testKeysEmpty(t *testing.T, store db.KVStore) {
	keys, err := store.Keys()
	require.NoError(t, err)
	assert.NotNil(t, keys)
	assert.Empty(t, keys)
}

func testKeysOrdering(t *testing.T, store db.KVStore) {
	for _, k := range []string{"b", "a", "c", "aa", "B", "a0"} {
		require.NoError(t, store.Put(k, []byte(k)))
	}

	keys, err := store.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "a", "a0", "aa", "b", "c"}, keys)
}

func testKeysCompleteness(t *testing.T, store db.KVStore) {
	live := make(map[string]bool)
	for i := 0; i < 50; i++ {
		k := fmt.Sprintf("key-%03d", i)
		require.NoError(t, store.Put(k, []byte{byte(i)}))
		live[k] = true
	}
	for i := 0; i < 50; i += 3 {
		k := fmt.Sprintf("key-%03d", i)
		_, err := store.Delete(k)
		require.NoError(t, err)
		delete(live, k)
	}
	// re-put a few deleted keys
	for i := 0; i < 10; i += 3 {
		k := fmt.Sprintf("key-%03d", i)
		require.NoError(t, store.Put(k, []byte("again")))
		live[k] = true
	}

	expected := make([]string, 0, len(live))
	for k := range live {
		expected = append(expected, k)
	}
	sort.Strings(expected)

	keys, err := store.Keys()
	require.NoError(t, err)
	assert.Equal(t, expected, keys)
}

func testConcurrentPuts(t *testing.T, store db.KVStore) {
	valueA := bytes.Repeat([]byte("A"), 4096)
	valueB := bytes.Repeat([]byte("B"), 8192)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v := valueA
			if i%2 == 1 {
				v = valueB
			}
			assert.NoError(t, store.Put("contended", v))
		}(i)
	}
	wg.Wait()

	got, err := store.Get("contended")
	require.NoError(t, err)
	assert.True(t, bytes.Equal(got, valueA) || bytes.Equal(got, valueB), "value must be exactly one of the written values")
}

func testConcurrentMixed(t *testing.T, store db.KVStore) {
	const workers = 8
	const perWorker = 20

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				k := fmt.Sprintf("w%d-%02d", w, i)
				assert.NoError(t, store.Put(k, []byte(k)))
				if i%2 == 0 {
					deleted, err := store.Delete(k)
					assert.NoError(t, err)
					assert.True(t, deleted)
				}
				_, err := store.Keys()
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	keys, err := store.Keys()
	require.NoError(t, err)
	assert.Len(t, keys, workers*perWorker/2)
	for _, k := range keys {
		v, err := store.Get(k)
		require.NoError(t, err)
		assert.Equal(t, k, string(v))
	}
}

func testStoreClosure(t *testing.T, store db.KVStore) {
	require.NoError(t, store.Put("key", []byte("value")))
	require.NoError(t, store.Close())

	_, err := store.Get("key")
	assert.ErrorIs(t, err, db.ErrClosed)
	assert.ErrorIs(t, err, db.ErrEngineRead)

	err = store.Put("key", []byte("value"))
	assert.ErrorIs(t, err, db.ErrClosed)
	assert.ErrorIs(t, err, db.ErrEngineWrite)

	_, err = store.Delete("key")
	assert.ErrorIs(t, err, db.ErrEngineWrite)

	_, err = store.Keys()
	assert.ErrorIs(t, err, db.ErrEngineRead)

	// Double close should not error
	assert.NoError(t, store.Close())
}
