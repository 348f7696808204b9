package pebble

import (
	"sync/atomic"

	"github.com/cockroachdb/pebble"
)

// batch is one atomic, synced write. After Commit or Close it rejects
// further use.
type batch struct {
	batch *pebble.Batch
	done  atomic.Bool
}

func (s *KVStore) newBatch() *batch {
	return &batch{
		batch: s.db.NewBatch(),
	}
}

func (b *batch) Put(key, value []byte) error {
	if b.done.Load() {
		return ErrBatchDone
	}
	return b.batch.Set(key, value, nil)
}

func (b *batch) Delete(key []byte) error {
	if b.done.Load() {
		return ErrBatchDone
	}
	return b.batch.Delete(key, nil)
}

func (b *batch) Commit() error {
	if b.done.Load() {
		return ErrBatchDone
	}
	if err := b.batch.Commit(pebble.Sync); err != nil {
		return err
	}
	b.done.Store(true)
	return b.batch.Close()
}

func (b *batch) Close() error {
	if !b.done.CompareAndSwap(false, true) {
		return nil
	}
	return b.batch.Close()
}
