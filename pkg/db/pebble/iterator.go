package pebble

import (
	"fmt"

	"github.com/cockroachdb/pebble"
)

// iterator walks [start, end) over a point-in-time view of the engine.
type iterator struct {
	iter    *pebble.Iterator
	started bool
}

func (s *KVStore) newIterator(start, end []byte) (*iterator, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: start,
		UpperBound: end,
	})
	if err != nil {
		return nil, fmt.Errorf("new iterator: %w", err)
	}
	return &iterator{iter: iter}, nil
}

func (it *iterator) Next() bool {
	// If the iterator is un-positioned, position it at the first key
	if !it.started {
		it.started = true
		return it.iter.First()
	}
	if !it.iter.Valid() {
		return false
	}
	return it.iter.Next()
}

func (it *iterator) Key() []byte {
	key := it.iter.Key()
	result := make([]byte, len(key))
	copy(result, key)
	return result
}

func (it *iterator) Error() error {
	return it.iter.Error()
}

func (it *iterator) Close() error {
	return it.iter.Close()
}
