// Package pebble implements db.KVStore on top of a Pebble LSM environment.
//
// Pebble has a single flat keyspace, so the sub-database is a key prefix:
// every entry is stored under "<bucket>\x00<key>" and a marker key records
// that the sub-database was created. Each write is one synced batch.
// Pebble offers no read-modify-write transaction, so writes are serialized
// by the store itself.
package pebble

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/cockroachdb/pebble"
	"github.com/rs/zerolog"

	"github.com/eigerco/homestore/pkg/db"
	"github.com/eigerco/homestore/pkg/log"
)

const (
	cacheSize    = 64 * 1024 * 1024 // 64MB
	memTableSize = 32 * 1024 * 1024 // 32MB
)

type KVStore struct {
	db      *pebble.DB
	prefix  []byte
	upper   []byte
	maxSize uint64

	// mu guards closed; Close takes it exclusively so no operation runs on a
	// closed engine.
	mu     sync.RWMutex
	closed bool

	// writeMu serializes writers so Delete can observe and remove a key in
	// one step.
	writeMu sync.Mutex
}

var _ db.KVStore = (*KVStore)(nil)

// Open opens or initializes an environment in dir and makes sure the
// sub-database marker exists.
func Open(dir string, opts db.Options) (*KVStore, error) {
	opts = opts.WithDefaults()
	if strings.ContainsRune(opts.Bucket, 0) {
		return nil, db.OpenError("create database", ErrInvalidBucket)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, db.OpenError("create storage directory", err)
	}

	cache := pebble.NewCache(cacheSize)
	defer cache.Unref()

	pdb, err := pebble.Open(dir, &pebble.Options{
		Cache:        cache,
		MemTableSize: memTableSize,
		Logger:       engineLogger{log.Storage.With().Str("engine", "pebble").Logger()},
	})
	if err != nil {
		return nil, db.OpenError("open environment", err)
	}

	s := &KVStore{
		db:      pdb,
		prefix:  []byte(opts.Bucket + "\x00"),
		upper:   []byte(opts.Bucket + "\x01"),
		maxSize: uint64(opts.MaxSize),
	}
	if err := s.ensureBucket(opts.Bucket); err != nil {
		_ = pdb.Close()
		return nil, db.OpenError("create database", err)
	}
	return s, nil
}

func (s *KVStore) ensureBucket(name string) error {
	marker := []byte("\x00db\x00" + name)
	_, closer, err := s.db.Get(marker)
	if err == nil {
		return closer.Close()
	}
	if !errors.Is(err, pebble.ErrNotFound) {
		return err
	}

	b := s.newBatch()
	defer b.Close() //nolint:errcheck // no-op after commit
	if err := b.Put(marker, nil); err != nil {
		return err
	}
	return b.Commit()
}

func (s *KVStore) Put(key string, value []byte) error {
	if key == "" {
		return db.ErrEmptyKey
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return db.WriteError("begin write transaction", db.ErrClosed)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if usage := s.db.Metrics().DiskSpaceUsage() + uint64(len(key)+len(value)); usage > s.maxSize {
		return db.WriteError(fmt.Sprintf("store key %q", key), fmt.Errorf("%w: %d of %d bytes", db.ErrFull, usage, s.maxSize))
	}

	b := s.newBatch()
	defer b.Close() //nolint:errcheck // no-op after commit

	if err := b.Put(s.dataKey(key), value); err != nil {
		return db.WriteError(fmt.Sprintf("store key %q", key), err)
	}
	if err := b.Commit(); err != nil {
		return db.WriteError("commit transaction", err)
	}
	return nil
}

func (s *KVStore) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, db.ErrEmptyKey
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, db.ReadError("begin read transaction", db.ErrClosed)
	}

	value, closer, err := s.db.Get(s.dataKey(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, db.ReadError(fmt.Sprintf("read key %q", key), err)
	}
	defer closer.Close() //nolint:errcheck

	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

func (s *KVStore) Delete(key string) (bool, error) {
	if key == "" {
		return false, db.ErrEmptyKey
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, db.WriteError("begin write transaction", db.ErrClosed)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	dk := s.dataKey(key)
	_, closer, err := s.db.Get(dk)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, db.WriteError(fmt.Sprintf("delete key %q", key), err)
	}
	_ = closer.Close()

	b := s.newBatch()
	defer b.Close() //nolint:errcheck // no-op after commit

	if err := b.Delete(dk); err != nil {
		return false, db.WriteError(fmt.Sprintf("delete key %q", key), err)
	}
	if err := b.Commit(); err != nil {
		return false, db.WriteError("commit transaction", err)
	}
	return true, nil
}

func (s *KVStore) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, db.ReadError("begin read transaction", db.ErrClosed)
	}

	iter, err := s.newIterator(s.prefix, s.upper)
	if err != nil {
		return nil, db.ReadError("create iterator", err)
	}
	defer iter.Close() //nolint:errcheck

	keys := []string{}
	for iter.Next() {
		k := iter.Key()[len(s.prefix):]
		if !utf8.Valid(k) {
			return nil, db.ReadError("read item from iterator", fmt.Errorf("key %x is not valid UTF-8", k))
		}
		keys = append(keys, string(k))
	}
	if err := iter.Error(); err != nil {
		return nil, db.ReadError("read item from iterator", err)
	}
	return keys, nil
}

// Close flushes and releases the environment. Closing twice is a no-op.
func (s *KVStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *KVStore) dataKey(key string) []byte {
	k := make([]byte, len(s.prefix)+len(key))
	copy(k, s.prefix)
	copy(k[len(s.prefix):], key)
	return k
}

// engineLogger routes pebble's internal messages into the storage logger.
type engineLogger struct {
	zerolog.Logger
}

func (l engineLogger) Infof(format string, args ...interface{}) {
	l.Logger.Debug().Msgf(format, args...)
}

func (l engineLogger) Errorf(format string, args ...interface{}) {
	l.Logger.Error().Msgf(format, args...)
}

func (l engineLogger) Fatalf(format string, args ...interface{}) {
	l.Logger.Fatal().Msgf(format, args...)
}
