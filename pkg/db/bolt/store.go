// Package bolt implements db.KVStore on top of a bbolt environment.
//
// The environment lives in a single file inside the configured directory.
// Entries are kept in one named bucket which acts as the sub-database.
// bbolt allows one read-write transaction at a time and any number of
// read-only transactions, each reading a consistent snapshot.
package bolt

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
	"unicode/utf8"

	bolt "go.etcd.io/bbolt"

	"github.com/eigerco/homestore/pkg/db"
)

// FileName is the environment file created inside the store directory.
const FileName = "data.mdb"

// lockTimeout bounds how long Open waits for the file lock held by another
// process before giving up.
const lockTimeout = time.Second

type KVStore struct {
	env     *bolt.DB
	bucket  []byte
	maxSize int64
	closed  atomic.Bool
}

var _ db.KVStore = (*KVStore)(nil)

// Open opens or initializes an environment in dir, creating the directory
// when it does not exist, and makes sure the sub-database bucket exists.
func Open(dir string, opts db.Options) (*KVStore, error) {
	opts = opts.WithDefaults()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, db.OpenError("create storage directory", err)
	}

	env, err := bolt.Open(filepath.Join(dir, FileName), 0o600, &bolt.Options{
		Timeout: lockTimeout,
	})
	if err != nil {
		return nil, db.OpenError("open environment", err)
	}

	tx, err := env.Begin(true)
	if err != nil {
		_ = env.Close()
		return nil, db.OpenError("begin write transaction", err)
	}
	if _, err := tx.CreateBucketIfNotExists([]byte(opts.Bucket)); err != nil {
		_ = tx.Rollback()
		_ = env.Close()
		return nil, db.OpenError("create database", err)
	}
	if err := tx.Commit(); err != nil {
		_ = env.Close()
		return nil, db.OpenError("commit database creation", err)
	}

	return &KVStore{env: env, bucket: []byte(opts.Bucket), maxSize: opts.MaxSize}, nil
}

func (s *KVStore) Put(key string, value []byte) error {
	if key == "" {
		return db.ErrEmptyKey
	}
	if s.closed.Load() {
		return db.WriteError("begin write transaction", db.ErrClosed)
	}

	tx, err := s.env.Begin(true)
	if err != nil {
		return db.WriteError("begin write transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	b, err := s.dataBucket(tx)
	if err != nil {
		return db.WriteError("open database", err)
	}
	// Pages are only allocated at commit, so the check counts the entry
	// about to be written on top of the current high-water mark.
	if size := tx.Size() + int64(len(key)+len(value)); size > s.maxSize {
		return db.WriteError(fmt.Sprintf("store key %q", key), fmt.Errorf("%w: %d of %d bytes", db.ErrFull, size, s.maxSize))
	}
	if err := b.Put([]byte(key), value); err != nil {
		return db.WriteError(fmt.Sprintf("store key %q", key), err)
	}
	if err := tx.Commit(); err != nil {
		return db.WriteError("commit transaction", err)
	}
	return nil
}

func (s *KVStore) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, db.ErrEmptyKey
	}
	if s.closed.Load() {
		return nil, db.ReadError("begin read transaction", db.ErrClosed)
	}

	tx, err := s.env.Begin(false)
	if err != nil {
		return nil, db.ReadError("begin read transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck // read-only

	b, err := s.dataBucket(tx)
	if err != nil {
		return nil, db.ReadError("open database", err)
	}

	k, v := b.Cursor().Seek([]byte(key))
	if !bytes.Equal(k, []byte(key)) {
		return nil, db.ErrNotFound
	}

	// v is only valid for the life of the transaction
	result := make([]byte, len(v))
	copy(result, v)
	return result, nil
}

func (s *KVStore) Delete(key string) (bool, error) {
	if key == "" {
		return false, db.ErrEmptyKey
	}
	if s.closed.Load() {
		return false, db.WriteError("begin write transaction", db.ErrClosed)
	}

	tx, err := s.env.Begin(true)
	if err != nil {
		return false, db.WriteError("begin write transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	b, err := s.dataBucket(tx)
	if err != nil {
		return false, db.WriteError("open database", err)
	}

	k, _ := b.Cursor().Seek([]byte(key))
	if !bytes.Equal(k, []byte(key)) {
		return false, nil
	}
	if err := b.Delete([]byte(key)); err != nil {
		return false, db.WriteError(fmt.Sprintf("delete key %q", key), err)
	}
	if err := tx.Commit(); err != nil {
		return false, db.WriteError("commit transaction", err)
	}
	return true, nil
}

func (s *KVStore) Keys() ([]string, error) {
	if s.closed.Load() {
		return nil, db.ReadError("begin read transaction", db.ErrClosed)
	}

	tx, err := s.env.Begin(false)
	if err != nil {
		return nil, db.ReadError("begin read transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck // read-only

	b, err := s.dataBucket(tx)
	if err != nil {
		return nil, db.ReadError("create iterator", err)
	}

	keys := []string{}
	c := b.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		if !utf8.Valid(k) {
			return nil, db.ReadError("read item from iterator", fmt.Errorf("key %x is not valid UTF-8", k))
		}
		keys = append(keys, string(k))
	}
	return keys, nil
}

// Close releases the environment. Closing twice is a no-op.
func (s *KVStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.env.Close()
}

// Path returns the environment file path.
func (s *KVStore) Path() string {
	return s.env.Path()
}

func (s *KVStore) dataBucket(tx *bolt.Tx) (*bolt.Bucket, error) {
	b := tx.Bucket(s.bucket)
	if b == nil {
		return nil, errors.New("database " + string(s.bucket) + " does not exist")
	}
	return b, nil
}
