// Package store is the storage engine adapter used by the API. It opens one
// engine environment and exposes put, get, delete and key listing, each
// running exactly one engine transaction.
package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/eigerco/homestore/internal/metrics"
	"github.com/eigerco/homestore/pkg/db"
	"github.com/eigerco/homestore/pkg/db/bolt"
	"github.com/eigerco/homestore/pkg/db/pebble"
	"github.com/eigerco/homestore/pkg/log"
)

const (
	EngineBolt   = "bolt"
	EnginePebble = "pebble"
)

var ErrUnknownEngine = errors.New("unknown storage engine")

// Options select and size the engine.
type Options struct {
	// Engine is EngineBolt (default) or EnginePebble.
	Engine string
	// MaxSize is the environment size ceiling in bytes, zero for the default.
	MaxSize int64
	// Metrics is optional.
	Metrics *metrics.Metrics
}

// Store is safe to share between goroutines. It holds no mutable state of
// its own; the engine serializes conflicting writes.
type Store struct {
	db      db.KVStore
	engine  string
	path    string
	metrics *metrics.Metrics
}

// Open opens the environment at path, creating the directory if needed.
// Any failure is an engine open error and the store must not be used.
func Open(path string, opts Options) (*Store, error) {
	dbOpts := db.Options{MaxSize: opts.MaxSize}

	engine := opts.Engine
	if engine == "" {
		engine = EngineBolt
	}

	var (
		kv  db.KVStore
		err error
	)
	switch engine {
	case EngineBolt:
		kv, err = bolt.Open(path, dbOpts)
	case EnginePebble:
		kv, err = pebble.Open(path, dbOpts)
	default:
		return nil, db.OpenError("open environment", fmt.Errorf("%w: %q", ErrUnknownEngine, engine))
	}
	if err != nil {
		return nil, err
	}

	log.Storage.Info().
		Str("engine", engine).
		Str("path", path).
		Int64("max_size", dbOpts.WithDefaults().MaxSize).
		Msg("storage environment opened")

	return &Store{db: kv, engine: engine, path: path, metrics: opts.Metrics}, nil
}

// New wraps an already open engine.
func New(kv db.KVStore, m *metrics.Metrics) *Store {
	return &Store{db: kv, engine: "custom", metrics: m}
}

// Put stores value under key, replacing any previous value. It returns once
// the transaction has committed.
func (s *Store) Put(key string, value []byte) error {
	start := time.Now()
	err := s.db.Put(key, value)
	s.record("put", err, start)
	if err == nil {
		s.metrics.RecordBytesWritten(len(value))
	}
	return err
}

// Get returns the value stored under key. A missing key is reported with
// found == false and a nil error.
func (s *Store) Get(key string) (value []byte, found bool, err error) {
	start := time.Now()
	value, err = s.db.Get(key)
	s.record("get", err, start)
	if errors.Is(err, db.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	s.metrics.RecordBytesRead(len(value))
	return value, true, nil
}

// Delete removes key and reports whether it was present.
func (s *Store) Delete(key string) (bool, error) {
	start := time.Now()
	deleted, err := s.db.Delete(key)
	if err == nil && !deleted {
		s.record("delete", db.ErrNotFound, start)
	} else {
		s.record("delete", err, start)
	}
	return deleted, err
}

// Keys lists every key currently present in bytewise order.
func (s *Store) Keys() ([]string, error) {
	start := time.Now()
	keys, err := s.db.Keys()
	s.record("list_keys", err, start)
	return keys, err
}

// Close releases the environment.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close %s environment: %w", s.engine, err)
	}
	log.Storage.Info().Str("engine", s.engine).Msg("storage environment closed")
	return nil
}

// Engine names the backend in use.
func (s *Store) Engine() string { return s.engine }

// Path is the environment directory.
func (s *Store) Path() string { return s.path }

func (s *Store) record(op string, err error, start time.Time) {
	elapsed := time.Since(start)

	result := metrics.ResultOK
	switch {
	case errors.Is(err, db.ErrNotFound):
		result = metrics.ResultNotFound
	case err != nil:
		result = metrics.ResultError
	}
	s.metrics.RecordStorage(op, result, elapsed)

	log.Storage.Debug().
		Str("op", op).
		Str("result", result).
		Dur("elapsed", elapsed).
		Msg("storage operation")
}
