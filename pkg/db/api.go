package db

// DefaultBucket is the name of the single sub-database holding all entries.
const DefaultBucket = "data"

// DefaultMaxSize is the size ceiling of an environment when none is configured.
const DefaultMaxSize int64 = 10 * 1024 * 1024 * 1024 // 10 GiB

// KVStore is an on-disk transactional key-value environment.
// Every method runs exactly one engine transaction and either commits it or
// releases it before returning, so callers never see transaction boundaries.
// Implementations are safe for concurrent use.
type KVStore interface {
	Writer
	// Get returns the value stored under key or ErrNotFound.
	Get(key string) ([]byte, error)
	// Delete removes key and reports whether a value was present.
	Delete(key string) (bool, error)
	// Keys returns every key present, in bytewise order, read from one snapshot.
	Keys() ([]string, error)
	Close() error
}

type Writer interface {
	Put(key string, value []byte) error
}

// Options configure an environment at open time.
type Options struct {
	// MaxSize is the size ceiling in bytes. Writes that would grow the
	// environment beyond it fail. Zero means DefaultMaxSize.
	MaxSize int64
	// Bucket names the sub-database. Empty means DefaultBucket.
	Bucket string
}

// WithDefaults fills unset fields.
func (o Options) WithDefaults() Options {
	if o.MaxSize <= 0 {
		o.MaxSize = DefaultMaxSize
	}
	if o.Bucket == "" {
		o.Bucket = DefaultBucket
	}
	return o
}
