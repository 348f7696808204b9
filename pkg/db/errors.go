package db

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("key not found")
	ErrClosed   = errors.New("store is closed")
	ErrEmptyKey = errors.New("key must not be empty")
	ErrFull     = errors.New("environment size ceiling reached")

	ErrEngineOpen  = errors.New("engine open error")
	ErrEngineRead  = errors.New("engine read error")
	ErrEngineWrite = errors.New("engine write error")
)

// Kind classifies an engine failure.
type Kind uint8

const (
	KindOpen Kind = iota + 1
	KindRead
	KindWrite
)

func (k Kind) String() string {
	switch k {
	case KindOpen:
		return "open"
	case KindRead:
		return "read"
	case KindWrite:
		return "write"
	default:
		return "unknown"
	}
}

// Error is a failure raised by the storage engine. The store's committed
// state is unaffected by a failed operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrEngineRead) and friends match on Kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrEngineOpen:
		return e.Kind == KindOpen
	case ErrEngineRead:
		return e.Kind == KindRead
	case ErrEngineWrite:
		return e.Kind == KindWrite
	}
	return false
}

func OpenError(op string, err error) error {
	return &Error{Kind: KindOpen, Op: op, Err: err}
}

func ReadError(op string, err error) error {
	return &Error{Kind: KindRead, Op: op, Err: err}
}

func WriteError(op string, err error) error {
	return &Error{Kind: KindWrite, Op: op, Err: err}
}
