package pebble

import "errors"

var (
	ErrBatchDone     = errors.New("pebble: batch already committed or closed")
	ErrInvalidBucket = errors.New("pebble: bucket name must not contain NUL bytes")
)
