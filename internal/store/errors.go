package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotExist means the collection has never been written.
	ErrNotExist = errors.New("collection_not_found")

	// ErrConcurrentModification means the collection changed since the
	// caller loaded it. Reload, reapply, and save again.
	ErrConcurrentModification = errors.New("concurrent_modification")
)

// IOError is a read or write failure of the underlying medium.
type IOError struct {
	Op   string
	Kind Kind
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("store %s %s (%s): %v", e.Op, e.Kind, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// DecodeError means stored bytes exist but cannot be decoded with the
// current schema.
type DecodeError struct {
	Kind Kind
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s (%s): %v", e.Kind, e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// StaleWriteError carries the versions involved in a rejected save.
type StaleWriteError struct {
	Kind     Kind
	Expected int64
	Actual   int64
}

func (e *StaleWriteError) Error() string {
	return fmt.Sprintf("stale write to %s: expected version %d, found %d", e.Kind, e.Expected, e.Actual)
}

func (e *StaleWriteError) Is(target error) bool {
	return target == ErrConcurrentModification
}

// IsIOError reports whether err is (or wraps) an *IOError.
func IsIOError(err error) bool {
	var ioErr *IOError
	return errors.As(err, &ioErr)
}

// IsDecodeError reports whether err is (or wraps) a *DecodeError.
func IsDecodeError(err error) bool {
	var decErr *DecodeError
	return errors.As(err, &decErr)
}
