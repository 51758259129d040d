package jsondb

import (
	"errors"
	"fmt"
)

var (
	// ErrCorrupt is returned when the data file exists but cannot be decoded.
	ErrCorrupt = errors.New("corrupt data file")
	// ErrLockTimeout is returned when the write lock cannot be acquired in time.
	ErrLockTimeout = errors.New("timed out acquiring write lock")
)

// CorruptError describes a data file that failed to decode.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrCorrupt, e.Path, e.Err)
}

// Unwrap returns the decoding error.
func (e *CorruptError) Unwrap() error {
	return e.Err
}

// Is reports ErrCorrupt.
func (e *CorruptError) Is(target error) bool {
	return target == ErrCorrupt
}
