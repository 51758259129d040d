package query

import (
	"errors"
	"fmt"
)

var (
	// ErrUnrecognized is returned for statements outside the supported dialect.
	ErrUnrecognized = errors.New("unrecognized query")
	// ErrParamCount is returned when the argument count differs from the placeholder count.
	ErrParamCount = errors.New("parameter count mismatch")
)

// SyntaxError reports where parsing stopped.
type SyntaxError struct {
	Pos  int
	Near string
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.Near == "" {
		return fmt.Sprintf("%s: %s at offset %d", ErrUnrecognized, e.Msg, e.Pos)
	}
	return fmt.Sprintf("%s: %s at offset %d near %q", ErrUnrecognized, e.Msg, e.Pos, e.Near)
}

// Is reports ErrUnrecognized.
func (e *SyntaxError) Is(target error) bool {
	return target == ErrUnrecognized
}
