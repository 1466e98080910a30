package flatten

import (
	"errors"
	"fmt"
)

// Conversion errors.
var (
	ErrNilScene        = errors.New("no source scene")
	ErrIndexGeneration = errors.New("index generation failed")
	ErrTooManyBones    = errors.New("too many bones in partition")
	ErrOutOfMemory     = errors.New("allocation exceeds addressable size")
)

// FatalError aborts a whole conversion. No partial scene is returned with
// it.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("flatten: %s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err aborts the conversion.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

func fatalf(op string, format string, args ...any) error {
	return &FatalError{Op: op, Err: fmt.Errorf(format, args...)}
}
