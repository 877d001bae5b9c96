package accumulator

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrEmptyAccumulator  = errors.New("empty accumulator")
	ErrCountUnderflow    = errors.New("count underflow")
	ErrUnknownVariant    = errors.New("unknown accumulator variant")
	ErrVariantMismatch   = errors.New("accumulator variant mismatch")
	ErrInvalidState      = errors.New("invalid accumulator state")
)

// Error is returned by every failing accumulator operation. Kind is one of
// the Err* values above; format with %+v to get the call stack.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Msg
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...interface{}) error {
	return errors.WithStack(&Error{Kind: kind, Msg: fmt.Sprintf(format, args...)})
}
