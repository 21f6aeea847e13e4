package imaging

import (
	"errors"
	"fmt"
)

var (
	// ErrBadInput marks sources that will never process: corrupt or unsupported data.
	ErrBadInput = errors.New("imaging: bad input")
	// ErrTransient marks failures that may succeed on retry.
	ErrTransient = errors.New("imaging: transient failure")
)

// Error is a classified processing failure.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func badInput(op string, err error) error {
	return &Error{Op: op, Kind: ErrBadInput, Err: err}
}

func transient(op string, err error) error {
	return &Error{Op: op, Kind: ErrTransient, Err: err}
}

// IsBadInput reports whether err was classified as bad input.
func IsBadInput(err error) bool {
	return errors.Is(err, ErrBadInput)
}
