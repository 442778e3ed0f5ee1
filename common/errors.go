package common

import (
	"errors"

	"github.com/hermeznetwork/tracerr"
)

// ErrDone is used when a function returns earlier due to a cancelled context
var ErrDone = errors.New("done")

// ErrInvalidHex is used when a value expected to be a 32 byte hex string
// can't be decoded
var ErrInvalidHex = errors.New("invalid 32 byte hex value")

// ErrQueueEmpty is used when the coordinator.Queue.Pop() is called and has no elements
var ErrQueueEmpty = errors.New("Queue empty")

// Wrap annotates err with the stack trace of the caller.  A nil err
// returns nil.
func Wrap(err error) error {
	return tracerr.Wrap(err)
}

// Unwrap returns the original error from a wrapped error.
func Unwrap(err error) error {
	return tracerr.Unwrap(err)
}

// IsErrDone returns true if the error or wrapped error is ErrDone
func IsErrDone(err error) bool {
	return Unwrap(err) == ErrDone
}
