package vote

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable marks a transient store fault. Callers should let the
	// trigger retry rather than treat the vote as gone.
	ErrStoreUnavailable = errors.New("vote store unavailable")
	ErrVoteNotFound     = errors.New("vote not found")
	ErrInvalidPolarity  = errors.New("invalid polarity")

	errClaimContended = errors.New("vote record kept changing during claim")
)

// StoreError wraps a store failure with the operation that hit it. It matches
// ErrStoreUnavailable under errors.Is.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}
