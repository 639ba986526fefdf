package models

import (
	"errors"
	"fmt"
)

// Aggregation errors shared by the loader and the analyzers
var (
	// ErrStoreUnavailable means a store read failed and no snapshot was produced
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvalidArgument means the caller passed a window size, rank count or
	// group key that cannot be computed
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound means a single record lookup matched nothing
	ErrNotFound = errors.New("record not found")
)

// StoreError wraps a failed read from one of the record stores
type StoreError struct {
	Store     string
	Operation string
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Store, e.Operation, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrStoreUnavailable) match any StoreError
func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// NewStoreError creates a new StoreError
func NewStoreError(store, operation string, err error) *StoreError {
	return &StoreError{
		Store:     store,
		Operation: operation,
		Err:       err,
	}
}

// InvalidArgumentf returns an error wrapping ErrInvalidArgument
func InvalidArgumentf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
