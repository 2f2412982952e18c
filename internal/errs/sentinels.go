// Package errs contains sentinel and typed errors used across layers for stable error mapping.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist or is not visible to the caller.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates failed authentication.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the caller is authenticated but lacks the required role.
	ErrForbidden = errors.New("forbidden")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., username taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidArgument indicates a malformed identifier or parameter (e.g., non-numeric id).
	ErrInvalidArgument = errors.New("invalid argument")
)

// ValidationError carries every rule violation found in an input. Nothing is persisted when it is returned.
type ValidationError struct {
	Messages []string
}

// NewValidation returns a ValidationError for the given messages.
func NewValidation(msgs ...string) *ValidationError {
	return &ValidationError{Messages: msgs}
}

func (e *ValidationError) Error() string {
	return "validation: " + strings.Join(e.Messages, "; ")
}

// PersistenceError wraps a storage failure raised while writing.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Persist wraps err as a PersistenceError unless it is nil or already a domain error.
func Persist(op string, err error) error {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyExists) || errors.As(err, &ve) {
		return err
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// PartialBatchError reports that some items of a best-effort batch failed while the rest were applied.
type PartialBatchError struct {
	Failed int
	Total  int
}

func (e *PartialBatchError) Error() string {
	return fmt.Sprintf("partial batch failure: %d of %d items failed", e.Failed, e.Total)
}
