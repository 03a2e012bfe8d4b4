package core

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrNotFound           = errors.New("note not found")
	ErrNoEditSession      = errors.New("no note is open for editing")
	ErrNotSignedIn        = errors.New("not signed in")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotConfirmed  = errors.New("email address not confirmed")
	ErrEmailTaken         = errors.New("email address already registered")
)

// FetchError reports a failed read from the store. The local collection is
// not authoritative after a FetchError and callers should offer a retry.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch notes: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// WriteOp names the store mutation that failed.
type WriteOp string

const (
	OpCreate   WriteOp = "create"
	OpUpdate   WriteOp = "update"
	OpFavorite WriteOp = "favorite"
	OpDelete   WriteOp = "delete"
)

// WriteError reports a failed create, update or delete.
type WriteError struct {
	Op  WriteOp
	ID  string
	Err error
}

func (e *WriteError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s note: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s note %s: %v", e.Op, e.ID, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// GenerationError reports a failed or unusable response from the AI service.
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate %s: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// IsRetryable reports whether err belongs to the taxonomy of transient,
// user-retryable failures (fetch, write or generation).
func IsRetryable(err error) bool {
	var fe *FetchError
	var we *WriteError
	var ge *GenerationError
	return errors.As(err, &fe) || errors.As(err, &we) || errors.As(err, &ge)
}
