package clip

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers both a name that never existed and one that has
	// expired. The two cases are deliberately indistinguishable to callers.
	ErrNotFound = errors.New("clip not found")

	// ErrConflict means the clip name is already taken by a live clip.
	ErrConflict = errors.New("clip name already exists")

	// ErrPasswordRequired signals the clip is protected and no password was
	// supplied, so the client should prompt for one.
	ErrPasswordRequired = errors.New("password required")

	// ErrWrongPassword signals a supplied password that failed verification.
	ErrWrongPassword = errors.New("invalid password")
)

// ValidationError reports a malformed or over-quota input. The message names
// the specific constraint that was breached.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func invalidf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// StorageError wraps a failed object-store operation. Whether it is fatal
// depends on the caller: minting upload grants treats it as fatal, deletes
// are logged and ignored.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return "object storage " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
