package streak

import (
	"errors"
	"fmt"
)

// ErrUserNotFound is returned when the user id is missing or does not
// resolve to a user record.
var ErrUserNotFound = errors.New("user not found")

// StorageError wraps a failed read or write against the task or user store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("streak storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
