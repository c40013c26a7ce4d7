package storage

import (
	"errors"
	"fmt"
)

// Common storage errors
var (
	// ErrObjectNotFound is returned when the requested object does not exist
	// in the bucket.
	ErrObjectNotFound = errors.New("object not found in bucket")

	// ErrMissingCredentials is returned when neither GOOGLE_APPLICATION_CREDENTIALS
	// nor GOOGLE_CREDENTIALS environment variables are configured and Application
	// Default Credentials are unavailable.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")
)

// StorageError wraps errors with additional context about the failed bucket operation.
type StorageError struct {
	// Op is the operation that failed (e.g., "Download", "Upload").
	Op string

	// Object is the object name involved, if any.
	Object string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Object != "" {
		return fmt.Sprintf("storage: %s %q failed: %v", e.Op, e.Object, e.Err)
	}
	return fmt.Sprintf("storage: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *StorageError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapStorageError wraps an error as a StorageError if it isn't already one.
func WrapStorageError(op, object string, err error) error {
	if err == nil {
		return nil
	}

	var storageErr *StorageError
	if errors.As(err, &storageErr) {
		return err // Already wrapped
	}

	return &StorageError{Op: op, Object: object, Err: err}
}
