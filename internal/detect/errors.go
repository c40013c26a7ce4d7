package detect

import (
	"errors"
	"fmt"
)

// Common detection errors
var (
	// ErrImageTooLarge is returned when the image exceeds the maximum size.
	// Google Cloud Vision API has a 20MB limit for synchronous processing.
	ErrImageTooLarge = errors.New("image size exceeds the maximum limit (20MB)")

	// ErrEmptyImage is returned when no image bytes were provided.
	ErrEmptyImage = errors.New("image content is empty")

	// ErrDetectionFailed is returned when the Google Cloud Vision API reports
	// an error for the submitted image. This is a service-level failure, not
	// "no text found"; an image without text yields an empty Detection instead.
	ErrDetectionFailed = errors.New("text detection failed")

	// ErrMissingCredentials is returned when neither GOOGLE_APPLICATION_CREDENTIALS
	// nor GOOGLE_CREDENTIALS environment variables are configured.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")
)

// DetectError wraps errors with additional context about the detection failure.
type DetectError struct {
	// Op is the operation that failed (e.g., "Detect").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *DetectError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("detect: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("detect: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *DetectError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *DetectError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapDetectError wraps an error as a DetectError if it isn't already one.
func WrapDetectError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var detectErr *DetectError
	if errors.As(err, &detectErr) {
		return err // Already wrapped
	}

	return &DetectError{Op: op, Err: err, Details: details}
}
