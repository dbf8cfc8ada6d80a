// Package errors defines the error taxonomy shared across harbor components.
//
// Errors fall into five classes:
//   - validation errors: the request payload is malformed (size, encoding, JSON)
//   - not-found errors: a namespace/topic/dataset lookup came back empty
//   - delivery errors: a push endpoint was unreachable or returned an error
//   - storage errors: a segment write/read failed
//   - ingestion errors: a watched file could not be interpreted
//
// Validation and not-found errors are detected before any side effect and
// short-circuit the operation. Storage and delivery errors may surface after
// partial work has occurred (some subscriptions already notified); callers get
// at-most-once-per-subscription delivery, not a transaction.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrPayloadTooLarge is returned when a publish payload exceeds the
	// encoded size ceiling.
	ErrPayloadTooLarge = errors.New("message data must be less than or equal to 10MB")

	// ErrInvalidEncoding is returned when a publish payload is not valid base64.
	ErrInvalidEncoding = errors.New("message data must be a valid base64 encoded string")

	// ErrInvalidPayload is returned when the decoded payload is not well-formed JSON.
	ErrInvalidPayload = errors.New("message data must be a valid base64 encoded JSON string")

	// ErrNotFound is returned when a namespace, topic, subscription or dataset
	// does not exist. Lookups report absence through this sentinel rather than
	// panicking or inventing entities.
	ErrNotFound = errors.New("not found")

	// ErrStorageUnavailable is returned when the segment directory tree cannot
	// be read or written. Fatal to the triggering operation, never retried
	// internally.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrCorruptSegment is returned when a segment file fails to decode.
	// Policy: a corrupt segment fails the whole read, deterministically.
	ErrCorruptSegment = errors.New("corrupt segment")

	// ErrUnsupportedFileType is returned by the ingestion parser for unknown
	// file extensions. The watch loop quarantines the file and keeps running.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrParse is returned when a watched file's content cannot be parsed into
	// records.
	ErrParse = errors.New("parse failure")
)

// Validation wraps err as a client-side validation failure.
func Validation(err error) error {
	return fmt.Errorf("validation: %w", err)
}

// NotFound builds a typed not-found error for the named resource kind and id.
func NotFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

// IsValidation reports whether err belongs to the validation class.
func IsValidation(err error) bool {
	return errors.Is(err, ErrPayloadTooLarge) ||
		errors.Is(err, ErrInvalidEncoding) ||
		errors.Is(err, ErrInvalidPayload)
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// Is reports whether any error in err's chain matches target.
// Re-exported so callers don't need a second errors import.
func Is(err, target error) bool { return errors.Is(err, target) }

// IsStorage reports whether err belongs to the storage class.
func IsStorage(err error) bool {
	return errors.Is(err, ErrStorageUnavailable) || errors.Is(err, ErrCorruptSegment)
}
