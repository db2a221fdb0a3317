// Package errors provides error types and handling for upload operations.
package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"
)

// Error represents an upload operation error with context about the operation that failed.
// It wraps the underlying backend error with additional context for better debugging.
type Error struct {
	// Op is the operation that failed (e.g., "simpleUpload", "uploadPart", "completeSession")
	Op string

	// Bucket is the bucket name (if applicable)
	Bucket string

	// Key is the object key (if applicable)
	Key string

	// Err is the underlying error from the AWS SDK or other source
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	if e.Bucket != "" && e.Key != "" {
		return fmt.Sprintf("s3upload.%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	if e.Bucket != "" {
		return fmt.Sprintf("s3upload.%s bucket %s: %v", e.Op, e.Bucket, e.Err)
	}
	if e.Key != "" {
		return fmt.Sprintf("s3upload.%s object %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("s3upload.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithBucket adds bucket context to an existing error.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// NewObjectError creates a new Error with bucket and key context.
func NewObjectError(op, bucket, key string, err error) *Error {
	return &Error{
		Op:     op,
		Bucket: bucket,
		Key:    key,
		Err:    err,
	}
}

// Sentinel errors for common upload failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("s3upload: invalid input")

	// ErrMissingBucket indicates that no bucket was configured
	ErrMissingBucket = errors.New("s3upload: bucket is required")

	// ErrTooManyFiles indicates that the batch exceeds the configured file limit
	ErrTooManyFiles = errors.New("s3upload: too many files")

	// ErrFormatNotAllowed indicates that a file does not match the accept rule
	ErrFormatNotAllowed = errors.New("s3upload: file format not allowed")

	// ErrFileTooLarge indicates that a file exceeds the configured size limit
	ErrFileTooLarge = errors.New("s3upload: file too large")

	// ErrObjectNotFound indicates that the probed object does not exist
	ErrObjectNotFound = errors.New("s3upload: object not found")

	// ErrUploadFailed indicates that a single-request upload failed
	ErrUploadFailed = errors.New("s3upload: upload failed")

	// ErrSessionCreate indicates that a multipart session could not be opened
	ErrSessionCreate = errors.New("s3upload: multipart session create failed")

	// ErrSessionComplete indicates that the backend refused to assemble the parts
	ErrSessionComplete = errors.New("s3upload: multipart session complete failed")

	// ErrPartsExhausted indicates that some parts were still failing after every retry round
	ErrPartsExhausted = errors.New("s3upload: part retries exhausted")
)

// ValidationError describes an upfront rejection of a batch.
// Type mirrors the rejection kinds: "bucket", "limit", "accept" and "size".
type ValidationError struct {
	// Type is the kind of rejection
	Type string

	// Allow is the configured limit, if any
	Allow any

	// Current is the offending value (file count, file name or size in MiB)
	Current any

	// Err is the matching sentinel error
	Err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	switch {
	case e.Allow != nil && e.Current != nil:
		return fmt.Sprintf("%v (%s: allow %v, current %v)", e.Err, e.Type, e.Allow, e.Current)
	case e.Current != nil:
		return fmt.Sprintf("%v (%s: %v)", e.Err, e.Type, e.Current)
	default:
		return fmt.Sprintf("%v (%s)", e.Err, e.Type)
	}
}

// Unwrap returns the matching sentinel error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a "does not exist" response from the backend.
// HeadObject returns a bare 404 as smithy "NotFound"; other calls use "NoSuchKey".
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrObjectNotFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "NotFound") || strings.Contains(msg, "NoSuchKey")
}

// IsValidation reports whether err is an upfront validation rejection.
func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}
