package errors

import (
	"context"
	"errors"

	"github.com/aws/smithy-go"
)

// ErrorCode classifies an upload failure.
// Codes are strings so they read well in logs and JSON output.
type ErrorCode string

const (
	// CodeInvalidInput indicates the files or options were rejected before any request
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeInvalidConfig indicates the client could not be configured
	CodeInvalidConfig ErrorCode = "INVALID_CONFIGURATION"

	// CodeNotFound indicates the bucket or object does not exist
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeUnauthorized indicates missing or invalid credentials
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// CodeForbidden indicates the credentials lack permission for the operation
	CodeForbidden ErrorCode = "FORBIDDEN"

	// CodeRateLimit indicates the backend asked the client to slow down
	CodeRateLimit ErrorCode = "RATE_LIMIT_EXCEEDED"

	// CodeTimeout indicates an operation exceeded its deadline
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeCanceled indicates the caller canceled the upload
	CodeCanceled ErrorCode = "CANCELED"

	// CodeUnavailable indicates the backend is temporarily unavailable
	CodeUnavailable ErrorCode = "SERVICE_UNAVAILABLE"

	// CodeUploadFailed indicates a transfer failed after its retries
	CodeUploadFailed ErrorCode = "UPLOAD_FAILED"

	// CodeUnknown indicates an unclassified error
	CodeUnknown ErrorCode = "UNKNOWN"
)

// String returns the code as a string.
func (c ErrorCode) String() string {
	return string(c)
}

// Retryable reports whether a later attempt with the same input may succeed.
func (c ErrorCode) Retryable() bool {
	switch c {
	case CodeRateLimit, CodeTimeout, CodeUnavailable, CodeUploadFailed:
		return true
	default:
		return false
	}
}

// CodeOf classifies err. A nil error has no code and returns "".
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case IsValidation(err), errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, context.Canceled):
		return CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "NoSuchBucket", "NoSuchUpload":
			return CodeNotFound
		case "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken", "InvalidToken":
			return CodeUnauthorized
		case "AccessDenied", "AllAccessDisabled":
			return CodeForbidden
		case "SlowDown", "Throttling", "ThrottlingException", "RequestLimitExceeded":
			return CodeRateLimit
		case "ServiceUnavailable", "InternalError":
			return CodeUnavailable
		case "RequestTimeout":
			return CodeTimeout
		}
	}

	switch {
	case errors.Is(err, ErrObjectNotFound):
		return CodeNotFound
	case errors.Is(err, ErrUploadFailed),
		errors.Is(err, ErrSessionCreate),
		errors.Is(err, ErrSessionComplete),
		errors.Is(err, ErrPartsExhausted):
		return CodeUploadFailed
	}

	return CodeUnknown
}
