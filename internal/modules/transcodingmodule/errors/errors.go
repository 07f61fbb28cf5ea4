// Package errors provides structured error handling for the transcoding module.
// It defines the failure taxonomy of the ABR pipeline, sentinel errors, and
// helpers for classifying errors as they cross package boundaries.
package errors

import (
	"errors"
	"fmt"
)

// Error types for classification
type ErrorType string

const (
	// ErrorTypeProbe indicates dimension probing failed or returned garbage
	ErrorTypeProbe ErrorType = "probe"
	// ErrorTypeCodec indicates the external codec or segmenter exited non-zero
	ErrorTypeCodec ErrorType = "codec"
	// ErrorTypeIO indicates a local filesystem failure
	ErrorTypeIO ErrorType = "io"
	// ErrorTypeStorage indicates an object store put/get/delete failure
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeInvalidQuality indicates an unknown ladder label reached the quality table
	ErrorTypeInvalidQuality ErrorType = "invalid_quality"
	// ErrorTypeValidation indicates invalid request input
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeInternal indicates internal system errors
	ErrorTypeInternal ErrorType = "internal"
)

// Sentinel errors for common scenarios
var (
	// ErrProbeFailed indicates ffprobe could not report usable dimensions
	ErrProbeFailed = errors.New("probe failed")

	// ErrCodecFailed indicates an external media process exited unsuccessfully
	ErrCodecFailed = errors.New("codec process failed")

	// ErrObjectNotFound indicates the requested key does not exist in storage
	ErrObjectNotFound = errors.New("object not found")

	// ErrInvalidQuality indicates a quality label missing from the quality table
	ErrInvalidQuality = errors.New("invalid quality")

	// ErrInvalidInput indicates invalid request parameters
	ErrInvalidInput = errors.New("invalid input")
)

// TranscodingError provides structured error information with context
type TranscodingError struct {
	Type    ErrorType              // Error classification
	Op      string                 // Operation that failed (e.g. "transcode", "put_object")
	VideoID string                 // Related video ID if applicable
	Err     error                  // Underlying error
	Details map[string]interface{} // Additional context
}

// Error implements the error interface
func (e *TranscodingError) Error() string {
	if e.VideoID != "" {
		return fmt.Sprintf("%s error in %s for video %s: %v", e.Type, e.Op, e.VideoID, e.Err)
	}
	return fmt.Sprintf("%s error in %s: %v", e.Type, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *TranscodingError) Unwrap() error {
	return e.Err
}

// New creates a new TranscodingError
func New(errType ErrorType, op string, err error) *TranscodingError {
	return &TranscodingError{
		Type:    errType,
		Op:      op,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// WithVideo adds video context to the error
func (e *TranscodingError) WithVideo(videoID string) *TranscodingError {
	e.VideoID = videoID
	return e
}

// WithDetail adds a key-value detail to the error
func (e *TranscodingError) WithDetail(key string, value interface{}) *TranscodingError {
	e.Details[key] = value
	return e
}

// IsFatal reports whether the error aborts a pipeline run. Probe failures
// are absorbed by the planner's fallback ladder; everything else aborts.
func (e *TranscodingError) IsFatal() bool {
	return e.Type != ErrorTypeProbe
}

// ProbeError creates a probe failure
func ProbeError(op string, err error) *TranscodingError {
	return New(ErrorTypeProbe, op, err)
}

// CodecError creates a codec failure
func CodecError(op string, err error) *TranscodingError {
	return New(ErrorTypeCodec, op, err)
}

// IOError creates a local filesystem failure
func IOError(op string, err error) *TranscodingError {
	return New(ErrorTypeIO, op, err)
}

// StorageError creates an object storage failure
func StorageError(op string, err error) *TranscodingError {
	return New(ErrorTypeStorage, op, err)
}

// InvalidQualityError creates an error for an unknown quality label
func InvalidQualityError(op, label string) *TranscodingError {
	return New(ErrorTypeInvalidQuality, op, fmt.Errorf("%w: %q", ErrInvalidQuality, label)).
		WithDetail("label", label)
}

// ValidationError creates a validation error
func ValidationError(op string, err error) *TranscodingError {
	return New(ErrorTypeValidation, op, err)
}

// InternalError creates an internal system error
func InternalError(op string, err error) *TranscodingError {
	return New(ErrorTypeInternal, op, err)
}

// Wrap wraps an error with operation context if it's not already a TranscodingError
func Wrap(err error, errType ErrorType, op string) error {
	if err == nil {
		return nil
	}

	var tErr *TranscodingError
	if errors.As(err, &tErr) {
		return err
	}

	return New(errType, op, err)
}

// GetType extracts the error type from an error
func GetType(err error) ErrorType {
	var tErr *TranscodingError
	if errors.As(err, &tErr) {
		return tErr.Type
	}
	return ErrorTypeInternal
}

// GetOperation extracts the operation from an error
func GetOperation(err error) string {
	var tErr *TranscodingError
	if errors.As(err, &tErr) {
		return tErr.Op
	}
	return "unknown"
}

// GetDetails extracts error details
func GetDetails(err error) map[string]interface{} {
	var tErr *TranscodingError
	if errors.As(err, &tErr) {
		return tErr.Details
	}
	return nil
}
