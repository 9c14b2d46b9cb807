// Package errors provides unified error handling with a structured ErrorCode.
// Capture, export, delivery and store failures all surface as *AppError so callers
// can branch on the code instead of matching strings.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode identifies a failure class.
type ErrorCode int

const (
	ErrorCodeUnspecified ErrorCode = iota
	Unknown
	Internal
	InvalidArgument
	InvalidState
	InvalidRecord
	NotFound

	CaptureDeviceUnavailable
	CaptureReadFailed

	ExportEncodeFailed
	ExportWriteFailed

	DeliveryTargetUnavailable
	DeliveryWriteRejected

	StoreFailed
	StoreBusy

	ConfigInvalid
)

var codeNames = map[ErrorCode]string{
	ErrorCodeUnspecified:      "ERROR_CODE_UNSPECIFIED",
	Unknown:                   "UNKNOWN",
	Internal:                  "INTERNAL",
	InvalidArgument:           "INVALID_ARGUMENT",
	InvalidState:              "INVALID_STATE",
	InvalidRecord:             "INVALID_RECORD",
	NotFound:                  "NOT_FOUND",
	CaptureDeviceUnavailable:  "CAPTURE_DEVICE_UNAVAILABLE",
	CaptureReadFailed:         "CAPTURE_READ_FAILED",
	ExportEncodeFailed:        "EXPORT_ENCODE_FAILED",
	ExportWriteFailed:         "EXPORT_WRITE_FAILED",
	DeliveryTargetUnavailable: "DELIVERY_TARGET_UNAVAILABLE",
	DeliveryWriteRejected:     "DELIVERY_WRITE_REJECTED",
	StoreFailed:               "STORE_FAILED",
	StoreBusy:                 "STORE_BUSY",
	ConfigInvalid:             "CONFIG_INVALID",
}

// String returns the wire name of the code.
func (c ErrorCode) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("ErrorCode(%d)", int(c))
}

// Domain groups codes by the component that raises them.
type Domain string

const (
	DomainCapture  Domain = "capture"
	DomainExport   Domain = "export"
	DomainDelivery Domain = "delivery"
	DomainStore    Domain = "store"
	DomainGeneral  Domain = "general"
)

// Domain returns the component the code belongs to.
func (c ErrorCode) Domain() Domain {
	switch c {
	case CaptureDeviceUnavailable, CaptureReadFailed:
		return DomainCapture
	case ExportEncodeFailed, ExportWriteFailed:
		return DomainExport
	case DeliveryTargetUnavailable, DeliveryWriteRejected:
		return DomainDelivery
	case StoreFailed, StoreBusy:
		return DomainStore
	default:
		return DomainGeneral
	}
}

// AppError is the base error type with structured error code and metadata.
type AppError struct {
	Code     ErrorCode
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code.String(), e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// New creates a new AppError with the given code and message.
func New(code ErrorCode, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Newf creates a new AppError with formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, code ErrorCode, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WithMetadata adds metadata to an AppError.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// As finds the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the first AppError in err's chain, or Unknown.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrorCodeUnspecified
	}
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return Unknown
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	if appErr, ok := As(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsRetryable returns true if the error is potentially retryable without user action.
// Capture and delivery failures are not: the user decides when to retry.
func IsRetryable(err error) bool {
	appErr, ok := As(err)
	if !ok {
		return false
	}
	return appErr.Code == StoreBusy
}
