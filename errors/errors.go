package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Pipeline errors
	ErrorTypeUnsupportedFormat        ErrorType = "unsupported_format"
	ErrorTypeCorruptInput             ErrorType = "corrupt_input"
	ErrorTypeInvalidPreset            ErrorType = "invalid_preset"
	ErrorTypeUnsupportedChannelLayout ErrorType = "unsupported_channel_layout"

	// Request errors
	ErrorTypeValidation ErrorType = "validation"

	// System errors
	ErrorTypeUnavailable ErrorType = "unavailable"
	ErrorTypeInternal    ErrorType = "internal"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// AppError represents a structured error raised by the thumbnail engine or
// the surfaces around it.
type AppError struct {
	Type       ErrorType              `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	InnerError error                  `json:"-"`
	HTTPStatus int                    `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Type)
	}
	if e.InnerError != nil {
		return msg + ": " + e.InnerError.Error()
	}
	return msg
}

// Unwrap returns the inner error
func (e *AppError) Unwrap() error {
	return e.InnerError
}

// Is matches another *AppError of the same type, so errors.Is works against
// the sentinel values below.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if errors.As(target, &t) {
		return e.Type == t.Type
	}
	return false
}

// WithMessage adds a message to the error
func (e *AppError) WithMessage(msg string) *AppError {
	e.Message = msg
	return e
}

// WithDetail adds a detail to the error
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithInnerError sets the inner error
func (e *AppError) WithInnerError(err error) *AppError {
	e.InnerError = err
	return e
}

// WithHTTPStatus sets the HTTP status code
func (e *AppError) WithHTTPStatus(status int) *AppError {
	e.HTTPStatus = status
	return e
}

// Sentinels for errors.Is comparisons. Never mutate them; the constructors
// below return fresh values.
var (
	ErrUnsupportedFormat        = &AppError{Type: ErrorTypeUnsupportedFormat}
	ErrCorruptInput             = &AppError{Type: ErrorTypeCorruptInput}
	ErrInvalidPreset            = &AppError{Type: ErrorTypeInvalidPreset}
	ErrUnsupportedChannelLayout = &AppError{Type: ErrorTypeUnsupportedChannelLayout}
	ErrValidation               = &AppError{Type: ErrorTypeValidation}
	ErrUnavailable              = &AppError{Type: ErrorTypeUnavailable}
	ErrInternal                 = &AppError{Type: ErrorTypeInternal}
)

var statusByType = map[ErrorType]int{
	ErrorTypeUnsupportedFormat:        http.StatusUnsupportedMediaType,
	ErrorTypeCorruptInput:             http.StatusUnprocessableEntity,
	ErrorTypeInvalidPreset:            http.StatusBadRequest,
	ErrorTypeUnsupportedChannelLayout: http.StatusUnprocessableEntity,
	ErrorTypeValidation:               http.StatusBadRequest,
	ErrorTypeUnavailable:              http.StatusServiceUnavailable,
	ErrorTypeInternal:                 http.StatusInternalServerError,
	ErrorTypeUnknown:                  http.StatusInternalServerError,
}

// New creates a new AppError
func New(errType ErrorType, message string) *AppError {
	status, ok := statusByType[errType]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &AppError{
		Type:       errType,
		Code:       strings.ToUpper(string(errType)),
		Message:    message,
		HTTPStatus: status,
	}
}

// Newf creates a new AppError with a formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *AppError {
	return New(errType, fmt.Sprintf(format, args...))
}

// WrapWithType wraps an error with a specific type
func WrapWithType(err error, errType ErrorType, message string) *AppError {
	return New(errType, message).WithInnerError(err)
}

// FromError converts a standard error to AppError
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return New(ErrorTypeUnknown, "").WithInnerError(err)
}

// TypeOf returns the type of err, or ErrorTypeUnknown for foreign errors.
func TypeOf(err error) ErrorType {
	if err == nil {
		return ""
	}
	return FromError(err).Type
}

// IsType reports whether err (or anything it wraps) is an AppError of the
// given type.
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Type == errType
}

// HTTPStatus returns the status code to report for err.
func HTTPStatus(err error) int {
	appErr := FromError(err)
	if appErr == nil {
		return http.StatusOK
	}
	if appErr.HTTPStatus > 0 {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// Pipeline errors
func NewUnsupportedFormat(mediaType string, role string) *AppError {
	return Newf(ErrorTypeUnsupportedFormat, "no %s registered for %q", role, mediaType).
		WithDetail("format", mediaType).
		WithDetail("role", role)
}

func NewCorruptInput(mediaType string, reason string) *AppError {
	return Newf(ErrorTypeCorruptInput, "input is not a valid %s: %s", mediaType, reason).
		WithDetail("format", mediaType)
}

func NewInvalidPreset(name string, width, height int) *AppError {
	return Newf(ErrorTypeInvalidPreset, "preset %s has degenerate bounding box %dx%d", name, width, height).
		WithDetail("preset", name)
}

func NewUnsupportedChannelLayout(mediaType string, layout string) *AppError {
	return Newf(ErrorTypeUnsupportedChannelLayout, "%s cannot represent %s without loss", mediaType, layout).
		WithDetail("format", mediaType).
		WithDetail("layout", layout)
}

// Request errors
func NewValidation(message string) *AppError {
	return New(ErrorTypeValidation, message)
}

// System errors
func NewUnavailable(message string) *AppError {
	return New(ErrorTypeUnavailable, message)
}

func NewInternal(message string) *AppError {
	return New(ErrorTypeInternal, message)
}
