package responder

import (
	"net/http"
	"strings"

	apperrors "github.com/leeforge/thumbnailer/errors"
)

// Codes for failures raised by the HTTP layer itself. Pipeline failures
// use the upper-cased error kind, e.g. CORRUPT_INPUT.
const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeBindFailed       = "BIND_FAILED"
	CodeValidationFailed = "VALIDATION"
	CodeRouteNotFound    = "ROUTE_NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeTooLarge         = "PAYLOAD_TOO_LARGE"
	CodeInternalServer   = "INTERNAL"
)

// 错误消息映射
var errorMessages = map[string]string{
	CodeBadRequest:       "Bad Request",
	CodeBindFailed:       "Invalid Request",
	CodeValidationFailed: "Validation Failed",
	CodeRouteNotFound:    "Route Not Found",
	CodeMethodNotAllowed: "Method Not Allowed",
	CodeTooLarge:         "Payload Too Large",
	CodeInternalServer:   "Internal Server Error",
}

// GetErrorMessage returns the default message for an error code
func GetErrorMessage(code string) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return "Unknown Error"
}

// NewError creates a new Error with code and message
func NewError(code string, message string) Error {
	if message == "" {
		message = GetErrorMessage(code)
	}
	return Error{
		Code:    code,
		Message: message,
	}
}

// NewErrorWithDetails creates a new Error with code, message and details
func NewErrorWithDetails(code string, message string, details any) Error {
	err := NewError(code, message)
	err.Details = details
	return err
}

// FromError converts err into a response body and status. Internal errors
// hide their message.
func FromError(err error) (int, Error) {
	if err == nil {
		return http.StatusInternalServerError, NewError(CodeInternalServer, "")
	}
	appErr := apperrors.FromError(err)
	status := apperrors.HTTPStatus(appErr)
	if status >= http.StatusInternalServerError && appErr.Type != apperrors.ErrorTypeUnavailable {
		return status, NewError(CodeInternalServer, "")
	}

	code := appErr.Code
	if code == "" {
		code = strings.ToUpper(string(appErr.Type))
	}
	out := Error{Code: code, Message: appErr.Message}
	if len(appErr.Details) > 0 {
		out.Details = appErr.Details
	}
	return status, out
}
