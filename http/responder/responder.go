// Package responder writes the JSON envelope used by every API response:
// {"data": ..., "error": {...}, "meta": {"traceId": ..., "took": ...}}.
package responder

import (
	"net/http"

	"go.uber.org/zap"

	apperrors "github.com/leeforge/thumbnailer/errors"
	"github.com/leeforge/thumbnailer/json"
	"github.com/leeforge/thumbnailer/logging"
)

// writeJSON is the internal helper for all global functions
func writeJSON(w http.ResponseWriter, status int, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		fallback := []byte(`{"error":{"code":"INTERNAL","message":"encode failed"}}`)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(fallback)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}

// Write sends a success response with data
func Write(w http.ResponseWriter, r *http.Request, status int, data any, opts ...Option) {
	res := &Response{
		Data: data,
		Meta: *requestMeta(r, opts),
	}
	writeJSON(w, status, res)
}

// OK responds with 200 OK and data
func OK(w http.ResponseWriter, r *http.Request, data any, opts ...Option) {
	Write(w, r, http.StatusOK, data, opts...)
}

// WriteError sends an error response
func WriteError(w http.ResponseWriter, r *http.Request, status int, err Error, opts ...Option) {
	res := &Response{
		Error: &err,
		Meta:  *requestMeta(r, opts),
	}
	writeJSON(w, status, res)
}

// Fail renders err with the status of its kind. Server-side failures are
// logged with the underlying error, which never reaches the client.
func Fail(w http.ResponseWriter, r *http.Request, err error, opts ...Option) {
	status, body := FromError(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("request failed",
			zap.Int("status", status),
			zap.String("kind", string(apperrors.TypeOf(err))),
			zap.Error(err),
		)
	}
	WriteError(w, r, status, body, opts...)
}

// BadRequest responds with 400 Bad Request
func BadRequest(w http.ResponseWriter, r *http.Request, message string, opts ...Option) {
	WriteError(w, r, http.StatusBadRequest, NewError(CodeBadRequest, message), opts...)
}

// ValidationError responds with 400 Bad Request and validation details
func ValidationError(w http.ResponseWriter, r *http.Request, details any, opts ...Option) {
	WriteError(w, r, http.StatusBadRequest, NewErrorWithDetails(CodeValidationFailed, "", details), opts...)
}

// BindError responds with 400 Bad Request for binding errors
func BindError(w http.ResponseWriter, r *http.Request, details any, opts ...Option) {
	WriteError(w, r, http.StatusBadRequest, NewErrorWithDetails(CodeBindFailed, "", details), opts...)
}

// TooLarge responds with 413 Request Entity Too Large
func TooLarge(w http.ResponseWriter, r *http.Request, limit int64, opts ...Option) {
	WriteError(w, r, http.StatusRequestEntityTooLarge,
		NewErrorWithDetails(CodeTooLarge, "", map[string]int64{"limit": limit}), opts...)
}

// NotFound is a chi NotFound handler.
func NotFound(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, http.StatusNotFound, NewError(CodeRouteNotFound, ""))
}

// MethodNotAllowed is a chi MethodNotAllowed handler.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, http.StatusMethodNotAllowed, NewError(CodeMethodNotAllowed, ""))
}
