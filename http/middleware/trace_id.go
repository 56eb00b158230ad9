package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/leeforge/thumbnailer/logging"
)

// TraceIDHeader is the HTTP header name for trace ID
const TraceIDHeader = "X-Trace-ID"

// maxTraceIDLen caps client supplied IDs before they reach the logs.
const maxTraceIDLen = 128

// TraceIDMiddleware adds a trace ID to each request.
// A client supplied X-Trace-ID is reused, otherwise a new UUID is generated.
// The ID is stored under logging.TraceIDKey so request loggers pick it up.
func TraceIDMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := strings.TrimSpace(r.Header.Get(TraceIDHeader))
			if traceID == "" || len(traceID) > maxTraceIDLen {
				traceID = uuid.New().String()
			}

			w.Header().Set(TraceIDHeader, traceID)
			next.ServeHTTP(w, r.WithContext(logging.SetTraceID(r.Context(), traceID)))
		})
	}
}

// GetTraceID retrieves the trace ID from context
func GetTraceID(ctx context.Context) string {
	return logging.GetTraceID(ctx)
}
