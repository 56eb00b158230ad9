package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

type timingContextKey string

const (
	// StartTimeKey is the key for request start time in context
	StartTimeKey timingContextKey = "start_time"

	// ElapsedHeader reports handler time in milliseconds.
	ElapsedHeader = "Invocation-Elapsed"
)

// TimingMiddleware records the request start time and reports the elapsed
// milliseconds in the Invocation-Elapsed response header. The header is
// set when the handler first writes, since headers cannot change after.
func TimingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()
			tw := &timingWriter{ResponseWriter: w, start: startTime}

			ctx := context.WithValue(r.Context(), StartTimeKey, startTime)
			next.ServeHTTP(tw, r.WithContext(ctx))

			if !tw.wroteHeader {
				tw.WriteHeader(http.StatusOK)
			}
		})
	}
}

type timingWriter struct {
	http.ResponseWriter
	start       time.Time
	wroteHeader bool
}

func (w *timingWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		w.Header().Set(ElapsedHeader, strconv.FormatInt(time.Since(w.start).Milliseconds(), 10))
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *timingWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *timingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// GetRequestDuration calculates the duration since request start time
// Returns duration in milliseconds
func GetRequestDuration(ctx context.Context) int64 {
	if startTime, ok := ctx.Value(StartTimeKey).(time.Time); ok {
		return time.Since(startTime).Milliseconds()
	}
	return 0
}
