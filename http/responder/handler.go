package responder

import (
	"net/http"

	"github.com/leeforge/thumbnailer/http/middleware"
	"github.com/leeforge/thumbnailer/logging"
)

type Option func(*Meta)

func WithTraceID(id string) Option {
	return func(m *Meta) {
		m.TraceId = id
	}
}

func WithTook(ms int64) Option {
	return func(m *Meta) {
		m.Took = ms
	}
}

func NewMeta(opts ...Option) *Meta {
	meta := Meta{}
	for _, opt := range opts {
		opt(&meta)
	}
	return &meta
}

// requestMeta fills the trace ID and elapsed time recorded by the request
// middlewares; explicit options win.
func requestMeta(r *http.Request, opts []Option) *Meta {
	if r == nil {
		return NewMeta(opts...)
	}
	ctx := r.Context()
	base := []Option{
		WithTraceID(logging.GetTraceID(ctx)),
		WithTook(middleware.GetRequestDuration(ctx)),
	}
	return NewMeta(append(base, opts...)...)
}
