// Package server exposes the thumbnail pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/leeforge/thumbnailer/cache"
	"github.com/leeforge/thumbnailer/config"
	"github.com/leeforge/thumbnailer/http/middleware"
	"github.com/leeforge/thumbnailer/http/responder"
	"github.com/leeforge/thumbnailer/logging"
	"github.com/leeforge/thumbnailer/media/format"
	"github.com/leeforge/thumbnailer/media/processor"
	"github.com/leeforge/thumbnailer/media/storage"
	"github.com/leeforge/thumbnailer/metrics"
	"github.com/leeforge/thumbnailer/security"
)

type Option func(*Server)

// WithCache enables the result cache. A nil adapter leaves it disabled.
func WithCache(adapter cache.Adapter, cfg cache.Config) Option {
	return func(s *Server) {
		s.cache = adapter
		s.cacheCfg = cfg
	}
}

// WithPublisher stores every produced thumbnail and reports its URL.
func WithPublisher(p *storage.Publisher) Option {
	return func(s *Server) {
		s.publisher = p
	}
}

// WithMetrics records request, cache and concurrency series and serves
// them on /metrics.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Server) {
		s.collector = c
	}
}

func WithLogger(l logging.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithEncodeOptions sets the encoder options used when a request does not
// override them.
func WithEncodeOptions(o format.EncodeOptions) Option {
	return func(s *Server) {
		s.encode = o
	}
}

type Server struct {
	cfg       config.ServerConfig
	processor *processor.NativeProcessor
	registry  *format.Registry
	cache     cache.Adapter
	cacheCfg  cache.Config
	publisher *storage.Publisher
	collector *metrics.Collector
	encode    format.EncodeOptions
	logger    logging.Logger

	slots          *semaphore.Weighted
	defaultTarget  format.MediaFormat
	defaultPresets []processor.Preset

	httpServer *http.Server
}

// New validates cfg's defaults and builds a server around proc.
func New(cfg config.ServerConfig, registry *format.Registry, proc *processor.NativeProcessor, opts ...Option) (*Server, error) {
	presets, err := processor.ParsePresets(cfg.DefaultPresets)
	if err != nil {
		return nil, err
	}
	target := format.Parse(cfg.DefaultTarget)
	if _, err := registry.Encoder(target); err != nil {
		return nil, err
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}

	s := &Server{
		cfg:            cfg,
		processor:      proc,
		registry:       registry,
		logger:         logging.NewNop(),
		slots:          semaphore.NewWeighted(cfg.MaxConcurrent),
		defaultTarget:  target,
		defaultPresets: presets,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		MaxHeaderBytes:    1 << 20,
	}
	return s, nil
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.TraceIDMiddleware())
	r.Use(middleware.TimingMiddleware())
	r.Use(logging.HTTPMiddleware(s.logger))
	r.Use(logging.RecoveryMiddleware())
	r.Use(security.Headers(s.cfg.Headers))
	if s.collector != nil {
		r.Use(metrics.Middleware(s.collector))
	}

	r.NotFound(responder.NotFound)
	r.MethodNotAllowed(responder.MethodNotAllowed)

	r.Get("/healthz", s.health)
	if s.collector != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(s.collector))
	}
	r.Route("/v1", func(r chi.Router) {
		r.Post("/thumbnails", s.createThumbnails)
		r.Post("/thumbnails/{preset}", s.createThumbnail)
		r.Post("/probe", s.probe)
	})
	return r
}

// Run serves until ctx is cancelled, then drains in-flight requests for
// up to the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.httpServer.Addr))
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("http server shutting down")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	responder.OK(w, r, map[string]any{
		"status": "ok",
		"decode": s.registry.Decodable(),
		"encode": s.registry.Encodable(),
	})
}
