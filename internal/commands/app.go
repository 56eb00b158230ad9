package commands

import (
	"github.com/leeforge/thumbnailer/config"
	"github.com/leeforge/thumbnailer/logging"
	"github.com/leeforge/thumbnailer/media/format"
	"github.com/leeforge/thumbnailer/media/processor"
	"github.com/leeforge/thumbnailer/metrics"
)

// app holds the components shared by serve and generate.
type app struct {
	cfg       *config.AppConfig
	logger    logging.Logger
	registry  *format.Registry
	processor *processor.NativeProcessor
	collector *metrics.Collector
}

func newApp(cfg *config.AppConfig, logger logging.Logger) (*app, error) {
	registry := format.DefaultRegistry(
		format.WithLimits(cfg.Limits),
		format.WithEncodeOptions(cfg.Encode),
	)

	resizer, err := processor.NewResizer(cfg.Resize)
	if err != nil {
		return nil, err
	}
	opts := []processor.PipelineOption{
		processor.WithResizer(resizer),
		processor.WithLogger(logger.Named("pipeline")),
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector()
		opts = append(opts, processor.WithObserver(metrics.NewPipelineObserver(collector)))
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		registry:  registry,
		processor: processor.NewNativeProcessor(registry, cfg.Server.MaxBodyBytes, opts...),
		collector: collector,
	}, nil
}
