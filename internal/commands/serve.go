package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leeforge/thumbnailer/cache"
	"github.com/leeforge/thumbnailer/logging"
	"github.com/leeforge/thumbnailer/media/storage"
	"github.com/leeforge/thumbnailer/server"
)

// NewServeCommand creates the serve subcommand.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [flags]",
		Short: "Run the HTTP thumbnail service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.Server.Addr = addr
			}

			logger, err := logging.Init(cfg.Log)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}

			adapter, err := cache.New(ctx, cfg.Cache)
			if err != nil {
				return err
			}
			if adapter != nil {
				defer adapter.Close()
			}

			provider, err := storage.NewProvider(cfg.Storage)
			if err != nil {
				return err
			}
			var publisher *storage.Publisher
			if provider != nil {
				publisher = storage.NewPublisher(provider, a.registry.Extension)
			}

			srv, err := server.New(cfg.Server, a.registry, a.processor,
				server.WithLogger(logger.Named("http")),
				server.WithCache(adapter, cfg.Cache),
				server.WithPublisher(publisher),
				server.WithMetrics(a.collector),
				server.WithEncodeOptions(cfg.Encode),
			)
			if err != nil {
				return err
			}

			logger.Info("thumbnailer starting",
				zap.String("addr", cfg.Server.Addr),
				zap.String("cache", cfg.Cache.Driver),
				zap.String("storage", cfg.Storage.Driver),
				zap.Int64("max_concurrent", cfg.Server.MaxConcurrent),
			)
			return srv.Run(ctx)
		},
	}

	cmd.Flags().String("addr", "", "Listen address, overrides server.addr")

	return cmd
}
