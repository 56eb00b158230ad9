// Package commands implements the thumbnailer command line.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/leeforge/thumbnailer/config"
)

// NewRootCommand creates the root command and registers every subcommand.
func NewRootCommand(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "thumbnailer [flags] command [flags]",
		Short:         "Thumbnail generation service",
		Long:          `Decodes images, scales them down to fixed presets and re-encodes them, as an HTTP service or one file at a time.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "Directory holding config.yaml and its overlays (default $CONFIG_PATH or ./config)")

	root.AddCommand(NewServeCommand(), NewGenerateCommand(), NewEncryptLoopCommand())

	return root
}

// loadConfig reads the application config from the --config directory.
func loadConfig(cmd *cobra.Command) (*config.AppConfig, error) {
	opts := config.DefaultConfigOptions()
	if dir, _ := cmd.Flags().GetString("config"); dir != "" {
		opts.BasePath = dir
	}
	cfg, _, err := config.Load(opts)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
