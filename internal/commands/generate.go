package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leeforge/thumbnailer/logging"
	"github.com/leeforge/thumbnailer/media/format"
	"github.com/leeforge/thumbnailer/media/processor"
)

// NewGenerateCommand creates the generate subcommand, which writes one
// file per preset next to --out.
func NewGenerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "generate [flags] file",
		Aliases: []string{"gen"},
		Short:   "Create thumbnails for an image file",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("quality") {
				cfg.Encode.Quality, _ = flags.GetInt("quality")
			}

			presetList, _ := flags.GetString("presets")
			if presetList == "" {
				presetList = cfg.Server.DefaultPresets
			}
			presets, err := processor.ParsePresets(presetList)
			if err != nil {
				return err
			}
			targetName, _ := flags.GetString("target")
			if targetName == "" {
				targetName = cfg.Server.DefaultTarget
			}
			sourceName, _ := flags.GetString("source")
			out, _ := flags.GetString("out")

			logger, err := logging.Init(cfg.Log)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}

			path := args[0]
			thumbs, err := a.processor.ProcessFile(cmd.Context(), path, format.Parse(sourceName), format.Parse(targetName), presets)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(out, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			for _, thumb := range thumbs {
				name := filepath.Join(out, thumbnailFileName(base, thumb, a.registry.Extension(thumb.Format)))
				if err := os.WriteFile(name, thumb.Data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", name, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s %4dx%-4d %s\n", thumb.Preset.Name, thumb.Width(), thumb.Height(), name)
			}
			return nil
		},
	}

	cmd.Flags().StringP("presets", "p", "", "Comma separated presets, e.g. small,large,200x100 (default server.default-presets)")
	cmd.Flags().StringP("target", "t", "", "Output media type (default server.default-target)")
	cmd.Flags().StringP("source", "s", "", "Input media type, sniffed when empty")
	cmd.Flags().StringP("out", "o", ".", "Output directory")
	cmd.Flags().IntP("quality", "q", 0, "Encoder quality 1-100 for lossy formats")

	return cmd
}

func thumbnailFileName(base string, thumb processor.Thumbnail, ext string) string {
	if ext == "" {
		ext = ".bin"
	}
	return base + "_" + thumb.Preset.Name + ext
}
