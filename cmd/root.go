package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd(version string) *cobra.Command {
	var logLevel string
	var configPath string

	cmd := &cobra.Command{
		Use:   "markedit",
		Short: "Marker-guided AI photo editing",
		Long: `Markedit turns colored freehand marks on a photo into an edit request for a
multimodal image-generation model.

Red marks an area to modify, blue an area to protect, green an area to enhance
and yellow an area open to creative suggestions. The marks are composited onto
a full resolution copy of the photo and sent with the original, any reference
images and your instruction.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			if logLevel == "" {
				logLevel = os.Getenv("LOG_LEVEL")
			}
			if configPath == "" {
				configPath = os.Getenv("MARKEDIT_CONFIG")
			}
			return setupLogging(logLevel)
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file with model settings and presets")

	// Add subcommands
	cmd.AddCommand(newServeCmd(version, &configPath))
	cmd.AddCommand(newEditCmd(&configPath))
	cmd.AddCommand(newPresetsCmd(&configPath))
	cmd.AddCommand(newDiscoverCmd())

	return cmd
}

func setupLogging(level string) error {
	var l slog.Level
	switch strings.ToLower(level) {
	case "", "info":
		l = slog.LevelInfo
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return fmt.Errorf("unknown log level %q", level)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
	return nil
}
