package cmd

import (
	"fmt"

	"github.com/markedit-studio/markedit/internal/config"
	"github.com/markedit-studio/markedit/internal/overlay"
	"github.com/spf13/cobra"
)

func newPresetsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List quick tool presets and marker colors",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Markers:")
			for _, m := range overlay.Palette {
				fmt.Fprintf(out, "  %-7s %-8s %s  %s\n", m.Color, m.Label, m.Hex, m.Description)
			}
			fmt.Fprintln(out, "\nPresets:")
			for _, p := range cfg.Presets {
				fmt.Fprintf(out, "  %-6s %-17s %s\n", p.ID, p.Name, p.Prompt)
			}
			return nil
		},
	}
}
