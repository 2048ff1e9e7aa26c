package cmd

import (
	"fmt"

	"github.com/markedit-studio/markedit/internal/discovery"
	"github.com/spf13/cobra"
)

func newDiscoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Find Markedit servers advertised on the local network",
		RunE: func(cmd *cobra.Command, args []string) error {
			found := 0
			err := discovery.Browse(func(addr string) {
				found++
				fmt.Fprintf(cmd.OutOrStdout(), "http://%s\n", addr)
			})
			if err != nil {
				return fmt.Errorf("mDNS lookup failed: %w", err)
			}
			if found == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No servers found")
			}
			return nil
		},
	}
}
