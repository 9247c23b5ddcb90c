package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/scarb/internal/app"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove generated artifacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.config(cmd)
			if err != nil {
				return err
			}
			cache, _ := cmd.Flags().GetBool("cache")
			return c.app.Clean(cmd.Context(), cfg, app.CleanOptions{Cache: cache})
		},
	}

	cmd.Flags().Bool("cache", false, "Also remove the global package cache")

	return cmd
}
