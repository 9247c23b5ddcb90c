package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/scarb/internal/app"
)

func (c *CLI) newPackageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "package",
		Short: "Assemble the local package into a distributable tarball",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.config(cmd)
			if err != nil {
				return err
			}
			list, _ := cmd.Flags().GetBool("list")
			return c.app.Package(cmd.Context(), cfg, app.PackageOptions{List: list})
		},
	}

	cmd.Flags().BoolP("list", "l", false, "Print files included in a package without making one")

	return cmd
}
