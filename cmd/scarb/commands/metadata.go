package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/scarb/internal/app"
)

const (
	flagFormatVersion = "format-version"
	flagNoDeps        = "no-deps"
)

func (c *CLI) newMetadataCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Output the resolved dependencies of a project in a machine-readable format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.config(cmd)
			if err != nil {
				return err
			}
			formatVersion, err := cmd.Flags().GetInt(flagFormatVersion)
			if err != nil {
				return err
			}
			noDeps, _ := cmd.Flags().GetBool(flagNoDeps)
			return c.app.Metadata(cmd.Context(), cfg, app.MetadataOptions{
				FormatVersion: formatVersion,
				NoDeps:        noDeps,
			})
		},
	}

	cmd.Flags().Int(flagFormatVersion, 0, "Format version of the output")
	cmd.Flags().Bool(flagNoDeps, false, "Output information only about the workspace members and don't fetch dependencies")
	_ = cmd.MarkFlagRequired(flagFormatVersion)

	return cmd
}
