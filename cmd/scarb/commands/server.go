package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newProcMacroServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "proc-macro-server",
		Short: "Serve procedural macro expansions over stdin and stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.config(cmd)
			if err != nil {
				return err
			}
			return c.app.ProcMacroServer(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}
