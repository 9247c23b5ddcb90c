package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/engine/tree"
)

func (c *CLI) newTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Display a tree visualization of the dependency graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.config(cmd)
			if err != nil {
				return err
			}
			opts := tree.Options{}
			if opts.Depth, err = cmd.Flags().GetInt("depth"); err != nil {
				return err
			}
			opts.Core, _ = cmd.Flags().GetBool("core")
			opts.NoDedupe, _ = cmd.Flags().GetBool("no-dedupe")
			prune, err := cmd.Flags().GetStringSlice("prune")
			if err != nil {
				return err
			}
			for _, p := range prune {
				name, err := domain.NewPackageName(p)
				if err != nil {
					return err
				}
				opts.Prune = append(opts.Prune, name)
			}
			return c.app.Tree(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().Int("depth", tree.Unlimited, "Maximum display depth of the dependency tree")
	cmd.Flags().Bool("core", false, "Show the core package")
	cmd.Flags().Bool("no-dedupe", false, "Do not de-duplicate repeated dependencies")
	cmd.Flags().StringSlice("prune", nil, "Prune the given packages from the display")

	return cmd
}
