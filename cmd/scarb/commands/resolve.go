package commands

import (
	"context"

	"github.com/spf13/cobra"
	"go.trai.ch/scarb/internal/app"
	"go.trai.ch/scarb/internal/core/domain"
)

const (
	flagUpdate        = "update"
	flagUpdatePackage = "update-package"
)

type resolveFunc func(ctx context.Context, cfg *domain.Config, opts app.ResolveOptions) error

func (c *CLI) newResolveCmd() *cobra.Command {
	return c.newLockCmd("resolve", "Resolve dependencies and write Scarb.lock", c.app.Resolve)
}

func (c *CLI) newFetchCmd() *cobra.Command {
	return c.newLockCmd("fetch", "Fetch dependencies of packages from the network", c.app.Fetch)
}

func (c *CLI) newLockCmd(use, short string, fn resolveFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.config(cmd)
			if err != nil {
				return err
			}
			var opts app.ResolveOptions
			opts.Update.All, _ = cmd.Flags().GetBool(flagUpdate)
			names, err := cmd.Flags().GetStringSlice(flagUpdatePackage)
			if err != nil {
				return err
			}
			for _, n := range names {
				name, err := domain.NewPackageName(n)
				if err != nil {
					return err
				}
				opts.Update.Packages = append(opts.Update.Packages, name)
			}
			return fn(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().Bool(flagUpdate, false, "Ignore Scarb.lock and resolve every dependency anew")
	cmd.Flags().StringSlice(flagUpdatePackage, nil, "Unlock the named packages in Scarb.lock")
	cmd.MarkFlagsMutuallyExclusive(flagUpdate, flagUpdatePackage)

	return cmd
}
