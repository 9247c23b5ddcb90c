package commands

import (
	"context"

	"github.com/spf13/cobra"
	"go.trai.ch/scarb/internal/app"
	"go.trai.ch/scarb/internal/core/domain"
)

const (
	flagTargetKinds        = "target-kinds"
	flagTargetNames        = "target-names"
	flagTest               = "test"
	flagDenyWarnings       = "deny-warnings"
	flagIgnoreCairoVersion = "ignore-cairo-version"
)

type compileFunc func(ctx context.Context, cfg *domain.Config, opts app.CompileOptions) error

func (c *CLI) newBuildCmd() *cobra.Command {
	return c.newCompileCmd("build", "Compile the current project", c.app.Build)
}

func (c *CLI) newCheckCmd() *cobra.Command {
	return c.newCompileCmd("check", "Analyze the current project and report errors, but don't build artifacts", c.app.Check)
}

func (c *CLI) newLintCmd() *cobra.Command {
	return c.newCompileCmd("lint", "Check the current project for common mistakes", c.app.Lint)
}

func (c *CLI) newCompileCmd(use, short string, fn compileFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.config(cmd)
			if err != nil {
				return err
			}
			opts, err := compileOptions(cmd)
			if err != nil {
				return err
			}
			return fn(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().StringSlice(flagTargetKinds, nil, "Specify the target kinds to compile")
	cmd.Flags().StringSlice(flagTargetNames, nil, "Specify the target names to compile")
	cmd.Flags().BoolP(flagTest, "t", false, "Compile test targets")
	cmd.Flags().Bool(flagDenyWarnings, false, "Fail when any compilation unit produced warnings")
	cmd.Flags().Bool(flagIgnoreCairoVersion, false, "Do not error on cairo-version mismatch")
	cmd.MarkFlagsMutuallyExclusive(flagTest, flagTargetKinds)

	return cmd
}

func compileOptions(cmd *cobra.Command) (app.CompileOptions, error) {
	var opts app.CompileOptions

	kinds, err := cmd.Flags().GetStringSlice(flagTargetKinds)
	if err != nil {
		return opts, err
	}
	for _, k := range kinds {
		kind, err := domain.NewTargetKind(k)
		if err != nil {
			return opts, err
		}
		opts.Targets.Kinds = append(opts.Targets.Kinds, kind)
	}
	if test, _ := cmd.Flags().GetBool(flagTest); test {
		opts.Targets.Kinds = []domain.TargetKind{domain.TargetKindTest}
	}

	if opts.Targets.Names, err = cmd.Flags().GetStringSlice(flagTargetNames); err != nil {
		return opts, err
	}
	opts.DenyWarnings, _ = cmd.Flags().GetBool(flagDenyWarnings)
	opts.IgnoreCairoVersion, _ = cmd.Flags().GetBool(flagIgnoreCairoVersion)
	return opts, nil
}
