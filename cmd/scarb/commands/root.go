// Package commands implements the CLI commands for scarb.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.trai.ch/scarb/internal/adapters/config"
	"go.trai.ch/scarb/internal/app"
	"go.trai.ch/scarb/internal/build"
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/engine/tree"
)

// CLI represents the command line interface for scarb.
type CLI struct {
	app     Application
	rootCmd *cobra.Command
}

// Application represents the application logic interface.
type Application interface {
	Config(flags *pflag.FlagSet) (*domain.Config, error)
	Build(ctx context.Context, cfg *domain.Config, opts app.CompileOptions) error
	Check(ctx context.Context, cfg *domain.Config, opts app.CompileOptions) error
	Lint(ctx context.Context, cfg *domain.Config, opts app.CompileOptions) error
	Resolve(ctx context.Context, cfg *domain.Config, opts app.ResolveOptions) error
	Fetch(ctx context.Context, cfg *domain.Config, opts app.ResolveOptions) error
	Metadata(ctx context.Context, cfg *domain.Config, opts app.MetadataOptions) error
	Tree(ctx context.Context, cfg *domain.Config, opts tree.Options) error
	Package(ctx context.Context, cfg *domain.Config, opts app.PackageOptions) error
	Clean(ctx context.Context, cfg *domain.Config, opts app.CleanOptions) error
	ProcMacroServer(ctx context.Context, cfg *domain.Config, in io.Reader, out, status io.Writer) error
}

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	rootCmd := &cobra.Command{
		Use:           "scarb",
		Short:         "The Cairo package manager",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} {{.Version}} (commit: %s, date: %s)\ncairo: %s\n",
		build.Commit,
		build.Date,
		build.CairoVersion,
	))
	// -v is taken by --verbose.
	rootCmd.Flags().BoolP("version", "V", false, "Print the application version")

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	config.RegisterFlags(rootCmd.PersistentFlags())

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	rootCmd.AddCommand(c.newBuildCmd())
	rootCmd.AddCommand(c.newCheckCmd())
	rootCmd.AddCommand(c.newLintCmd())
	rootCmd.AddCommand(c.newResolveCmd())
	rootCmd.AddCommand(c.newFetchCmd())
	rootCmd.AddCommand(c.newMetadataCmd())
	rootCmd.AddCommand(c.newTreeCmd())
	rootCmd.AddCommand(c.newPackageCmd())
	rootCmd.AddCommand(c.newCleanCmd())
	rootCmd.AddCommand(c.newProcMacroServerCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetInput sets the input stream for the root command.
func (c *CLI) SetInput(in io.Reader) {
	c.rootCmd.SetIn(in)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

// config loads the configuration from the parsed flags of cmd, global ones included.
func (c *CLI) config(cmd *cobra.Command) (*domain.Config, error) {
	return c.app.Config(cmd.Flags())
}
