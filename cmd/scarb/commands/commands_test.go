package commands_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/scarb/cmd/scarb/commands"
	"go.trai.ch/scarb/internal/app"
	"go.trai.ch/scarb/internal/build"
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/engine/tree"
)

type mockApp struct {
	configFunc   func(flags *pflag.FlagSet) (*domain.Config, error)
	compileFunc  func(op string, opts app.CompileOptions) error
	resolveFunc  func(op string, opts app.ResolveOptions) error
	metadataFunc func(opts app.MetadataOptions) error
	treeFunc     func(opts tree.Options) error
	packageFunc  func(opts app.PackageOptions) error
	cleanFunc    func(opts app.CleanOptions) error
	serverFunc   func(in io.Reader, out, status io.Writer) error
}

func (m *mockApp) Config(flags *pflag.FlagSet) (*domain.Config, error) {
	if m.configFunc != nil {
		return m.configFunc(flags)
	}
	return &domain.Config{}, nil
}

func (m *mockApp) compile(op string, opts app.CompileOptions) error {
	if m.compileFunc != nil {
		return m.compileFunc(op, opts)
	}
	return nil
}

func (m *mockApp) Build(_ context.Context, _ *domain.Config, opts app.CompileOptions) error {
	return m.compile("build", opts)
}

func (m *mockApp) Check(_ context.Context, _ *domain.Config, opts app.CompileOptions) error {
	return m.compile("check", opts)
}

func (m *mockApp) Lint(_ context.Context, _ *domain.Config, opts app.CompileOptions) error {
	return m.compile("lint", opts)
}

func (m *mockApp) resolve(op string, opts app.ResolveOptions) error {
	if m.resolveFunc != nil {
		return m.resolveFunc(op, opts)
	}
	return nil
}

func (m *mockApp) Resolve(_ context.Context, _ *domain.Config, opts app.ResolveOptions) error {
	return m.resolve("resolve", opts)
}

func (m *mockApp) Fetch(_ context.Context, _ *domain.Config, opts app.ResolveOptions) error {
	return m.resolve("fetch", opts)
}

func (m *mockApp) Metadata(_ context.Context, _ *domain.Config, opts app.MetadataOptions) error {
	if m.metadataFunc != nil {
		return m.metadataFunc(opts)
	}
	return nil
}

func (m *mockApp) Tree(_ context.Context, _ *domain.Config, opts tree.Options) error {
	if m.treeFunc != nil {
		return m.treeFunc(opts)
	}
	return nil
}

func (m *mockApp) Package(_ context.Context, _ *domain.Config, opts app.PackageOptions) error {
	if m.packageFunc != nil {
		return m.packageFunc(opts)
	}
	return nil
}

func (m *mockApp) Clean(_ context.Context, _ *domain.Config, opts app.CleanOptions) error {
	if m.cleanFunc != nil {
		return m.cleanFunc(opts)
	}
	return nil
}

func (m *mockApp) ProcMacroServer(_ context.Context, _ *domain.Config, in io.Reader, out, status io.Writer) error {
	if m.serverFunc != nil {
		return m.serverFunc(in, out, status)
	}
	return nil
}

func execute(t *testing.T, mock *mockApp, args ...string) (string, error) {
	t.Helper()
	cli := commands.New(mock)
	cli.SetArgs(args)
	buf := new(bytes.Buffer)
	cli.SetOutput(buf, buf)
	err := cli.Execute(context.Background())
	return buf.String(), err
}

func TestCommands_Compile(t *testing.T) {
	for _, op := range []string{"build", "check", "lint"} {
		t.Run(op, func(t *testing.T) {
			var gotOp string
			var got app.CompileOptions
			mock := &mockApp{
				compileFunc: func(op string, opts app.CompileOptions) error {
					gotOp = op
					got = opts
					return nil
				},
			}

			_, err := execute(t, mock, op,
				"--target-kinds", "lib,starknet-contract",
				"--target-names", "hello",
				"--deny-warnings",
				"--ignore-cairo-version",
			)
			require.NoError(t, err)
			assert.Equal(t, op, gotOp)
			assert.Equal(t, []domain.TargetKind{domain.TargetKindLib, domain.TargetKindStarknetContract}, got.Targets.Kinds)
			assert.Equal(t, []string{"hello"}, got.Targets.Names)
			assert.True(t, got.DenyWarnings)
			assert.True(t, got.IgnoreCairoVersion)
		})
	}

	t.Run("test flag selects test targets", func(t *testing.T) {
		var got app.CompileOptions
		mock := &mockApp{
			compileFunc: func(_ string, opts app.CompileOptions) error {
				got = opts
				return nil
			},
		}

		_, err := execute(t, mock, "build", "--test")
		require.NoError(t, err)
		assert.Equal(t, []domain.TargetKind{domain.TargetKindTest}, got.Targets.Kinds)
	})

	t.Run("rejects unknown target kind", func(t *testing.T) {
		mock := &mockApp{
			compileFunc: func(string, app.CompileOptions) error {
				panic("should not be called")
			},
		}

		_, err := execute(t, mock, "build", "--target-kinds", "bogus")
		require.ErrorIs(t, err, domain.ErrInvalidTargetKind)
	})

	t.Run("returns error on build failure", func(t *testing.T) {
		mock := &mockApp{
			compileFunc: func(string, app.CompileOptions) error {
				return errors.New("simulated error")
			},
		}

		_, err := execute(t, mock, "build")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "simulated error")
	})
}

func TestCommands_Config(t *testing.T) {
	t.Run("global flags reach the loader", func(t *testing.T) {
		var release bool
		var pkg string
		mock := &mockApp{
			configFunc: func(flags *pflag.FlagSet) (*domain.Config, error) {
				release, _ = flags.GetBool("release")
				pkg, _ = flags.GetString("package")
				return &domain.Config{}, nil
			},
		}

		_, err := execute(t, mock, "--release", "build", "-p", "hello")
		require.NoError(t, err)
		assert.True(t, release)
		assert.Equal(t, "hello", pkg)
	})

	t.Run("verbose shorthand does not clash with version", func(t *testing.T) {
		var verbose bool
		called := false
		mock := &mockApp{
			configFunc: func(flags *pflag.FlagSet) (*domain.Config, error) {
				verbose, _ = flags.GetBool("verbose")
				return &domain.Config{}, nil
			},
			compileFunc: func(string, app.CompileOptions) error {
				called = true
				return nil
			},
		}

		_, err := execute(t, mock, "build", "-v")
		require.NoError(t, err)
		assert.True(t, verbose)
		assert.True(t, called)
	})

	t.Run("returns loader error", func(t *testing.T) {
		mock := &mockApp{
			configFunc: func(*pflag.FlagSet) (*domain.Config, error) {
				return nil, errors.New("bad config")
			},
			compileFunc: func(string, app.CompileOptions) error {
				panic("should not be called")
			},
		}

		_, err := execute(t, mock, "check")
		require.EqualError(t, err, "bad config")
	})
}

func TestCommands_Resolve(t *testing.T) {
	t.Run("fetch with update", func(t *testing.T) {
		var gotOp string
		var got app.ResolveOptions
		mock := &mockApp{
			resolveFunc: func(op string, opts app.ResolveOptions) error {
				gotOp = op
				got = opts
				return nil
			},
		}

		_, err := execute(t, mock, "fetch", "--update")
		require.NoError(t, err)
		assert.Equal(t, "fetch", gotOp)
		assert.True(t, got.Update.All)
	})

	t.Run("resolve with unlocked packages", func(t *testing.T) {
		var got app.ResolveOptions
		mock := &mockApp{
			resolveFunc: func(_ string, opts app.ResolveOptions) error {
				got = opts
				return nil
			},
		}

		_, err := execute(t, mock, "resolve", "--update-package", "foo,bar")
		require.NoError(t, err)
		require.Len(t, got.Update.Packages, 2)
		assert.Equal(t, "foo", got.Update.Packages[0].String())
		assert.Equal(t, "bar", got.Update.Packages[1].String())
	})

	t.Run("update flags are exclusive", func(t *testing.T) {
		_, err := execute(t, &mockApp{}, "fetch", "--update", "--update-package", "foo")
		require.Error(t, err)
	})
}

func TestCommands_Metadata(t *testing.T) {
	t.Run("wires flags correctly", func(t *testing.T) {
		var got app.MetadataOptions
		mock := &mockApp{
			metadataFunc: func(opts app.MetadataOptions) error {
				got = opts
				return nil
			},
		}

		_, err := execute(t, mock, "metadata", "--format-version", "1", "--no-deps")
		require.NoError(t, err)
		assert.Equal(t, app.MetadataOptions{FormatVersion: 1, NoDeps: true}, got)
	})

	t.Run("requires format version", func(t *testing.T) {
		mock := &mockApp{
			metadataFunc: func(app.MetadataOptions) error {
				panic("should not be called")
			},
		}

		_, err := execute(t, mock, "metadata")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "format-version")
	})
}

func TestCommands_Tree(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		var got tree.Options
		mock := &mockApp{
			treeFunc: func(opts tree.Options) error {
				got = opts
				return nil
			},
		}

		_, err := execute(t, mock, "tree")
		require.NoError(t, err)
		assert.Equal(t, tree.Unlimited, got.Depth)
		assert.False(t, got.Core)
	})

	t.Run("wires flags correctly", func(t *testing.T) {
		var got tree.Options
		mock := &mockApp{
			treeFunc: func(opts tree.Options) error {
				got = opts
				return nil
			},
		}

		_, err := execute(t, mock, "tree", "--depth", "2", "--core", "--no-dedupe", "--prune", "foo")
		require.NoError(t, err)
		assert.Equal(t, 2, got.Depth)
		assert.True(t, got.Core)
		assert.True(t, got.NoDedupe)
		require.Len(t, got.Prune, 1)
		assert.Equal(t, "foo", got.Prune[0].String())
	})
}

func TestCommands_Package(t *testing.T) {
	var got app.PackageOptions
	called := false
	mock := &mockApp{
		packageFunc: func(opts app.PackageOptions) error {
			got = opts
			called = true
			return nil
		},
	}

	_, err := execute(t, mock, "package", "--list")
	require.NoError(t, err)
	assert.True(t, called)
	assert.True(t, got.List)
}

func TestCommands_Clean(t *testing.T) {
	t.Run("wires flags correctly", func(t *testing.T) {
		var got app.CleanOptions
		mock := &mockApp{
			cleanFunc: func(opts app.CleanOptions) error {
				got = opts
				return nil
			},
		}

		_, err := execute(t, mock, "clean", "--cache")
		require.NoError(t, err)
		assert.True(t, got.Cache)
	})

	t.Run("returns error on clean failure", func(t *testing.T) {
		mock := &mockApp{
			cleanFunc: func(app.CleanOptions) error {
				return errors.New("simulated error")
			},
		}

		_, err := execute(t, mock, "clean")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "simulated error")
	})
}

func TestCommands_ProcMacroServer(t *testing.T) {
	mock := &mockApp{
		serverFunc: func(in io.Reader, out, _ io.Writer) error {
			_, err := io.Copy(out, in)
			return err
		},
	}

	cli := commands.New(mock)
	cli.SetArgs([]string{"proc-macro-server"})
	cli.SetInput(strings.NewReader("ping\n"))
	out := new(bytes.Buffer)
	cli.SetOutput(out, new(bytes.Buffer))

	require.NoError(t, cli.Execute(context.Background()))
	assert.Equal(t, "ping\n", out.String())
}

func TestCommands_Version(t *testing.T) {
	t.Run("version command", func(t *testing.T) {
		out, err := execute(t, &mockApp{}, "version")
		require.NoError(t, err)
		assert.Contains(t, out, "scarb "+build.Version)
		assert.Contains(t, out, "cairo: "+build.CairoVersion)
	})

	t.Run("version flag", func(t *testing.T) {
		out, err := execute(t, &mockApp{}, "--version")
		require.NoError(t, err)
		assert.Contains(t, out, "scarb "+build.Version)
		assert.Contains(t, out, "commit: "+build.Commit)
	})

	t.Run("version shorthand", func(t *testing.T) {
		out, err := execute(t, &mockApp{}, "-V")
		require.NoError(t, err)
		assert.Contains(t, out, "scarb "+build.Version)
	})
}

func TestCommands_UnknownCommand(t *testing.T) {
	_, err := execute(t, &mockApp{}, "bogus")
	require.Error(t, err)
}
