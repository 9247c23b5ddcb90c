// Package compiler runs the Cairo compiler as an external process.
package compiler

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"

	"go.trai.ch/scarb/internal/adapters/shell"
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/zerr"
)

// DefaultBinary is looked up on PATH when no compiler path is configured.
const DefaultBinary = "cairo-compile-unit"

var _ ports.Compiler = (*Exec)(nil)

// Exec compiles units by piping the JSON request into the compiler binary
// and decoding the JSON result from its standard output.
type Exec struct {
	runner *shell.Runner
	binary string
}

// Factory creates compilers for a configuration.
type Factory struct {
	runner *shell.Runner
}

// NewFactory creates a Factory.
func NewFactory(runner *shell.Runner) *Factory {
	return &Factory{runner: runner}
}

// For returns the compiler selected by cfg.
func (f *Factory) For(cfg *domain.Config) (*Exec, error) {
	return New(f.runner, cfg.CompilerPath)
}

// New creates an Exec for binary, falling back to DefaultBinary on PATH.
func New(runner *shell.Runner, binary string) (*Exec, error) {
	if binary == "" {
		path, err := exec.LookPath(DefaultBinary)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(domain.ErrCompilerNotFound, err.Error()), "hint", "set "+domain.EnvCairoCompiler)
		}
		binary = path
	}
	return &Exec{runner: runner, binary: binary}, nil
}

// Compile runs the compiler on one unit.
func (e *Exec) Compile(ctx context.Context, req *domain.CompileRequest) (*domain.CompileResult, error) {
	input, err := json.Marshal(req)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to encode compile request")
	}

	out, err := e.runner.Output(ctx, shell.Command{
		Name:  e.binary,
		Args:  []string{"--json"},
		Stdin: bytes.NewReader(input),
	})
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrCompilationFailed.Error()), "unit", req.UnitID)
	}

	var result domain.CompileResult
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to decode compiler output"), "unit", req.UnitID)
	}
	return &result, nil
}
