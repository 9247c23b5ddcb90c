package compiler_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/scarb/internal/adapters/compiler"
	"go.trai.ch/scarb/internal/adapters/shell"
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func fakeCompiler(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	path := filepath.Join(t.TempDir(), "cairo-compile-unit")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o700))
	return path
}

func newRunner(t *testing.T) *shell.Runner {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Debug(gomock.Any()).AnyTimes()
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	return shell.NewRunner(log)
}

func TestExec_Compile(t *testing.T) {
	reqFile := filepath.Join(t.TempDir(), "req.json")
	bin := fakeCompiler(t, `cat > "`+reqFile+`"
echo '{"diagnostics":[{"message":"unused variable","severity":"warning"}],"artifacts":[{"name":"hello.sierra.json","content":"e30="}]}'
`)

	c, err := compiler.New(newRunner(t), bin)
	require.NoError(t, err)

	res, err := c.Compile(context.Background(), &domain.CompileRequest{UnitID: "hello", MainCrate: "hello"})
	require.NoError(t, err)
	assert.False(t, res.HasErrors())
	require.Len(t, res.Warnings(), 1)
	require.Len(t, res.Artifacts, 1)
	assert.Equal(t, "{}", string(res.Artifacts[0].Content))

	sent, err := os.ReadFile(reqFile)
	require.NoError(t, err)
	assert.Contains(t, string(sent), `"unit_id":"hello"`)
}

func TestExec_CompilerFails(t *testing.T) {
	bin := fakeCompiler(t, "echo boom >&2\nexit 3\n")
	c, err := compiler.New(newRunner(t), bin)
	require.NoError(t, err)

	_, err = c.Compile(context.Background(), &domain.CompileRequest{UnitID: "hello"})
	assert.ErrorContains(t, err, domain.ErrCompilationFailed.Error())
}

func TestExec_GarbageOutput(t *testing.T) {
	bin := fakeCompiler(t, "cat >/dev/null\necho not-json\n")
	c, err := compiler.New(newRunner(t), bin)
	require.NoError(t, err)

	_, err = c.Compile(context.Background(), &domain.CompileRequest{UnitID: "hello"})
	assert.ErrorContains(t, err, "failed to decode compiler output")
}

func TestNew_NotFound(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	_, err := compiler.New(newRunner(t), "")
	assert.ErrorContains(t, err, domain.ErrCompilerNotFound.Error())
}
