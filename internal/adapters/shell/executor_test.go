package shell_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/scarb/internal/adapters/shell"
	"go.trai.ch/scarb/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func newRunner(t *testing.T) (*shell.Runner, *mocks.MockLogger) {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Debug(gomock.Cond(func(x any) bool {
		s, _ := x.(string)
		return strings.HasPrefix(s, "running: ")
	})).AnyTimes()
	return shell.NewRunner(log), log
}

func TestRunner_MultiLineOutput(t *testing.T) {
	runner, log := newRunner(t)
	log.EXPECT().Debug("line1").Times(1)
	log.EXPECT().Debug("line2").Times(1)

	err := runner.Run(context.Background(), shell.Command{
		Name: "sh",
		Args: []string{"-c", "echo line1; echo line2"},
		Dir:  t.TempDir(),
	})
	require.NoError(t, err)
}

func TestRunner_FragmentedOutput(t *testing.T) {
	runner, log := newRunner(t)
	log.EXPECT().Debug("part1part2").Times(1)

	err := runner.Run(context.Background(), shell.Command{
		Name: "sh",
		Args: []string{"-c", "printf part1; sleep 0.1; echo part2"},
	})
	require.NoError(t, err)
}

func TestRunner_EnvironmentOverridesAndUnset(t *testing.T) {
	t.Setenv("SCARB_TEST_INHERITED", "inherited")
	t.Setenv("SCARB_TEST_REMOVED", "removed")
	runner, _ := newRunner(t)

	out, err := runner.Output(context.Background(), shell.Command{
		Name:  "sh",
		Args:  []string{"-c", `echo "$SCARB_TEST_INHERITED:$SCARB_TEST_REMOVED:$SCARB_TEST_SET"`},
		Env:   map[string]string{"SCARB_TEST_SET": "set"},
		Unset: []string{"SCARB_TEST_REMOVED"},
	})
	require.NoError(t, err)
	assert.Equal(t, "inherited::set\n", string(out))
}

func TestRunner_Stdin(t *testing.T) {
	runner, _ := newRunner(t)

	out, err := runner.Output(context.Background(), shell.Command{
		Name:  "cat",
		Stdin: strings.NewReader(`{"unit":"hello"}`),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"unit":"hello"}`, string(out))
}

func TestRunner_InvalidCommand(t *testing.T) {
	runner, _ := newRunner(t)

	err := runner.Run(context.Background(), shell.Command{Name: "nonexistent-command-xyz123"})
	assert.Error(t, err)
}

func TestRunner_FailureCarriesStderr(t *testing.T) {
	runner, log := newRunner(t)
	log.EXPECT().Debug("fatal: not a git repository").Times(1)

	err := runner.Run(context.Background(), shell.Command{
		Name: "sh",
		Args: []string{"-c", "echo 'fatal: not a git repository' >&2; exit 42"},
	})
	require.Error(t, err)
	assert.ErrorContains(t, err, "fatal: not a git repository")
}

func TestRunner_AbsolutePath(t *testing.T) {
	runner, log := newRunner(t)
	log.EXPECT().Debug("test").Times(1)

	err := runner.Run(context.Background(), shell.Command{Name: "/bin/sh", Args: []string{"-c", "echo test"}})
	require.NoError(t, err)
}

func TestRunner_ContextCancel(t *testing.T) {
	runner, _ := newRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runner.Run(ctx, shell.Command{Name: "sh", Args: []string{"-c", "sleep 5"}})
	assert.Error(t, err)
}
