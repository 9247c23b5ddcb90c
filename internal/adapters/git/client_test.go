package git_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/scarb/internal/adapters/git"
	"go.trai.ch/scarb/internal/adapters/shell"
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func TestRefspecs(t *testing.T) {
	tests := []struct {
		ref   domain.GitReference
		specs []string
		tags  bool
	}{
		{domain.GitReference{Kind: domain.GitBranch, Value: "foo"}, []string{"+refs/heads/foo:refs/remotes/origin/foo"}, false},
		{domain.GitReference{Kind: domain.GitTag, Value: "v1"}, []string{"+refs/tags/v1:refs/remotes/origin/tags/v1"}, false},
		{domain.GitReference{Kind: domain.GitDefaultBranch}, []string{"+HEAD:refs/remotes/origin/HEAD"}, false},
		{domain.GitReference{Kind: domain.GitRev, Value: "refs/pull/1/head"}, []string{"+refs/pull/1/head:refs/pull/1/head"}, false},
		{domain.GitReference{Kind: domain.GitRev, Value: "abc123"}, []string{"+refs/heads/*:refs/remotes/origin/*", "+HEAD:refs/remotes/origin/HEAD"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.ref.String(), func(t *testing.T) {
			specs, tags := git.Refspecs(tt.ref)
			assert.Equal(t, tt.specs, specs)
			assert.Equal(t, tt.tags, tags)
		})
	}
}

// upstream creates a repository with a commit on main and another on branch foo.
func upstream(t *testing.T) (dir, mainCommit, fooCommit string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	dir = t.TempDir()
	gitCmd := func(args ...string) string {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=scarb", "GIT_AUTHOR_EMAIL=scarb@example.com",
			"GIT_COMMITTER_NAME=scarb", "GIT_COMMITTER_EMAIL=scarb@example.com",
		)
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
		return strings.TrimSpace(string(out))
	}

	gitCmd("init", "--quiet", "--initial-branch=main")
	require.NoError(t, os.WriteFile(filepath.Join(dir, domain.ManifestFileName), []byte("[package]\nname = \"dep1\"\nversion = \"0.1.0\"\n"), domain.FilePerm))
	gitCmd("add", ".")
	gitCmd("commit", "--quiet", "-m", "init")
	mainCommit = gitCmd("rev-parse", "HEAD")
	gitCmd("tag", "v0.1.0")

	gitCmd("checkout", "--quiet", "-b", "foo")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("foo\n"), domain.FilePerm))
	gitCmd("add", ".")
	gitCmd("commit", "--quiet", "-m", "foo")
	fooCommit = gitCmd("rev-parse", "HEAD")
	gitCmd("checkout", "--quiet", "main")
	return dir, mainCommit, fooCommit
}

func newClient(t *testing.T) *git.Client {
	t.Helper()
	log := mocks.NewMockLogger(gomock.NewController(t))
	log.EXPECT().Debug(gomock.Any()).AnyTimes()
	return git.NewClient(shell.NewRunner(log))
}

func TestClient_FetchResolveCheckout(t *testing.T) {
	remote, mainCommit, fooCommit := upstream(t)
	t.Setenv("GIT_DIR", "/nonexistent")
	client := newClient(t)
	ctx := context.Background()
	db := filepath.Join(t.TempDir(), "db", "dep1")

	require.NoError(t, client.InitBare(ctx, db))
	require.NoError(t, client.InitBare(ctx, db))

	refs := map[domain.GitReference]string{
		{Kind: domain.GitBranch, Value: "foo"}:         fooCommit,
		{Kind: domain.GitTag, Value: "v0.1.0"}:         mainCommit,
		{Kind: domain.GitDefaultBranch}:                mainCommit,
		{Kind: domain.GitRev, Value: mainCommit}:       mainCommit,
		{Kind: domain.GitRev, Value: "refs/heads/foo"}: fooCommit,
	}
	for ref, want := range refs {
		require.NoError(t, client.Fetch(ctx, db, remote, ref), ref.String())
		got, err := client.ResolveReference(ctx, db, ref)
		require.NoError(t, err, ref.String())
		assert.Equal(t, want, got, ref.String())
	}

	dest := filepath.Join(t.TempDir(), "checkouts", "dep1", fooCommit[:7])
	require.NoError(t, client.Checkout(ctx, db, fooCommit, dest))
	assert.FileExists(t, filepath.Join(dest, domain.ManifestFileName))
	assert.FileExists(t, filepath.Join(dest, "README.md"))
}

func TestClient_ResolveUnknownReference(t *testing.T) {
	remote, _, _ := upstream(t)
	client := newClient(t)
	ctx := context.Background()
	db := filepath.Join(t.TempDir(), "db")
	require.NoError(t, client.InitBare(ctx, db))

	err := client.Fetch(ctx, db, remote, domain.GitReference{Kind: domain.GitBranch, Value: "missing"})
	assert.ErrorContains(t, err, domain.ErrGitCommandFailed.Error())
}
