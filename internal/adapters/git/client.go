// Package git implements ports.GitClient with the git command-line tool.
package git

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.trai.ch/scarb/internal/adapters/shell"
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.GitClient = (*Client)(nil)

var commitPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

// inheritedGitEnv is cleared so that git never operates on a repository
// selected by the parent process.
var inheritedGitEnv = []string{
	"GIT_DIR",
	"GIT_WORK_TREE",
	"GIT_INDEX_FILE",
	"GIT_OBJECT_DIRECTORY",
	"GIT_ALTERNATE_OBJECT_DIRECTORIES",
	"GIT_COMMON_DIR",
	"GIT_CEILING_DIRECTORIES",
}

// Client runs git subprocesses.
type Client struct {
	runner *shell.Runner
	binary string
}

// NewClient creates a Client using the git executable found on PATH.
func NewClient(runner *shell.Runner) *Client {
	return &Client{runner: runner, binary: "git"}
}

// InitBare creates a bare repository at db unless one already exists.
func (c *Client) InitBare(ctx context.Context, db string) error {
	if _, err := os.Stat(filepath.Join(db, "HEAD")); err == nil {
		return nil
	}
	if err := os.MkdirAll(db, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create git database directory"), "path", db)
	}
	return c.run(ctx, "", "init", "--bare", "--quiet", db)
}

// Fetch updates db from remote, forcing fast-forward of the fetched refs.
func (c *Client) Fetch(ctx context.Context, db, remote string, ref domain.GitReference) error {
	refspecs, tags := Refspecs(ref)
	args := []string{"--git-dir", db, "fetch", "--force", "--update-head-ok"}
	if tags {
		args = append(args, "--tags")
	} else {
		args = append(args, "--no-tags")
	}
	args = append(args, remote)
	args = append(args, refspecs...)
	if err := c.run(ctx, "", args...); err != nil {
		return zerr.With(err, "remote", remote)
	}
	return nil
}

// ResolveReference returns the commit a fetched reference points to.
func (c *Client) ResolveReference(ctx context.Context, db string, ref domain.GitReference) (string, error) {
	spec := localRef(ref) + "^0"
	out, err := c.runner.Output(ctx, c.command("", "--git-dir", db, "rev-parse", "--verify", spec))
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, domain.ErrGitCommandFailed.Error()), "reference", ref.String())
	}
	commit := strings.TrimSpace(string(out))
	if !commitPattern.MatchString(commit) {
		return "", zerr.With(zerr.Wrap(domain.ErrGitCommandFailed, "unexpected rev-parse output"), "output", commit)
	}
	return commit, nil
}

// Checkout clones db into dest and resets the working tree to commit.
func (c *Client) Checkout(ctx context.Context, db, commit, dest string) error {
	if err := os.RemoveAll(dest); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to clean checkout directory"), "path", dest)
	}
	if err := os.MkdirAll(filepath.Dir(dest), domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create checkout directory"), "path", dest)
	}
	if err := c.run(ctx, "", "clone", "--local", "--no-checkout", "--quiet", db, dest); err != nil {
		return err
	}
	return c.run(ctx, dest, "reset", "--hard", "--quiet", commit)
}

// Refspecs returns the refspecs to fetch for ref and whether tags are fetched too.
func Refspecs(ref domain.GitReference) ([]string, bool) {
	switch ref.Kind {
	case domain.GitBranch:
		return []string{"+refs/heads/" + ref.Value + ":refs/remotes/origin/" + ref.Value}, false
	case domain.GitTag:
		return []string{"+refs/tags/" + ref.Value + ":refs/remotes/origin/tags/" + ref.Value}, false
	case domain.GitRev:
		if strings.HasPrefix(ref.Value, "refs/") {
			return []string{"+" + ref.Value + ":" + ref.Value}, false
		}
		return []string{"+refs/heads/*:refs/remotes/origin/*", "+HEAD:refs/remotes/origin/HEAD"}, true
	default:
		return []string{"+HEAD:refs/remotes/origin/HEAD"}, false
	}
}

// localRef names the local ref that Fetch stores ref under.
func localRef(ref domain.GitReference) string {
	switch ref.Kind {
	case domain.GitBranch:
		return "refs/remotes/origin/" + ref.Value
	case domain.GitTag:
		return "refs/remotes/origin/tags/" + ref.Value
	case domain.GitRev:
		return ref.Value
	default:
		return "refs/remotes/origin/HEAD"
	}
}

func (c *Client) command(dir string, args ...string) shell.Command {
	return shell.Command{
		Name:  c.binary,
		Args:  args,
		Dir:   dir,
		Unset: inheritedGitEnv,
		Env:   map[string]string{"GIT_TERMINAL_PROMPT": "0"},
	}
}

func (c *Client) run(ctx context.Context, dir string, args ...string) error {
	if err := c.runner.Run(ctx, c.command(dir, args...)); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrGitCommandFailed.Error()), "args", strings.Join(args, " "))
	}
	return nil
}
