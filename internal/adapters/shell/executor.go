// Package shell runs external programs such as git, the Cairo compiler and cargo.
package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/zerr"
)

// stderrTail bounds how much stderr is kept for error messages.
const stderrTail = 4096

// Command describes one subprocess invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	// Env overrides variables of the inherited environment.
	Env map[string]string
	// Unset removes variables from the inherited environment.
	Unset []string
	Stdin io.Reader
	// Stdout receives standard output; nil streams it to the logger.
	Stdout io.Writer
}

// Runner executes commands with os/exec.
type Runner struct {
	logger ports.Logger
}

// NewRunner creates a Runner.
func NewRunner(logger ports.Logger) *Runner {
	return &Runner{logger: logger}
}

// Run executes cmd and waits for it. Cancelling ctx kills the process.
func (r *Runner) Run(ctx context.Context, cmd Command) error {
	env := resolveEnvironment(os.Environ(), cmd.Env, cmd.Unset)

	// Resolve the executable against the PATH of the new environment.
	executable := cmd.Name
	if !filepath.IsAbs(executable) && !strings.ContainsRune(executable, filepath.Separator) {
		if lp, err := lookPath(executable, env); err == nil {
			executable = lp
		}
	}

	c := exec.CommandContext(ctx, executable, cmd.Args...) //nolint:gosec // commands are built by scarb
	if len(c.Args) > 0 {
		c.Args[0] = cmd.Name
	}
	c.Dir = cmd.Dir
	c.Env = env
	c.Stdin = cmd.Stdin

	stdout := &lineWriter{logger: r.logger}
	stderr := &lineWriter{logger: r.logger, keep: stderrTail}
	c.Stdout = stdout
	if cmd.Stdout != nil {
		c.Stdout = cmd.Stdout
	}
	c.Stderr = stderr

	r.logger.Debug("running: " + strings.Join(append([]string{cmd.Name}, cmd.Args...), " "))
	err := c.Run()
	stdout.Flush()
	stderr.Flush()
	if err == nil {
		return nil
	}

	if errors.Is(err, exec.ErrNotFound) {
		return zerr.With(zerr.Wrap(err, "command not found"), "command", cmd.Name)
	}
	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	msg := "command failed"
	if tail := strings.TrimSpace(stderr.Tail()); tail != "" {
		msg = tail
	}
	return zerr.With(zerr.With(zerr.Wrap(err, msg), "exit_code", exitCode), "command", cmd.Name)
}

// Output executes cmd and returns its standard output.
func (r *Runner) Output(ctx context.Context, cmd Command) ([]byte, error) {
	var buf bytes.Buffer
	cmd.Stdout = &buf
	if err := r.Run(ctx, cmd); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// lineWriter forwards complete lines to the logger and optionally keeps a tail.
type lineWriter struct {
	logger ports.Logger
	keep   int

	mu   sync.Mutex
	buf  []byte
	tail []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.keep > 0 {
		w.tail = append(w.tail, p...)
		if over := len(w.tail) - w.keep; over > 0 {
			w.tail = w.tail[over:]
		}
	}

	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.logger.Debug(string(w.buf[:i]))
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

// Flush logs a trailing partial line.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) > 0 {
		w.logger.Debug(string(w.buf))
		w.buf = nil
	}
}

// Tail returns the kept suffix of everything written.
func (w *lineWriter) Tail() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return string(w.tail)
}

// resolveEnvironment applies overrides and removals to the system environment.
// The result is sorted so child processes see a deterministic environment.
func resolveEnvironment(sysEnv []string, overrides map[string]string, unset []string) []string {
	envMap := make(map[string]string, len(sysEnv)+len(overrides))
	for _, entry := range sysEnv {
		if k, v, ok := strings.Cut(entry, "="); ok {
			envMap[k] = v
		}
	}
	for _, k := range unset {
		delete(envMap, k)
	}
	for k, v := range overrides {
		envMap[k] = v
	}

	result := make([]string, 0, len(envMap))
	for k, v := range envMap {
		result = append(result, k+"="+v)
	}
	slices.Sort(result)
	return result
}

// lookPath searches for an executable in the directories named by the PATH environment variable.
func lookPath(file string, env []string) (string, error) {
	var path string
	for _, e := range env {
		if strings.HasPrefix(e, "PATH=") {
			path = strings.TrimPrefix(e, "PATH=")
			break
		}
	}

	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		path := filepath.Join(dir, file)
		if err := findExecutable(path); err == nil {
			return path, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}
