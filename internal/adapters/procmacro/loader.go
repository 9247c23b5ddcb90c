package procmacro

import (
	"path/filepath"
	"sync"

	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.PluginLoader = (*Loader)(nil)

// Loader opens each plugin library at most once per process, keyed by canonical path.
type Loader struct {
	open func(path string) (vtable, error)

	mu      sync.Mutex
	plugins map[string]*Plugin
}

// NewLoader creates a Loader backed by the system dynamic linker.
func NewLoader() *Loader {
	return &Loader{open: openLibrary, plugins: make(map[string]*Plugin)}
}

// Load returns the plugin at path.
func (l *Loader) Load(path string) (ports.Plugin, error) {
	canonical, err := canonicalPath(path)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if p, ok := l.plugins[canonical]; ok {
		return p, nil
	}

	vt, err := l.open(canonical)
	if err != nil {
		return nil, err
	}
	p, err := newPlugin(canonical, vt)
	if err != nil {
		return nil, err
	}
	l.plugins[canonical] = p
	return p, nil
}

func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to resolve plugin path"), "path", path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return abs, nil
}
