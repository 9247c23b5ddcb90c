// Package fs provides file system adapters for walking and hashing files.
package fs

import (
	"io/fs"
	"iter"
	"path/filepath"
	"strings"
)

// Walker provides file walking functionality.
type Walker struct{}

// NewWalker creates a new Walker.
func NewWalker() *Walker {
	return &Walker{}
}

// WalkFiles yields every regular file under root in lexical order.
// Hidden directories and entries whose name matches one of ignores are skipped.
func (w *Walker) WalkFiles(root string, ignores []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path == root {
				return nil
			}

			if w.ignored(d, ignores) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if !d.Type().IsRegular() {
				return nil
			}

			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

// WalkExtension yields files under root whose name ends with ext.
func (w *Walker) WalkExtension(root, ext string, ignores []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for path := range w.WalkFiles(root, ignores) {
			if !strings.HasSuffix(path, ext) {
				continue
			}
			if !yield(path) {
				return
			}
		}
	}
}

func (w *Walker) ignored(d fs.DirEntry, ignores []string) bool {
	name := d.Name()
	if d.IsDir() && strings.HasPrefix(name, ".") {
		return true
	}
	for _, ignore := range ignores {
		if matched, _ := filepath.Match(ignore, name); matched {
			return true
		}
	}
	return false
}
