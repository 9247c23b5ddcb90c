//go:build !(darwin || freebsd || linux || netbsd)

package procmacro

import (
	"runtime"

	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/zerr"
)

func openLibrary(path string) (vtable, error) {
	return vtable{}, zerr.With(zerr.With(zerr.Wrap(domain.ErrPluginLoadFailed, "dynamic plugins are not supported on this platform"), "os", runtime.GOOS), "path", path)
}
