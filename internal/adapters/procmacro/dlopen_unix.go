//go:build darwin || freebsd || linux || netbsd

package procmacro

import (
	"unsafe"

	"github.com/ebitengine/purego"
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/zerr"
)

// openLibrary dlopens path and binds the plugin entry points.
// The library stays loaded for the lifetime of the process.
func openLibrary(path string) (vtable, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return vtable{}, zerr.With(zerr.Wrap(err, domain.ErrPluginLoadFailed.Error()), "path", path)
	}

	var (
		abiVersion  func() uint32
		list        func() uintptr
		expand      func(kind, name, callSite, args, item string) uintptr
		postProcess func(context string) uintptr
		doc         func(name string) uintptr
		free        func(ptr uintptr)
		fingerprint func() uint64
	)
	for _, b := range []struct {
		name string
		fn   any
	}{
		{symABIVersion, &abiVersion},
		{symListExpansions, &list},
		{symExpand, &expand},
		{symPostProcess, &postProcess},
		{symDoc, &doc},
		{symFree, &free},
	} {
		ptr, err := purego.Dlsym(handle, b.name)
		if err != nil {
			_ = purego.Dlclose(handle)
			return vtable{}, zerr.With(zerr.With(zerr.Wrap(domain.ErrPluginSymbolMissing, ""), "symbol", b.name), "path", path)
		}
		purego.RegisterFunc(b.fn, ptr)
	}

	// take copies a plugin-owned string and hands it back to the plugin allocator.
	take := func(ptr uintptr) (string, bool) {
		if ptr == 0 {
			return "", false
		}
		s := cString(ptr)
		free(ptr)
		return s, true
	}

	vt := vtable{
		abiVersion: abiVersion,
		listExpansions: func() string {
			s, _ := take(list())
			return s
		},
		expand: func(kind, name, callSite, args, item string) string {
			s, _ := take(expand(kind, name, callSite, args, item))
			return s
		},
		postProcess: func(context string) string {
			s, _ := take(postProcess(context))
			return s
		},
		doc: func(name string) (string, bool) {
			return take(doc(name))
		},
	}
	if ptr, err := purego.Dlsym(handle, symFingerprint); err == nil {
		purego.RegisterFunc(&fingerprint, ptr)
		vt.fingerprint = fingerprint
	}
	return vt, nil
}

// cString copies the NUL-terminated string at ptr.
func cString(ptr uintptr) string {
	p := unsafe.Pointer(ptr) //nolint:govet // Memory is owned by the plugin
	n := 0
	for *(*byte)(unsafe.Add(p, n)) != 0 {
		n++
	}
	return string(unsafe.Slice((*byte)(p), n))
}
