// Package fingerprint computes cache keys for compilation unit components.
//
// Every component has an id and a digest. The id depends on configuration only and
// names the directory holding the component's cache. The digest additionally covers
// the content of every source file and the digests of all dependencies.
package fingerprint

import (
	"slices"
	"sync"

	"go.trai.ch/scarb/internal/core/domain"
)

type componentKind uint8

const (
	kindLibrary componentKind = iota
	kindPlugin
)

// Component is the fingerprint of one component of a compilation unit.
type Component struct {
	key       domain.ComponentID
	cairoName string
	id        string

	// local is the combined content hash of the component's own files.
	local uint64
	deps  []*Component

	once   sync.Once
	digest string
}

// ID returns the configuration hash of the component.
func (c *Component) ID() string { return c.id }

// DirName returns the name of the cache directory of the component.
func (c *Component) DirName() string { return c.cairoName + "-" + c.id }

// Digest returns the hash of the component's configuration, files and dependencies.
func (c *Component) Digest() string {
	c.once.Do(func() {
		h := domain.NewStableHasher()
		c.writeDigest(h, make(map[domain.ComponentID]bool))
		c.digest = h.ShortHash()
	})
	return c.digest
}

// writeDigest hashes c and its dependency graph. A component reached a second time
// contributes nothing, which makes cycles terminate.
func (c *Component) writeDigest(h *domain.StableHasher, seen map[domain.ComponentID]bool) {
	if seen[c.key] {
		return
	}
	seen[c.key] = true
	h.WriteString(c.id)
	h.WriteUint64(c.local)
	h.WriteUint64(uint64(len(c.deps)))
	for _, dep := range c.deps {
		dep.writeDigest(h, seen)
	}
}

// libraryInputs is the configuration that identifies a library component.
type libraryInputs struct {
	scarbPath            string
	scarbVersion         string
	profile              string
	cairoName            string
	edition              domain.Edition
	discriminator        string
	sourcePaths          []string
	compilerConfig       domain.CompilerConfig
	cfgSet               domain.CfgSet
	experimentalFeatures []string
	dependencies         []string
}

func (in libraryInputs) id() string {
	h := domain.NewStableHasher()
	h.WriteUint64(uint64(kindLibrary))
	h.WriteString(in.scarbPath)
	h.WriteString(in.scarbVersion)
	h.WriteString(in.profile)
	h.WriteString(in.cairoName)
	h.WriteString(string(in.edition))
	h.WriteString(in.discriminator)
	h.WriteStrings(sorted(in.sourcePaths))
	writeCompilerConfig(h, in.compilerConfig)
	h.WriteStrings(in.cfgSet.Strings())
	h.WriteStrings(sorted(in.experimentalFeatures))
	h.WriteStrings(sorted(in.dependencies))
	return h.ShortHash()
}

// pluginInputs is the configuration that identifies a plugin component.
type pluginInputs struct {
	scarbVersion string
	profile      string
	pkg          string
	builtin      bool
	prebuilt     bool
	fingerprint  uint64
}

func (in pluginInputs) id() string {
	h := domain.NewStableHasher()
	h.WriteUint64(uint64(kindPlugin))
	h.WriteString(in.scarbVersion)
	h.WriteString(in.profile)
	h.WriteString(in.pkg)
	h.WriteBool(in.builtin)
	h.WriteBool(in.prebuilt)
	h.WriteUint64(in.fingerprint)
	return h.ShortHash()
}

func writeCompilerConfig(h *domain.StableHasher, cc domain.CompilerConfig) {
	h.WriteBool(cc.SierraReplaceIDs)
	h.WriteBool(cc.EnableGas)
	h.WriteString(cc.InliningStrategy)
	h.WriteBool(cc.PanicBacktrace)
	h.WriteBool(cc.UnsafePanic)
	h.WriteBool(cc.AllowWarnings)
}

func sorted(ss []string) []string {
	out := slices.Clone(ss)
	slices.Sort(out)
	return out
}
