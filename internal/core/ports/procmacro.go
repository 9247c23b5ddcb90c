package ports

import (
	"context"

	"go.trai.ch/scarb/internal/core/domain"
)

//go:generate mockgen -source=procmacro.go -destination=mocks/mock_procmacro.go -package=mocks

// ExpandRequest is a single call into a plugin.
type ExpandRequest struct {
	Kind     domain.ExpansionKind
	Name     string
	CallSite domain.TextSpan
	Args     domain.TokenStream
	Item     domain.TokenStream
}

// Plugin is a loaded procedural macro library.
type Plugin interface {
	// Path is the canonical path of the shared library.
	Path() string
	// ABIVersion is 1 or 2.
	ABIVersion() uint32
	// Expansions lists the operations the plugin exposes.
	Expansions() []domain.Expansion
	// Expand runs one expansion.
	Expand(req ExpandRequest) (*domain.ProcMacroResult, error)
	// PostProcess is called once per unit after compilation.
	PostProcess(ctx domain.PostProcessContext) error
	// Doc returns documentation for an expansion, if any.
	Doc(name string) (string, bool)
	// Fingerprint is a plugin-defined value mixed into component digests. Zero for ABI v1.
	Fingerprint() uint64
}

// PluginLoader opens plugin libraries.
type PluginLoader interface {
	Load(path string) (Plugin, error)
}

// PluginBuilder produces shared libraries for procedural macro packages.
type PluginBuilder interface {
	// Build compiles the unit and returns the library path.
	Build(ctx context.Context, unit *domain.ProcMacroCompilationUnit) (string, error)
	// LibraryPath returns where Build puts the library, or the prebuilt path.
	LibraryPath(unit *domain.ProcMacroCompilationUnit) (string, error)
}
