// Package manifest reads Scarb.toml files into domain packages and workspaces.
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"

	"github.com/pelletier/go-toml/v2"
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.ManifestLoader = (*Loader)(nil)

// Loader implements ports.ManifestLoader.
type Loader struct {
	logger ports.Logger
}

// NewLoader creates a Loader.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{logger: logger}
}

// LoadWorkspace loads the workspace containing the manifest at manifestPath.
func (l *Loader) LoadWorkspace(manifestPath string) (*domain.Workspace, error) {
	if manifestPath == "" {
		return nil, domain.ErrManifestNotFound
	}
	manifestPath, err := filepath.Abs(manifestPath)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to resolve manifest path")
	}

	m, err := readManifest(manifestPath)
	if err != nil {
		return nil, err
	}

	if m.Package == nil && m.Workspace == nil {
		return nil, parseFailed(zerr.Wrap(domain.ErrManifestInvalid, "no `package` section found"), manifestPath)
	}

	rootPath, root := manifestPath, m
	if m.Workspace == nil {
		if p, r, ok := l.findWorkspaceRoot(manifestPath); ok {
			rootPath, root = p, r
		}
	}

	ws, err := l.buildWorkspace(rootPath, root)
	if err != nil {
		return nil, zerr.With(err, "workspace", rootPath)
	}
	return ws, nil
}

// ReadPackage loads a single package manifest. Workspace inheritance is resolved
// against the nearest enclosing workspace manifest.
func (l *Loader) ReadPackage(manifestPath string, source domain.SourceID) (*domain.Package, error) {
	m, err := readManifest(manifestPath)
	if err != nil {
		return nil, err
	}

	var ws *workspaceContext
	switch {
	case m.Workspace != nil:
		ws = &workspaceContext{manifestPath: manifestPath, toml: m.Workspace}
	default:
		if p, r, ok := l.findWorkspaceRoot(manifestPath); ok {
			ws = &workspaceContext{manifestPath: p, toml: r.Workspace}
		}
	}

	pkg, err := toPackage(m, manifestPath, source, ws)
	if err != nil {
		return nil, parseFailed(err, manifestPath)
	}
	return pkg, nil
}

func (l *Loader) buildWorkspace(rootPath string, root *tomlManifest) (*domain.Workspace, error) {
	rootDir := filepath.Dir(rootPath)
	ctx := &workspaceContext{manifestPath: rootPath, toml: root.Workspace}

	ws := &domain.Workspace{
		ManifestPath: rootPath,
		Patch:        map[string][]domain.ManifestDependency{},
		Security:     securityOf(root.Security),
	}

	memberPaths, err := memberManifests(rootPath, root)
	if err != nil {
		return nil, err
	}

	names := map[domain.PackageName]string{}
	for _, path := range memberPaths {
		m := root
		if path != rootPath {
			if m, err = readManifest(path); err != nil {
				return nil, err
			}
			if err := l.validateMember(path, m, rootPath); err != nil {
				return nil, err
			}
		}

		pkg, err := toPackage(m, path, domain.SourceID{}, ctx)
		if err != nil {
			return nil, parseFailed(err, path)
		}
		if prev, dup := names[pkg.Name()]; dup {
			return nil, zerr.With(zerr.Wrap(domain.ErrManifestInvalid,
				fmt.Sprintf("workspace contains duplicate package `%s`", pkg.Name())), "first", prev)
		}
		names[pkg.Name()] = path

		if path == rootPath {
			id := pkg.ID
			ws.RootPackage = &id
		}
		ws.Members = append(ws.Members, pkg)
		ws.Security = mergeSecurity(ws.Security, pkg.Manifest.Security)
	}

	if ws.Patch, err = patchTable(root.Patch, rootDir); err != nil {
		return nil, parseFailed(err, rootPath)
	}
	if ws.Profiles, err = profileDefinitions(root.Profile); err != nil {
		return nil, parseFailed(err, rootPath)
	}

	if root.Workspace != nil {
		ws.Scripts = root.Workspace.Scripts
		ws.Tool = root.Workspace.Tool
	} else {
		ws.Tool = root.Tool
	}
	ws.AllowPrebuiltPlugins = allowPrebuiltPlugins(root)

	return ws, nil
}

func (l *Loader) validateMember(path string, m *tomlManifest, rootPath string) error {
	if m.Workspace != nil {
		return zerr.With(zerr.Wrap(domain.ErrNestedWorkspace, "move the member or remove its [workspace] section"), "manifest", path)
	}
	if m.Patch != nil {
		return zerr.With(zerr.Wrap(domain.ErrPatchOutsideRoot, "move the [patch] section to "+rootPath), "manifest", path)
	}
	if m.Profile != nil && l.logger != nil {
		l.logger.Warn(fmt.Sprintf("profiles defined in %s are ignored, define them in the workspace root manifest %s", path, rootPath))
	}
	return nil
}

// findWorkspaceRoot walks up from the package directory to a workspace
// manifest whose members include it.
func (l *Loader) findWorkspaceRoot(manifestPath string) (string, *tomlManifest, bool) {
	pkgDir := filepath.Dir(manifestPath)
	for dir := filepath.Dir(pkgDir); ; dir = filepath.Dir(dir) {
		candidate := filepath.Join(dir, domain.ManifestFileName)
		if fileExists(candidate) {
			m, err := readManifest(candidate)
			if err != nil {
				if l.logger != nil {
					l.logger.Debug(fmt.Sprintf("skipping unreadable manifest %s while searching for workspace root", candidate))
				}
			} else if m.Workspace != nil {
				members, err := memberManifests(candidate, m)
				if err == nil && slices.Contains(members, manifestPath) {
					return candidate, m, true
				}
			}
		}
		if parent := filepath.Dir(dir); parent == dir {
			return "", nil, false
		}
	}
}

// memberManifests expands workspace member globs. The root is a member if it has a [package].
func memberManifests(rootPath string, root *tomlManifest) ([]string, error) {
	var out []string
	if root.Package != nil {
		out = append(out, rootPath)
	}
	if root.Workspace == nil {
		return out, nil
	}

	rootDir := filepath.Dir(rootPath)
	var found []string
	for _, pattern := range root.Workspace.Members {
		matches, err := filepath.Glob(filepath.Join(rootDir, pattern))
		if err != nil {
			return nil, zerr.With(zerr.Wrap(domain.ErrManifestInvalid, "invalid workspace member glob"), "pattern", pattern)
		}
		for _, dir := range matches {
			manifest := filepath.Join(dir, domain.ManifestFileName)
			if fileExists(manifest) && manifest != rootPath {
				found = append(found, manifest)
			}
		}
	}
	slices.Sort(found)
	return append(out, slices.Compact(found)...), nil
}

func patchTable(patch map[string]map[string]any, rootDir string) (map[string][]domain.ManifestDependency, error) {
	out := map[string][]domain.ManifestDependency{}
	for _, source := range sortedKeys(patch) {
		if source != domain.DefaultRegistryAlias {
			if u, err := url.Parse(source); err != nil || u.Scheme == "" {
				return nil, zerr.With(zerr.Wrap(domain.ErrManifestInvalid, "patch source must be a url or `scarbs-xyz`"), "source", source)
			}
		}
		entries := patch[source]
		for _, key := range sortedKeys(entries) {
			name, err := domain.NewPackageName(key)
			if err != nil {
				return nil, err
			}
			d, err := parseDependency(key, entries[key])
			if err != nil {
				return nil, err
			}
			dep, err := d.toManifestDependency(name, rootDir, domain.NormalDep())
			if err != nil {
				return nil, err
			}
			out[source] = append(out[source], dep)
		}
	}
	return out, nil
}

// mergeSecurity lets a workspace-level require-audits override member-level false.
func mergeSecurity(ws, member domain.Security) domain.Security {
	ws.RequireAudits = ws.RequireAudits || member.RequireAudits
	for _, n := range member.AllowNoAudits {
		if !slices.Contains(ws.AllowNoAudits, n) {
			ws.AllowNoAudits = append(ws.AllowNoAudits, n)
		}
	}
	return ws
}

func allowPrebuiltPlugins(root *tomlManifest) []domain.PackageName {
	tool := root.Tool
	if root.Workspace != nil && root.Workspace.Tool != nil {
		tool = mergeTables(root.Workspace.Tool, root.Tool)
	}
	scarb, ok := tool["scarb"].(map[string]any)
	if !ok {
		return nil
	}
	names, err := asStrings("allow-prebuilt-plugins", scarb["allow-prebuilt-plugins"])
	if err != nil {
		return nil
	}
	out := make([]domain.PackageName, 0, len(names))
	for _, n := range names {
		out = append(out, domain.PackageName(n))
	}
	return out
}

func readManifest(path string) (*tomlManifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // manifest paths come from workspace discovery
	if errors.Is(err, fs.ErrNotExist) {
		return nil, zerr.With(zerr.Wrap(domain.ErrManifestNotFound, ""), "path", path)
	}
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrManifestReadFailed.Error()), "path", path)
	}

	var m tomlManifest
	if err := toml.Unmarshal(data, &m); err != nil {
		location := path
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			location = fmt.Sprintf("%s:%d:%d", path, row, col)
		}
		return nil, zerr.With(zerr.Wrap(err, fmt.Sprintf("%s at: %s", domain.ErrManifestParseFailed, location)), "path", path)
	}
	if err := keepEmptyTables(data, &m); err != nil {
		return nil, parseFailed(err, path)
	}
	return &m, nil
}

// keepEmptyTables marks [lib] and [cairo-plugin] as declared even when they have no keys.
// Struct fields of map type stay nil for empty tables, while a generic document keeps them.
func keepEmptyTables(data []byte, m *tomlManifest) error {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return err
	}
	if _, ok := doc["lib"]; ok && m.Lib == nil {
		m.Lib = map[string]any{}
	}
	if _, ok := doc["cairo-plugin"]; ok && m.CairoPlugin == nil {
		m.CairoPlugin = map[string]any{}
	}
	return nil
}

func parseFailed(err error, path string) error {
	return zerr.With(zerr.Wrap(err, fmt.Sprintf("%s at: %s", domain.ErrManifestParseFailed, path)), "path", path)
}
