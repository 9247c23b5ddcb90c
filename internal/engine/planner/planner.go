// Package planner turns a resolved workspace into compilation units.
package planner

import (
	"fmt"
	"slices"
	"strings"

	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/zerr"
)

// TargetFilter selects the member targets to plan.
type TargetFilter struct {
	// Kinds restricts targets by kind. Empty means the default build kinds.
	Kinds []domain.TargetKind
	// Names restricts targets by name.
	Names []string
	// All selects every target regardless of kind.
	All bool
}

func (f TargetFilter) isZero() bool {
	return len(f.Kinds) == 0 && len(f.Names) == 0 && !f.All
}

func (f TargetFilter) matches(t domain.Target) bool {
	if len(f.Names) > 0 && !slices.Contains(f.Names, t.Name) && (t.GroupID == "" || !slices.Contains(f.Names, t.GroupID)) {
		return false
	}
	switch {
	case f.All:
		return true
	case len(f.Kinds) > 0:
		return slices.Contains(f.Kinds, t.Kind)
	case len(f.Names) > 0:
		return true
	default:
		return t.Kind.IsDefaultBuild()
	}
}

// Options configures one planning pass.
type Options struct {
	Profile  string
	Features domain.FeaturesOpts
	Targets  TargetFilter
	// Lint plans units for the lint driver.
	Lint bool
	// LoadPrebuilt uses prebuilt plugin libraries where the workspace allows them.
	LoadPrebuilt bool
	// CairoVersion is checked against the cairo-version of every package when set.
	CairoVersion *domain.Version
	// IgnoreCairoVersion downgrades cairo-version mismatches to warnings.
	IgnoreCairoVersion bool
}

// Planner builds compilation units.
type Planner struct {
	logger ports.Logger
}

// New creates a Planner.
func New(logger ports.Logger) *Planner {
	return &Planner{logger: logger}
}

// Plan returns one Cairo unit per selected target of every member, followed by one
// procedural macro unit per plugin package those units need.
func (p *Planner) Plan(rw *domain.ResolvedWorkspace, members []*domain.Package, opts Options) ([]domain.CompilationUnit, error) {
	var cairoMembers []*domain.Package
	for _, m := range members {
		if !m.IsCairoPlugin() {
			cairoMembers = append(cairoMembers, m)
		}
	}
	if err := validateFeatures(cairoMembers, opts.Features); err != nil {
		return nil, err
	}

	var cairoUnits []*domain.CairoCompilationUnit
	for _, m := range cairoMembers {
		units, err := p.memberUnits(rw, m, opts)
		if err != nil {
			return nil, err
		}
		cairoUnits = append(cairoUnits, units...)
	}
	if len(cairoUnits) == 0 && !opts.Targets.isZero() && !onlyPlugins(members) {
		return nil, zerr.With(zerr.Wrap(domain.ErrNoMatchingTarget, ""), "filter", describeFilter(opts.Targets))
	}

	plugins := pluginUnits(members, cairoUnits, opts.Profile)

	units := make([]domain.CompilationUnit, 0, len(cairoUnits)+len(plugins))
	for _, u := range cairoUnits {
		units = append(units, u)
	}
	for _, u := range plugins {
		units = append(units, u)
	}
	return units, nil
}

func onlyPlugins(members []*domain.Package) bool {
	return !slices.ContainsFunc(members, func(m *domain.Package) bool { return !m.IsCairoPlugin() })
}

func describeFilter(f TargetFilter) string {
	var parts []string
	for _, k := range f.Kinds {
		parts = append(parts, "kind="+string(k))
	}
	for _, n := range f.Names {
		parts = append(parts, "name="+n)
	}
	return strings.Join(parts, ",")
}

func validateFeatures(members []*domain.Package, opts domain.FeaturesOpts) error {
	for _, f := range opts.Features {
		if !slices.ContainsFunc(members, func(m *domain.Package) bool {
			_, ok := m.Manifest.Features[f]
			return ok
		}) {
			return zerr.With(zerr.With(
				zerr.Wrap(domain.ErrUnknownFeature, fmt.Sprintf("none of the selected packages contains `%s` feature", f)),
				"feature", f),
				"hint", "to use features, you need to define [features] section in Scarb.toml")
		}
	}
	return nil
}

// memberUnits plans ungrouped targets first, then one unit per target group.
func (p *Planner) memberUnits(rw *domain.ResolvedWorkspace, member *domain.Package, opts Options) ([]*domain.CairoCompilationUnit, error) {
	var (
		single []domain.Target
		groups = map[string][]domain.Target{}
		order  []string
	)
	for _, t := range member.Manifest.Targets {
		if t.IsCairoPlugin() || !opts.Targets.matches(t) {
			continue
		}
		if t.GroupID == "" {
			single = append(single, t)
			continue
		}
		if _, ok := groups[t.GroupID]; !ok {
			order = append(order, t.GroupID)
		}
		groups[t.GroupID] = append(groups[t.GroupID], t)
	}
	slices.SortStableFunc(order, func(a, b string) int {
		return strings.Compare(string(groups[a][0].Kind), string(groups[b][0].Kind))
	})

	var units []*domain.CairoCompilationUnit
	for _, t := range single {
		u, err := p.unitFor(rw, member, []domain.Target{t}, opts)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	for _, id := range order {
		u, err := p.unitFor(rw, member, groups[id], opts)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, nil
}

func (p *Planner) unitFor(rw *domain.ResolvedWorkspace, member *domain.Package, targets []domain.Target, opts Options) (*domain.CairoCompilationUnit, error) {
	main := targets[0]
	kind := main.Kind

	libs, plugins, err := p.classify(rw, member, kind, opts.LoadPrebuilt)
	if err != nil {
		return nil, err
	}
	if err := p.checkCairoVersion(libs, opts); err != nil {
		return nil, err
	}

	cfg := unitCfgSet(main)
	noTest := withoutTest(cfg)

	features, err := memberFeatures(member, opts.Features)
	if err != nil {
		return nil, err
	}
	mainCfg := cfg.Union(featureCfg(features))

	integration := main.IsTest() && main.TestType() == domain.TestTypeIntegration
	testID := member.ID.ForTestTarget(componentName(main))

	components := make([]*domain.CompilationUnitComponent, 0, len(libs)+1)
	for _, pkg := range libs {
		if pkg.ID == member.ID {
			c := newComponent(pkg, targets, mainCfg, features)
			if integration {
				c.ID.Package = testID
				c.CairoName = string(testID.Name)
			}
			components = append(components, c)
			continue
		}
		lib, _ := pkg.Lib()
		depFeatures := dependencyFeatures(libs, pkg)
		c := newComponent(pkg, []domain.Target{lib}, nil, depFeatures)
		if noTest != nil || len(depFeatures) > 0 {
			base := noTest
			if base == nil {
				base = cfg
			}
			c.CfgSet = base.Union(featureCfg(depFeatures))
		}
		components = append(components, c)
	}

	var memberLib *domain.CompilationUnitComponent
	if integration {
		lib, ok := member.Lib()
		if !ok {
			lib = domain.Target{
				Kind:       domain.TargetKindLib,
				Name:       string(member.Name()),
				SourcePath: defaultLibPath(member),
			}
		}
		base := noTest
		if base == nil {
			base = domain.NewCfgSet()
		}
		memberLib = newComponent(member, []domain.Target{lib}, base.Union(featureCfg(features)), features)
		components = append(components, memberLib)
	}

	pluginRefs := make(map[domain.PackageID]domain.CairoPluginRef, len(plugins))
	for _, ref := range plugins {
		pluginRefs[ref.Package.ID] = ref
	}
	for _, c := range components {
		switch {
		case integration && c.ID.Package == testID:
			c.Dependencies = append(componentDependencies(rw, member.ID, kind, true, components, pluginRefs),
				domain.CompilationUnitDependency{Kind: domain.EdgeComponent, ID: memberLib.ID})
		case integration && c == memberLib:
			c.Dependencies = append(componentDependencies(rw, member.ID, kind, false, components, pluginRefs),
				domain.CompilationUnitDependency{Kind: domain.EdgeComponent, ID: c.ID})
		default:
			id := c.Package.ID
			c.Dependencies = append(componentDependencies(rw, id, kind, id == member.ID, components, pluginRefs),
				domain.CompilationUnitDependency{Kind: domain.EdgeComponent, ID: c.ID})
		}
	}

	return &domain.CairoCompilationUnit{
		Components:     components,
		CairoPlugins:   plugins,
		CompilerConfig: rw.Workspace.CompilerConfigFor(member, opts.Profile),
		CfgSet:         mainCfg,
		Profile:        opts.Profile,
		Lint:           opts.Lint,
	}, nil
}

// classify splits the solution into library packages, member first and core second,
// and plugin packages. Packages that are neither are skipped with a warning.
func (p *Planner) classify(rw *domain.ResolvedWorkspace, member *domain.Package, kind domain.TargetKind, loadPrebuilt bool) ([]*domain.Package, []domain.CairoPluginRef, error) {
	allowed := rw.AllowedPrebuilt(kind)

	var (
		libs    []*domain.Package
		plugins []domain.CairoPluginRef
	)
	for _, pkg := range rw.SolutionOf(member.ID, kind) {
		switch {
		case pkg.ID == member.ID:
			libs = append(libs, pkg)
		case pkg.IsCairoPlugin():
			ref, err := pluginRef(pkg, allowed, loadPrebuilt)
			if err != nil {
				return nil, nil, err
			}
			plugins = append(plugins, ref)
		default:
			if _, ok := pkg.Lib(); ok {
				libs = append(libs, pkg)
				continue
			}
			p.logger.Warn(fmt.Sprintf("%s ignoring invalid dependency `%s` which is missing a lib or cairo-plugin target",
				member.ID, pkg.ID.Name))
		}
	}

	slices.SortStableFunc(libs, func(a, b *domain.Package) int {
		ra, rb := libRank(a, member), libRank(b, member)
		if ra != rb {
			return ra - rb
		}
		return domain.ComparePackageIDs(a.ID, b.ID)
	})
	slices.SortFunc(plugins, func(a, b domain.CairoPluginRef) int {
		return domain.ComparePackageIDs(a.Package.ID, b.Package.ID)
	})
	return libs, plugins, nil
}

func libRank(pkg, member *domain.Package) int {
	switch {
	case pkg.ID == member.ID:
		return 0
	case pkg.ID.IsCore():
		return 1
	default:
		return 2
	}
}

func pluginRef(pkg *domain.Package, allowed map[domain.PackageName]bool, loadPrebuilt bool) (domain.CairoPluginRef, error) {
	target := pkg.TargetsOfKind(domain.TargetKindCairoPlugin)[0]
	ref := domain.CairoPluginRef{
		ComponentID: domain.ComponentID{Package: pkg.ID, Kind: domain.TargetKindCairoPlugin},
		Package:     pkg,
		Builtin:     target.BoolParam("builtin", false) || pkg.ID.Source.IsStd(),
	}
	if ref.Builtin || pkg.ID.Source.IsPath() {
		return ref, nil
	}
	if !allowed[pkg.ID.Name] {
		hint := fmt.Sprintf("allow the prebuilt library in the workspace manifest\n --> Scarb.toml\n    [tool.scarb]\n    allow-prebuilt-plugins = [\"%s\"]", pkg.ID.Name)
		return ref, zerr.With(zerr.With(zerr.Wrap(domain.ErrPrebuiltNotAllowed, ""), "package", pkg.ID.String()), "hint", hint)
	}
	ref.Prebuilt = loadPrebuilt
	return ref, nil
}

func (p *Planner) checkCairoVersion(pkgs []*domain.Package, opts Options) error {
	if opts.CairoVersion == nil {
		return nil
	}
	var mismatched []string
	for _, pkg := range pkgs {
		raw := pkg.Manifest.Metadata.CairoVersion
		if raw == "" {
			continue
		}
		req, err := domain.ParseVersionReq(raw)
		if err != nil || req.Matches(*opts.CairoVersion) {
			continue
		}
		msg := fmt.Sprintf("the required Cairo version of package %s is not compatible with current version\nCairo version required: %s\nCairo version of Scarb: %s",
			pkg.ID.Name, raw, opts.CairoVersion)
		if opts.IgnoreCairoVersion {
			p.logger.Warn(msg)
			continue
		}
		mismatched = append(mismatched, msg)
	}
	if len(mismatched) == 0 {
		return nil
	}
	return zerr.With(zerr.With(
		zerr.Wrap(domain.ErrCairoVersionMismatch, strings.Join(mismatched, "\n")),
		"packages", len(mismatched)),
		"hint", "pass `--ignore-cairo-version` to ignore Cairo version mismatch")
}

func newComponent(pkg *domain.Package, targets []domain.Target, cfg domain.CfgSet, features []string) *domain.CompilationUnitComponent {
	first := targets[0]
	experimental := slices.Clone(pkg.Manifest.ExperimentalFeatures)
	slices.Sort(experimental)
	return &domain.CompilationUnitComponent{
		ID:                   domain.ComponentID{Package: pkg.ID, Kind: first.Kind, Group: first.GroupID},
		Package:              pkg,
		Targets:              targets,
		CairoName:            string(pkg.Name()),
		CfgSet:               cfg,
		ExperimentalFeatures: experimental,
		Features:             features,
	}
}

// componentDependencies links a component to the unit components and plugins its package depends on directly.
func componentDependencies(
	rw *domain.ResolvedWorkspace,
	id domain.PackageID,
	kind domain.TargetKind,
	isRoot bool,
	components []*domain.CompilationUnitComponent,
	plugins map[domain.PackageID]domain.CairoPluginRef,
) []domain.CompilationUnitDependency {
	var out []domain.CompilationUnitDependency
	for _, dep := range rw.Resolve.DependenciesOfKind(id, kind, isRoot) {
		if ref, ok := plugins[dep]; ok {
			out = append(out, domain.CompilationUnitDependency{Kind: domain.EdgePlugin, ID: ref.ComponentID})
			continue
		}
		for _, c := range components {
			if c.Package.ID == dep && c.Package.ID != id {
				out = append(out, domain.CompilationUnitDependency{Kind: domain.EdgeComponent, ID: c.ID})
				break
			}
		}
	}
	return out
}

func componentName(t domain.Target) string {
	if t.GroupID != "" {
		return t.GroupID
	}
	return t.Name
}
