package resolver

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// edge is a dependency of a selected package as the solver saw it.
type edge struct {
	key  pkgKey
	kind domain.DepKind
}

// workspaceProvider answers solver questions from the package registry,
// applying patches, lockfile pins and the audit policy of the workspace.
type workspaceProvider struct {
	registry ports.PackageRegistry
	ws       *domain.Workspace
	lock     *domain.Lockfile
	core     *domain.Version

	members   map[pkgKey]domain.Summary
	memberIDs map[domain.PackageID]bool
	yankedOK  map[domain.PackageID]bool

	sources  map[pkgKey]domain.SourceID
	reqs     map[pkgKey][]domain.DependencyVersionReq
	kinds    map[pkgKey]domain.DepKind
	selected map[pkgKey]map[string]domain.Summary
	edges    map[domain.PackageID][]edge
	patched  map[string]bool

	prefetch *errgroup.Group
	group    singleflight.Group
	mu       sync.Mutex
	queries  map[string][]domain.Summary
}

func newWorkspaceProvider(registry ports.PackageRegistry, ws *domain.Workspace, lock *domain.Lockfile, core *domain.Version, jobs int) *workspaceProvider {
	p := &workspaceProvider{
		registry:  registry,
		ws:        ws,
		lock:      lock,
		core:      core,
		members:   make(map[pkgKey]domain.Summary),
		memberIDs: make(map[domain.PackageID]bool),
		yankedOK:  make(map[domain.PackageID]bool),
		sources:   make(map[pkgKey]domain.SourceID),
		reqs:      make(map[pkgKey][]domain.DependencyVersionReq),
		kinds:     make(map[pkgKey]domain.DepKind),
		selected:  make(map[pkgKey]map[string]domain.Summary),
		edges:     make(map[domain.PackageID][]edge),
		patched:   make(map[string]bool),
		queries:   make(map[string][]domain.Summary),
	}
	for _, m := range ws.Members {
		k := keyOf(m.ID.Name, m.ID.Source)
		p.members[k] = m.Manifest.Summary
		p.memberIDs[m.ID] = true
		p.sources[k] = m.ID.Source
	}
	if lock != nil {
		for _, lp := range lock.Packages {
			if !lp.Source.IsZero() {
				p.yankedOK[domain.NewPackageID(lp.Name, lp.Version, lp.Source)] = true
			}
		}
	}

	p.prefetch = new(errgroup.Group)
	p.prefetch.SetLimit(max(jobs, 1))
	return p
}

func (p *workspaceProvider) roots() []pin {
	pins := make([]pin, 0, len(p.ws.Members))
	for _, m := range p.ws.Members {
		pins = append(pins, pin{key: keyOf(m.ID.Name, m.ID.Source), version: m.ID.Version})
	}
	return pins
}

func (p *workspaceProvider) chooseVersion(ctx context.Context, k pkgKey, set domain.Ranges) (domain.Version, bool, error) {
	if s, ok := p.members[k]; ok {
		if !set.Contains(s.PackageID.Version) {
			return domain.Version{}, false, nil
		}
		p.remember(k, s)
		return s.PackageID.Version, true, nil
	}

	summaries, err := p.candidates(ctx, k)
	if err != nil {
		return domain.Version{}, false, err
	}

	var admissible []domain.Summary
	for _, s := range summaries {
		if !set.Contains(s.PackageID.Version) {
			continue
		}
		if s.Yanked && !p.yankedOK[s.PackageID] {
			continue
		}
		ok, err := p.audited(k, s)
		if err != nil {
			return domain.Version{}, false, err
		}
		if ok {
			admissible = append(admissible, s)
		}
	}
	if len(admissible) == 0 {
		return domain.Version{}, false, nil
	}

	chosen := admissible[0]
	if locked, ok := p.lockedRegistryVersion(k, set); ok {
		if i := slices.IndexFunc(admissible, func(s domain.Summary) bool {
			return s.PackageID.Version.Compare(locked) == 0
		}); i >= 0 {
			chosen = admissible[i]
		}
	}
	p.remember(k, chosen)
	return chosen.PackageID.Version, true, nil
}

func (p *workspaceProvider) remember(k pkgKey, s domain.Summary) {
	if p.selected[k] == nil {
		p.selected[k] = make(map[string]domain.Summary)
	}
	p.selected[k][s.PackageID.Version.String()] = s
}

func (p *workspaceProvider) summary(k pkgKey, v domain.Version) (domain.Summary, bool) {
	s, ok := p.selected[k][v.String()]
	return s, ok
}

func (p *workspaceProvider) dependencies(ctx context.Context, k pkgKey, v domain.Version) ([]constraint, error) {
	s, ok := p.summary(k, v)
	if !ok {
		return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrPackageNotFound, ""), "package", string(k.Name)), "version", v.String())
	}

	deps := s.Dependencies
	if p.core != nil && s.NeedsCore() && !slices.ContainsFunc(deps, func(d domain.ManifestDependency) bool { return d.Name.IsCore() }) {
		deps = append(slices.Clone(deps), domain.ImplicitCoreDependency(*p.core))
	}

	filter := domain.PropagationFilter(p.memberIDs[s.PackageID])
	var (
		out   []constraint
		edges []edge
	)
	for _, dep := range deps {
		if !filter.Keep(dep) {
			continue
		}
		dep = p.patch(dep)
		dep = rewritePathDependency(s.PackageID, dep)
		dep = p.lockDependency(dep)

		dk := keyOf(dep.Name, dep.SourceID)
		p.track(dk, dep)
		out = append(out, constraint{key: dk, set: dep.VersionReq.Ranges()})
		edges = append(edges, edge{key: dk, kind: dep.Kind})
		p.startPrefetch(ctx, dk)
	}
	p.edges[s.PackageID] = edges
	return out, nil
}

// track records how a package is depended upon.
func (p *workspaceProvider) track(k pkgKey, dep domain.ManifestDependency) {
	if prev, ok := p.sources[k]; !ok || prev.Precise() == "" {
		p.sources[k] = dep.SourceID
	}
	if !slices.ContainsFunc(p.reqs[k], func(r domain.DependencyVersionReq) bool { return r.String() == dep.VersionReq.String() }) {
		p.reqs[k] = append(p.reqs[k], dep.VersionReq)
	}
	prev, ok := p.kinds[k]
	if !ok || (prev.IsTestOnly() && !dep.Kind.IsTestOnly()) {
		p.kinds[k] = dep.Kind
	}
}

func (p *workspaceProvider) patch(dep domain.ManifestDependency) domain.ManifestDependency {
	entry, ok := p.ws.PatchFor(dep)
	if !ok {
		return dep
	}
	p.patched[entry.SourceID.PrettyURL()+"#"+string(entry.Name)] = true
	entry.Kind = dep.Kind
	return entry
}

// unusedPatches returns patch entries that matched no dependency.
func (p *workspaceProvider) unusedPatches() []string {
	var out []string
	for url, entries := range p.ws.Patch {
		for _, e := range entries {
			if !p.patched[e.SourceID.PrettyURL()+"#"+string(e.Name)] {
				out = append(out, fmt.Sprintf("%s (%s)", e.Name, url))
			}
		}
	}
	slices.Sort(out)
	return out
}

// rewritePathDependency makes path dependencies of git packages point into the same checkout.
func rewritePathDependency(parent domain.PackageID, dep domain.ManifestDependency) domain.ManifestDependency {
	if parent.Source.IsGit() && dep.SourceID.IsPath() {
		dep.SourceID = parent.Source
	}
	return dep
}

// lockDependency pins git dependencies to the commit recorded in the lockfile.
// Registry dependencies are pinned when choosing versions, path dependencies never are.
func (p *workspaceProvider) lockDependency(dep domain.ManifestDependency) domain.ManifestDependency {
	if !dep.SourceID.IsGit() {
		return dep
	}
	lp, ok := p.lock.LockedFor(dep)
	if !ok || lp.Source.Precise() == "" || !dep.VersionReq.Matches(lp.Version) {
		return dep
	}
	dep.SourceID = lp.Source
	dep.VersionReq = domain.LockedDependencyReq(dep.VersionReq.Req(), lp.Version)
	return dep
}

func (p *workspaceProvider) lockedRegistryVersion(k pkgKey, set domain.Ranges) (domain.Version, bool) {
	if !k.Source.IsRegistry() {
		return domain.Version{}, false
	}
	for _, lp := range p.lock.Find(k.Name) {
		if lp.Source.IsZero() || !lp.Source.IsRegistry() || lp.Source.CanonicalURL() != k.Source.CanonicalURL() {
			continue
		}
		if set.Contains(lp.Version) {
			return lp.Version, true
		}
	}
	return domain.Version{}, false
}

// audited applies the [security] policy to a candidate.
func (p *workspaceProvider) audited(k pkgKey, s domain.Summary) (bool, error) {
	sec := p.ws.Security
	if !sec.RequireAudits || p.kinds[k].IsTestOnly() {
		return true, nil
	}
	id := s.PackageID
	whitelisted := sec.AllowsUnaudited(id.Name)
	switch id.Source.Kind() {
	case domain.SourceKindStd:
		return true, nil
	case domain.SourceKindRegistry:
		return s.Audited || whitelisted, nil
	case domain.SourceKindPath:
		if p.memberIDs[id] || whitelisted {
			return true, nil
		}
	default:
		if whitelisted {
			return true, nil
		}
	}
	return false, auditError(id.Name, id.Source.Kind())
}

func auditError(name domain.PackageName, kind domain.SourceKind) error {
	msg := fmt.Sprintf("dependency `%s` from `%s` source is not allowed when audit requirement is enabled", name, kind)
	hint := fmt.Sprintf("depend on a registry package\nalternatively, consider whitelisting dependency in package manifest\n --> Scarb.toml\n    [security]\n    allow-no-audits = [\"%s\"]", name)
	return zerr.With(zerr.Wrap(domain.ErrAuditViolation, msg), "hint", hint)
}

// candidates returns every known version of k, newest first.
func (p *workspaceProvider) candidates(ctx context.Context, k pkgKey) ([]domain.Summary, error) {
	reqs := p.reqs[k]
	if len(reqs) == 0 {
		reqs = []domain.DependencyVersionReq{domain.AnyDependencyReq()}
	}

	seen := make(map[domain.PackageID]bool)
	var out []domain.Summary
	for _, req := range reqs {
		summaries, err := p.query(ctx, p.queryDependency(k, req))
		if err != nil {
			return nil, err
		}
		for _, s := range summaries {
			if !seen[s.PackageID] {
				seen[s.PackageID] = true
				out = append(out, s)
			}
		}
	}
	slices.SortStableFunc(out, func(a, b domain.Summary) int {
		return b.PackageID.Version.Compare(a.PackageID.Version)
	})
	return out, nil
}

func (p *workspaceProvider) queryDependency(k pkgKey, req domain.DependencyVersionReq) domain.ManifestDependency {
	source, ok := p.sources[k]
	if !ok {
		source = k.Source
	}
	return domain.NewManifestDependency(k.Name, req, source)
}

// query memoizes registry queries; concurrent callers share one request.
func (p *workspaceProvider) query(ctx context.Context, dep domain.ManifestDependency) ([]domain.Summary, error) {
	memo := dep.SourceID.PrettyURL() + " " + string(dep.Name) + " " + dep.VersionReq.String()

	p.mu.Lock()
	cached, ok := p.queries[memo]
	p.mu.Unlock()
	if ok {
		return cached, nil
	}

	v, err, _ := p.group.Do(memo, func() (any, error) {
		summaries, err := p.registry.Query(ctx, dep)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.queries[memo] = summaries
		p.mu.Unlock()
		return summaries, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Summary), nil
}

// startPrefetch queries k in the background so the registry round trip overlaps solving.
func (p *workspaceProvider) startPrefetch(ctx context.Context, k pkgKey) {
	if _, ok := p.members[k]; ok {
		return
	}
	deps := make([]domain.ManifestDependency, 0, len(p.reqs[k]))
	for _, req := range p.reqs[k] {
		deps = append(deps, p.queryDependency(k, req))
	}
	p.prefetch.TryGo(func() error {
		for _, dep := range deps {
			// Errors resurface when the solver asks for the package.
			_, _ = p.query(ctx, dep)
		}
		return nil
	})
}
