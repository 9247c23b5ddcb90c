// Package resolver turns a workspace into a fully pinned dependency graph.
package resolver

import (
	"context"
	"slices"
	"strings"

	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/zerr"
)

// UpdateOptions releases lockfile pins.
type UpdateOptions struct {
	// Packages are unlocked by name.
	Packages []domain.PackageName
	// All ignores the lockfile entirely.
	All bool
}

// Options configures one resolution.
type Options struct {
	// Lockfile is the previous resolution; nil means none.
	Lockfile *domain.Lockfile
	Update   UpdateOptions
	// CoreVersion adds the implicit core dependency when set.
	CoreVersion *domain.Version
	// Jobs bounds concurrent registry prefetches.
	Jobs int
}

// Resolver runs the version solver against a package registry.
type Resolver struct {
	registry ports.PackageRegistry
	logger   ports.Logger
}

// New creates a Resolver.
func New(registry ports.PackageRegistry, logger ports.Logger) *Resolver {
	return &Resolver{registry: registry, logger: logger}
}

// Resolve selects one version for every package reachable from the workspace members.
func (r *Resolver) Resolve(ctx context.Context, ws *domain.Workspace, opts Options) (*domain.Resolve, error) {
	if len(ws.Members) == 0 {
		return domain.NewResolve(), nil
	}

	lock := unlock(opts.Lockfile, opts.Update)
	p := newWorkspaceProvider(r.registry, ws, lock, opts.CoreVersion, opts.Jobs)

	solution, err := solve(ctx, p, p.roots())
	waitErr := p.prefetch.Wait()
	if err != nil {
		return nil, err
	}
	if waitErr != nil {
		return nil, waitErr
	}

	for _, unused := range p.unusedPatches() {
		r.logger.Warn("patch for " + unused + " was not used in the crate graph")
	}

	resolve := domain.NewResolve()
	ids := make(map[pkgKey]domain.PackageID, len(solution))
	for k, v := range solution {
		s, ok := p.summary(k, v)
		if !ok {
			return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrPackageNotFound, ""), "package", string(k.Name)), "version", v.String())
		}
		ids[k] = s.PackageID
		resolve.Summaries[s.PackageID] = s
	}
	for _, id := range ids {
		var edges []domain.ResolvedDependency
		for _, e := range p.edges[id] {
			depID, ok := ids[e.key]
			if !ok {
				continue
			}
			dep := domain.ResolvedDependency{ID: depID, Kind: e.kind}
			if !slices.Contains(edges, dep) {
				edges = append(edges, dep)
			}
		}
		resolve.Edges[id] = edges
	}

	if err := checkUniqueNames(resolve); err != nil {
		return nil, err
	}
	return resolve, nil
}

// unlock drops lockfile entries the user asked to update.
func unlock(lock *domain.Lockfile, opts UpdateOptions) *domain.Lockfile {
	if lock == nil || opts.All {
		return nil
	}
	if len(opts.Packages) == 0 {
		return lock
	}
	kept := make([]domain.LockedPackage, 0, len(lock.Packages))
	for _, p := range lock.Packages {
		if !slices.Contains(opts.Packages, p.Name) {
			kept = append(kept, p)
		}
	}
	return domain.NewLockfile(kept)
}

// checkUniqueNames rejects graphs where one name comes from two sources.
func checkUniqueNames(r *domain.Resolve) error {
	seen := make(map[domain.PackageName]domain.PackageID)
	for _, id := range r.PackageIDs() {
		prev, ok := seen[id.Name]
		if !ok {
			seen[id.Name] = id
			continue
		}
		if prev.Source.WithoutPrecise() == id.Source.WithoutPrecise() {
			continue
		}
		msg := strings.Join([]string{
			"found dependencies on the same package `" + string(id.Name) + "` coming from incompatible sources:",
			"source 1: " + prev.Source.String(),
			"source 2: " + id.Source.String(),
		}, "\n")
		return zerr.Wrap(domain.ErrDuplicatePackageSources, msg)
	}
	return nil
}
