package planner

import (
	"slices"

	"go.trai.ch/scarb/internal/core/domain"
)

// pluginUnits returns one unit per non-builtin plugin used by cairoUnits and one per
// plugin member, ordered by package id.
func pluginUnits(members []*domain.Package, cairoUnits []*domain.CairoCompilationUnit, profile string) []*domain.ProcMacroCompilationUnit {
	prebuilt := make(map[domain.PackageID]bool)
	var pkgs []*domain.Package
	seen := make(map[domain.PackageID]bool)
	add := func(pkg *domain.Package) {
		if !seen[pkg.ID] {
			seen[pkg.ID] = true
			pkgs = append(pkgs, pkg)
		}
	}

	for _, u := range cairoUnits {
		for _, ref := range u.CairoPlugins {
			if ref.Builtin {
				continue
			}
			add(ref.Package)
			prebuilt[ref.Package.ID] = prebuilt[ref.Package.ID] || ref.Prebuilt
		}
	}
	for _, m := range members {
		if m.IsCairoPlugin() {
			add(m)
		}
	}
	slices.SortFunc(pkgs, func(a, b *domain.Package) int { return domain.ComparePackageIDs(a.ID, b.ID) })

	units := make([]*domain.ProcMacroCompilationUnit, 0, len(pkgs))
	for _, pkg := range pkgs {
		target := pkg.TargetsOfKind(domain.TargetKindCairoPlugin)[0]
		c := newComponent(pkg, []domain.Target{target}, nil, nil)
		units = append(units, &domain.ProcMacroCompilationUnit{
			Components: []*domain.CompilationUnitComponent{c},
			Profile:    profile,
			Prebuilt:   prebuilt[pkg.ID],
		})
	}
	return units
}
