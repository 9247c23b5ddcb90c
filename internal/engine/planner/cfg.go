package planner

import (
	"path/filepath"
	"slices"

	"go.trai.ch/scarb/internal/core/domain"
)

// unitCfgSet is {target: <kind>} plus test for test targets.
func unitCfgSet(t domain.Target) domain.CfgSet {
	items := []domain.Cfg{domain.CfgKV("target", string(t.Kind))}
	if t.IsTest() {
		items = append(items, domain.CfgName("test"))
	}
	return domain.NewCfgSet(items...)
}

// withoutTest drops the test item, returning nil when there was none.
func withoutTest(s domain.CfgSet) domain.CfgSet {
	if !s.Contains(domain.CfgName("test")) {
		return nil
	}
	out := slices.DeleteFunc(slices.Clone(s), func(c domain.Cfg) bool { return c == domain.CfgName("test") })
	if out == nil {
		out = domain.NewCfgSet()
	}
	return out
}

func featureCfg(features []string) domain.CfgSet {
	items := make([]domain.Cfg, 0, len(features))
	for _, f := range features {
		items = append(items, domain.CfgKV("feature", f))
	}
	return domain.NewCfgSet(items...)
}

// memberFeatures resolves the requested features against one member. Features the member
// does not declare are skipped since another selected member declares them.
func memberFeatures(member *domain.Package, opts domain.FeaturesOpts) ([]string, error) {
	def := member.Manifest.Features
	var requested []string
	for _, f := range opts.Features {
		if _, ok := def[f]; ok {
			requested = append(requested, f)
		}
	}
	return domain.ResolveFeatures(def, domain.FeaturesOpts{
		Features:          requested,
		NoDefaultFeatures: opts.NoDefaultFeatures,
		AllFeatures:       opts.AllFeatures,
	})
}

// dependencyFeatures unions the features enabled on pkg by the dependency declarations of the unit's packages.
func dependencyFeatures(libs []*domain.Package, pkg *domain.Package) []string {
	var out []string
	for _, depender := range libs {
		for _, dep := range depender.Manifest.Summary.Dependencies {
			if dep.Name != pkg.Name() {
				continue
			}
			features, err := domain.DependencyFeatures(pkg.Manifest.Features, dep)
			if err != nil {
				continue
			}
			out = append(out, features...)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func defaultLibPath(pkg *domain.Package) string {
	return filepath.Join(pkg.Root(), "src", "lib.cairo")
}

// VirtualLibFile returns the lib.cairo injected for components whose target is not rooted
// at a lib.cairo file: one `mod <stem>;` line per target source file.
func VirtualLibFile(c *domain.CompilationUnitComponent) (domain.VirtualFile, bool) {
	first := c.FirstTarget()
	if len(c.Targets) == 1 && first.HasLibCairoRoot() {
		return domain.VirtualFile{}, false
	}
	var content string
	for _, path := range c.SourcePaths() {
		stem := filepath.Base(path)
		stem = stem[:len(stem)-len(filepath.Ext(stem))]
		content += "mod " + stem + ";\n"
	}
	return domain.VirtualFile{
		Path:    filepath.Join(first.SourceRoot(), "lib.cairo"),
		Content: content,
	}, true
}
