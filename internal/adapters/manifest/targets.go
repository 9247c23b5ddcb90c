package manifest

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/zerr"
)

const (
	defaultSourcePath = "src/lib.cairo"
	testsDirName      = "tests"
	unitTestSuffix    = "_unittest"
	integrationSuffix = "_integrationtest"
)

// collectTargets gathers declared targets and infers the automatic ones.
func collectTargets(m *tomlManifest, pkgName, root string) ([]domain.Target, error) {
	var declared []domain.Target
	add := func(kind domain.TargetKind, table map[string]any) error {
		t, err := newTarget(kind, table, pkgName, root)
		if err != nil {
			return err
		}
		declared = append(declared, t)
		return nil
	}

	if m.Lib != nil {
		if err := add(domain.TargetKindLib, m.Lib); err != nil {
			return nil, err
		}
	}
	if m.CairoPlugin != nil {
		if err := add(domain.TargetKindCairoPlugin, m.CairoPlugin); err != nil {
			return nil, err
		}
	}
	for _, table := range m.Executable {
		if err := add(domain.TargetKindExecutable, table); err != nil {
			return nil, err
		}
	}
	for _, table := range m.Test {
		if err := add(domain.TargetKindTest, table); err != nil {
			return nil, err
		}
	}
	for _, name := range sortedKeys(m.Target) {
		kind, err := domain.NewTargetKind(name)
		if err != nil {
			return nil, err
		}
		if kind == domain.TargetKindLib {
			return nil, zerr.Wrap(domain.ErrManifestInvalid, "target kind `lib` is reserved, use the [lib] section instead")
		}
		tables, err := asTables("target."+name, m.Target[name])
		if err != nil {
			return nil, zerr.Wrap(domain.ErrManifestInvalid, err.Error())
		}
		for _, table := range tables {
			if err := add(kind, table); err != nil {
				return nil, err
			}
		}
	}

	if err := validateTargets(declared); err != nil {
		return nil, err
	}

	targets := slices.Clone(declared)
	if len(declared) == 0 && fileExists(filepath.Join(root, defaultSourcePath)) {
		targets = append(targets, domain.Target{
			Kind:       domain.TargetKindLib,
			Name:       pkgName,
			SourcePath: filepath.Join(root, defaultSourcePath),
			Params:     map[string]any{},
		})
	}

	isPlugin := slices.ContainsFunc(targets, domain.Target.IsCairoPlugin)
	hasTests := slices.ContainsFunc(targets, domain.Target.IsTest)
	if !isPlugin && !hasTests {
		auto, err := autoTestTargets(targets, pkgName, root)
		if err != nil {
			return nil, err
		}
		targets = append(targets, auto...)
	}

	slices.SortStableFunc(targets, domain.CompareTargets)
	return targets, nil
}

func newTarget(kind domain.TargetKind, table map[string]any, pkgName, root string) (domain.Target, error) {
	t := domain.Target{
		Kind:       kind,
		Name:       pkgName,
		SourcePath: filepath.Join(root, defaultSourcePath),
		Params:     maps.Clone(table),
	}
	if t.Params == nil {
		t.Params = map[string]any{}
	}

	for key, dst := range map[string]*string{"name": &t.Name, "source-path": &t.SourcePath, "group-id": &t.GroupID} {
		v, ok := t.Params[key]
		if !ok {
			continue
		}
		delete(t.Params, key)
		s, err := asString(key, v)
		if err != nil {
			return domain.Target{}, zerr.With(zerr.Wrap(domain.ErrManifestInvalid, err.Error()), "target", string(kind))
		}
		*dst = s
	}
	if !filepath.IsAbs(t.SourcePath) {
		t.SourcePath = filepath.Join(root, t.SourcePath)
	}
	if t.Name == "" {
		return domain.Target{}, zerr.With(zerr.Wrap(domain.ErrManifestInvalid, "target name cannot be empty"), "target", string(kind))
	}
	return t, nil
}

func validateTargets(targets []domain.Target) error {
	type key struct {
		kind domain.TargetKind
		name string
	}
	seen := map[key]bool{}
	for _, t := range targets {
		k := key{t.Kind, t.Name}
		if seen[k] {
			return zerr.Wrap(domain.ErrManifestInvalid, fmt.Sprintf("manifest contains duplicate target definitions `%s (%s)`, consider explicitly naming targets with the `name` field", t.Kind, t.Name))
		}
		seen[k] = true
	}

	if slices.ContainsFunc(targets, domain.Target.IsCairoPlugin) && len(targets) > 1 {
		return zerr.Wrap(domain.ErrManifestInvalid, "target `cairo-plugin` cannot be mixed with other targets")
	}
	return nil
}

// autoTestTargets infers a unit test target from the library and integration
// test targets from the tests directory.
func autoTestTargets(targets []domain.Target, pkgName, root string) ([]domain.Target, error) {
	var out []domain.Target

	if i := slices.IndexFunc(targets, domain.Target.IsLib); i >= 0 {
		out = append(out, domain.Target{
			Kind:       domain.TargetKindTest,
			Name:       pkgName + unitTestSuffix,
			SourcePath: targets[i].SourcePath,
			Params:     map[string]any{"test-type": string(domain.TestTypeUnit)},
		})
	}

	testsDir := filepath.Join(root, testsDirName)
	if lib := filepath.Join(testsDir, "lib.cairo"); fileExists(lib) {
		out = append(out, domain.Target{
			Kind:       domain.TargetKindTest,
			Name:       pkgName + integrationSuffix,
			SourcePath: lib,
			Params:     map[string]any{"test-type": string(domain.TestTypeIntegration)},
		})
		return out, nil
	}

	entries, err := os.ReadDir(testsDir)
	if os.IsNotExist(err) {
		return out, nil
	}
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to list integration tests"), "dir", testsDir)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".cairo" {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), ".cairo")
		out = append(out, domain.Target{
			Kind:       domain.TargetKindTest,
			Name:       pkgName + "_" + stem,
			SourcePath: filepath.Join(testsDir, e.Name()),
			GroupID:    pkgName + integrationSuffix,
			Params:     map[string]any{"test-type": string(domain.TestTypeIntegration)},
		})
	}
	return out, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
