package packager

import (
	"bytes"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/zerr"
)

const manifestHeader = `# Code generated by scarb package. DO NOT EDIT.
#
# This manifest is normalized for publishing: relative paths are resolved and
# workspace inheritance is expanded. The manifest as written by the author is
# kept next to this file as Scarb.orig.toml.

`

type publishManifest struct {
	Package         publishPackage               `toml:"package"`
	Dependencies    map[string]publishDependency `toml:"dependencies,omitempty"`
	DevDependencies map[string]publishDependency `toml:"dev-dependencies,omitempty"`
	Lib             map[string]any               `toml:"lib,omitempty"`
	CairoPlugin     map[string]any               `toml:"cairo-plugin,omitempty"`
	Target          map[string][]map[string]any  `toml:"target,omitempty"`
	Features        map[string][]string          `toml:"features,omitempty"`
	Tool            map[string]any               `toml:"tool,omitempty"`
}

type publishPackage struct {
	Name                 string            `toml:"name"`
	Version              string            `toml:"version"`
	Edition              string            `toml:"edition"`
	Authors              []string          `toml:"authors,omitempty"`
	Description          string            `toml:"description,omitempty"`
	Documentation        string            `toml:"documentation,omitempty"`
	Homepage             string            `toml:"homepage,omitempty"`
	Keywords             []string          `toml:"keywords,omitempty"`
	License              string            `toml:"license,omitempty"`
	LicenseFile          string            `toml:"license-file,omitempty"`
	Readme               string            `toml:"readme,omitempty"`
	Repository           string            `toml:"repository,omitempty"`
	CairoVersion         string            `toml:"cairo-version,omitempty"`
	NoCore               bool              `toml:"no-core,omitempty"`
	ExperimentalFeatures []string          `toml:"experimental-features,omitempty"`
	Urls                 map[string]string `toml:"urls,omitempty"`
	Metadata             map[string]any    `toml:"metadata,omitempty"`
}

type publishDependency struct {
	Version         string   `toml:"version"`
	Registry        string   `toml:"registry,omitempty"`
	Features        []string `toml:"features,omitempty"`
	DefaultFeatures *bool    `toml:"default-features,omitempty"`
}

// normalizeManifest renders the manifest stored as Scarb.toml inside the archive.
// Path and git dependencies are rewritten to registry dependencies by version.
func normalizeManifest(pkg *domain.Package) ([]byte, error) {
	m := pkg.Manifest
	md := m.Metadata
	out := publishManifest{
		Package: publishPackage{
			Name:                 pkg.ID.Name.String(),
			Version:              pkg.ID.Version.String(),
			Edition:              string(m.Edition),
			Authors:              md.Authors,
			Description:          md.Description,
			Documentation:        md.Documentation,
			Homepage:             md.Homepage,
			Keywords:             md.Keywords,
			License:              md.License,
			Repository:           md.Repository,
			CairoVersion:         md.CairoVersion,
			NoCore:               m.Summary.NoCore,
			ExperimentalFeatures: m.ExperimentalFeatures,
			Urls:                 md.Urls,
			Metadata:             md.Custom,
		},
		Features: m.Features,
		Tool:     m.Tool,
	}
	if md.Readme != "" {
		out.Package.Readme = filepath.Base(md.Readme)
	}
	if md.LicenseFile != "" {
		out.Package.LicenseFile = filepath.Base(md.LicenseFile)
	}

	for _, d := range m.Summary.Dependencies {
		if d.SourceID.IsStd() {
			continue
		}
		pd, err := publishDep(d)
		if err != nil {
			return nil, err
		}
		dst := &out.Dependencies
		if d.Kind.IsDev() {
			dst = &out.DevDependencies
		}
		if *dst == nil {
			*dst = make(map[string]publishDependency)
		}
		(*dst)[d.Name.String()] = pd
	}

	root := pkg.Root()
	for _, t := range m.Targets {
		table := maps.Clone(t.Params)
		if table == nil {
			table = make(map[string]any)
		}
		table["name"] = t.Name
		if rel, err := filepath.Rel(root, t.SourcePath); err == nil {
			table["source-path"] = filepath.ToSlash(rel)
		}
		switch t.Kind {
		case domain.TargetKindTest:
			// Test targets are inferred again by whoever builds the sources.
		case domain.TargetKindLib:
			out.Lib = table
		case domain.TargetKindCairoPlugin:
			out.CairoPlugin = table
		default:
			if out.Target == nil {
				out.Target = make(map[string][]map[string]any)
			}
			out.Target[string(t.Kind)] = append(out.Target[string(t.Kind)], table)
		}
	}
	for kind := range out.Target {
		slices.SortFunc(out.Target[kind], func(a, b map[string]any) int {
			an, _ := a["name"].(string)
			bn, _ := b["name"].(string)
			return strings.Compare(an, bn)
		})
	}

	var buf bytes.Buffer
	buf.WriteString(manifestHeader)
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(false)
	if err := enc.Encode(out); err != nil {
		return nil, zerr.Wrap(err, "failed to encode normalized manifest")
	}
	return buf.Bytes(), nil
}

func publishDep(d domain.ManifestDependency) (publishDependency, error) {
	if d.VersionReq.IsAny() && !d.SourceID.IsRegistry() {
		return publishDependency{}, zerr.With(zerr.Wrap(domain.ErrUnpublishableDependency, ""), "dependency", d.Name.String())
	}
	pd := publishDependency{
		Version:  d.VersionReq.String(),
		Features: d.Features,
	}
	if d.SourceID.IsRegistry() && !d.SourceID.IsDefaultRegistry() {
		pd.Registry = d.SourceID.URL()
	}
	if !d.DefaultFeatures {
		f := false
		pd.DefaultFeatures = &f
	}
	return pd, nil
}
