package manifest

import (
	"fmt"
	"path/filepath"

	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/zerr"
)

// parseDependency decodes the shorthand or detailed form of a dependency entry.
func parseDependency(name string, raw any) (tomlDependency, error) {
	switch v := raw.(type) {
	case string:
		return tomlDependency{Version: v}, nil
	case map[string]any:
		var d tomlDependency
		for key, value := range v {
			var err error
			switch key {
			case "version":
				d.Version, err = asString(key, value)
			case "path":
				d.Path, err = asString(key, value)
			case "git":
				d.Git, err = asString(key, value)
			case "branch":
				d.Branch, err = asString(key, value)
			case "tag":
				d.Tag, err = asString(key, value)
			case "rev":
				d.Rev, err = asString(key, value)
			case "registry":
				d.Registry, err = asString(key, value)
			case "features":
				d.Features, err = asStrings(key, value)
			case "default-features":
				var b bool
				b, err = asBool(key, value)
				d.DefaultFeatures = &b
			case "workspace":
				d.Workspace, err = asBool(key, value)
			default:
				err = fmt.Errorf("unknown field `%s`", key)
			}
			if err != nil {
				return tomlDependency{}, zerr.With(zerr.Wrap(domain.ErrManifestInvalid, err.Error()), "dependency", name)
			}
		}
		return d, nil
	default:
		return tomlDependency{}, zerr.With(
			zerr.Wrap(domain.ErrManifestInvalid, fmt.Sprintf("dependency (%s) must be a version string or a table", name)),
			"dependency", name,
		)
	}
}

// inherit overlays the member-level keys of a `{ workspace = true }` entry onto the workspace definition.
func (d tomlDependency) inherit(member tomlDependency) tomlDependency {
	d.Features = append(d.Features, member.Features...)
	if member.DefaultFeatures != nil {
		d.DefaultFeatures = member.DefaultFeatures
	}
	return d
}

// toManifestDependency validates the descriptor and computes its source.
// Relative paths are resolved against baseDir.
func (d tomlDependency) toManifestDependency(name domain.PackageName, baseDir string, kind domain.DepKind) (domain.ManifestDependency, error) {
	invalid := func(format string) error {
		return zerr.With(zerr.Wrap(domain.ErrManifestInvalid, fmt.Sprintf(format, name)), "dependency", string(name))
	}

	if d.Branch != "" || d.Tag != "" || d.Rev != "" {
		if d.Git == "" {
			return domain.ManifestDependency{}, invalid("dependency (%s) is non-Git, but provides `branch`, `tag` or `rev`")
		}
		set := 0
		for _, s := range []string{d.Branch, d.Tag, d.Rev} {
			if s != "" {
				set++
			}
		}
		if set > 1 {
			return domain.ManifestDependency{}, invalid("dependency (%s) specification is ambiguous, only one of `branch`, `tag` or `rev` is allowed")
		}
	}

	var source domain.SourceID
	var err error
	switch {
	case d.Version == "" && d.Git == "" && d.Path == "":
		return domain.ManifestDependency{}, invalid("dependency (%s) must be specified providing a local path, Git repository, or version to use")
	case d.Git != "" && d.Path != "":
		return domain.ManifestDependency{}, invalid("dependency (%s) specification is ambiguous, only one of `git` or `path` is allowed")
	case d.Registry != "" && (d.Git != "" || d.Path != ""):
		return domain.ManifestDependency{}, invalid("dependency (%s) specification is ambiguous, `registry` cannot be combined with `git` or `path`")
	case d.Path != "":
		dir := d.Path
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(baseDir, dir)
		}
		source, err = domain.NewPathSourceID(dir)
	case d.Git != "":
		source, err = domain.NewGitSourceID(d.Git, d.gitReference())
	case d.Registry != "":
		source, err = domain.NewRegistrySourceID(d.Registry)
	default:
		source = domain.DefaultRegistrySourceID()
	}
	if err != nil {
		return domain.ManifestDependency{}, err
	}

	req := domain.AnyDependencyReq()
	if d.Version != "" {
		parsed, err := domain.ParseVersionReq(d.Version)
		if err != nil {
			return domain.ManifestDependency{}, zerr.With(err, "dependency", string(name))
		}
		req = domain.ReqDependencyReq(parsed)
	}

	dep := domain.NewManifestDependency(name, req, source)
	dep.Kind = kind
	dep.Features = d.Features
	if d.DefaultFeatures != nil {
		dep.DefaultFeatures = *d.DefaultFeatures
	}
	return dep, nil
}

func (d tomlDependency) gitReference() domain.GitReference {
	switch {
	case d.Branch != "":
		return domain.GitReference{Kind: domain.GitBranch, Value: d.Branch}
	case d.Tag != "":
		return domain.GitReference{Kind: domain.GitTag, Value: d.Tag}
	case d.Rev != "":
		return domain.GitReference{Kind: domain.GitRev, Value: d.Rev}
	default:
		return domain.GitReference{Kind: domain.GitDefaultBranch}
	}
}
