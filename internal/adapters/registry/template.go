// Package registry implements clients for HTTP and local directory package registries.
package registry

import (
	"net/url"
	"strings"

	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/zerr"
)

// TemplateParams are the values available to a template url.
// Empty fields are unavailable and may not appear in the template.
type TemplateParams struct {
	Package string
	Version string
}

// ParamsFor returns the template params of a package id.
func ParamsFor(id domain.PackageID) TemplateParams {
	return TemplateParams{Package: string(id.Name), Version: id.Version.String()}
}

// ExpandTemplate substitutes {package}, {version} and {prefix} in template.
func ExpandTemplate(template string, params TemplateParams) (string, error) {
	prefix := ""
	if params.Package != "" {
		prefix = PackagePrefix(params.Package)
	}

	expanded := template
	for _, r := range []struct{ pattern, value string }{
		{"{package}", params.Package},
		{"{version}", params.Version},
		{"{prefix}", prefix},
	} {
		if r.value == "" {
			if strings.Contains(expanded, r.pattern) {
				return "", zerr.With(zerr.Wrap(domain.ErrTemplateURL, "pattern `"+r.pattern+"` is not available in this context"), "template", template)
			}
			continue
		}
		expanded = strings.ReplaceAll(expanded, r.pattern, r.value)
	}

	if _, err := url.Parse(expanded); err != nil {
		return "", zerr.With(zerr.With(zerr.Wrap(err, domain.ErrTemplateURL.Error()), "template", template), "expansion", expanded)
	}
	return expanded, nil
}

// PackagePrefix shards package names the way registry indexes lay out their files.
func PackagePrefix(name string) string {
	switch len(name) {
	case 1:
		return "1"
	case 2:
		return "2"
	case 3:
		return "3/" + name[:1]
	default:
		return name[0:2] + "/" + name[2:4]
	}
}
