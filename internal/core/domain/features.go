package domain

import (
	"slices"
	"sort"

	"go.trai.ch/zerr"
)

// FeaturesOpts are the feature selection flags of one invocation.
type FeaturesOpts struct {
	Features          []string
	NoDefaultFeatures bool
	AllFeatures       bool
}

// ResolveFeatures returns the sorted, closed set of enabled features.
// Requested features must be declared; implied features are followed transitively.
func ResolveFeatures(def FeaturesDefinition, opts FeaturesOpts) ([]string, error) {
	enabled := map[string]struct{}{}
	var queue []string

	if opts.AllFeatures {
		for name := range def {
			queue = append(queue, name)
		}
	} else {
		for _, f := range opts.Features {
			if _, ok := def[f]; !ok {
				return nil, zerr.With(zerr.Wrap(ErrUnknownFeature, "none of the selected packages contains this feature"), "feature", f)
			}
			queue = append(queue, f)
		}
		if _, ok := def[DefaultFeatureName]; ok && !opts.NoDefaultFeatures {
			queue = append(queue, DefaultFeatureName)
		}
	}

	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		if _, seen := enabled[f]; seen {
			continue
		}
		implied, ok := def[f]
		if !ok {
			return nil, zerr.With(zerr.Wrap(ErrUnknownFeature, "feature implies an undeclared feature"), "feature", f)
		}
		enabled[f] = struct{}{}
		queue = append(queue, implied...)
	}

	out := make([]string, 0, len(enabled))
	for f := range enabled {
		if f == DefaultFeatureName {
			continue
		}
		out = append(out, f)
	}
	sort.Strings(out)
	return out, nil
}

// DependencyFeatures returns the features a dependency declaration turns on for its target package.
func DependencyFeatures(def FeaturesDefinition, dep ManifestDependency) ([]string, error) {
	requested := slices.Clone(dep.Features)
	return ResolveFeatures(def, FeaturesOpts{Features: requested, NoDefaultFeatures: !dep.DefaultFeatures})
}
