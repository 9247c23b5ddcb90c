package resolver

import (
	"fmt"
	"strings"

	"go.trai.ch/scarb/internal/core/domain"
)

type causeKind uint8

const (
	causeRoot causeKind = iota
	causeNoVersions
	causeDependency
	causeDerived
)

// incompatibility is a set of terms that must not all be true at once.
type incompatibility struct {
	keys  []pkgKey
	terms map[pkgKey]term
	kind  causeKind
	// left and right are the incompatibilities a derived one was learned from.
	left, right *incompatibility
}

func newIncompatibility(kind causeKind, keys []pkgKey, terms []term) *incompatibility {
	inc := &incompatibility{kind: kind, terms: make(map[pkgKey]term, len(terms))}
	for i, k := range keys {
		if prev, ok := inc.terms[k]; ok {
			inc.terms[k] = prev.intersect(terms[i])
			continue
		}
		inc.keys = append(inc.keys, k)
		inc.terms[k] = terms[i]
	}
	return inc
}

func notRoot(k pkgKey, v domain.Version) *incompatibility {
	return newIncompatibility(causeRoot, []pkgKey{k}, []term{negative(domain.SingletonRanges(v))})
}

func noVersions(k pkgKey, set domain.Ranges) *incompatibility {
	return newIncompatibility(causeNoVersions, []pkgKey{k}, []term{positive(set)})
}

func fromDependency(k pkgKey, v domain.Version, dep pkgKey, set domain.Ranges) *incompatibility {
	return newIncompatibility(causeDependency,
		[]pkgKey{k, dep},
		[]term{positive(domain.SingletonRanges(v)), negative(set)})
}

// isTerminal reports whether the incompatibility proves that no solution exists.
func (inc *incompatibility) isTerminal(roots map[pkgKey]domain.Version) bool {
	if len(inc.keys) == 0 {
		return true
	}
	if len(inc.keys) != 1 {
		return false
	}
	k := inc.keys[0]
	v, ok := roots[k]
	t := inc.terms[k]
	return ok && t.positive && t.set.Contains(v)
}

func (inc *incompatibility) String() string {
	switch inc.kind {
	case causeRoot:
		k := inc.keys[0]
		return fmt.Sprintf("%s is %s", k, inc.terms[k].set)
	case causeNoVersions:
		k := inc.keys[0]
		return fmt.Sprintf("no versions of %s match %s", k, inc.terms[k].set)
	case causeDependency:
		depender, dependee := inc.keys[0], inc.keys[1]
		return fmt.Sprintf("%s depends on %s",
			inc.terms[depender].describe(depender),
			inc.terms[dependee].negate().describe(dependee))
	}

	keys := inc.keys
	switch len(keys) {
	case 0:
		return "version solving failed"
	case 1:
		k := keys[0]
		t := inc.terms[k]
		if t.positive {
			return t.describe(k) + " is forbidden"
		}
		return t.negate().describe(k) + " is required"
	}

	var pos, neg []pkgKey
	for _, k := range keys {
		if inc.terms[k].positive {
			pos = append(pos, k)
		} else {
			neg = append(neg, k)
		}
	}
	if len(pos) == 1 && len(neg) == 1 {
		return fmt.Sprintf("%s requires %s",
			inc.terms[pos[0]].describe(pos[0]),
			inc.terms[neg[0]].negate().describe(neg[0]))
	}
	if len(neg) == 0 && len(pos) == 2 {
		return fmt.Sprintf("%s is incompatible with %s",
			inc.terms[pos[0]].describe(pos[0]),
			inc.terms[pos[1]].describe(pos[1]))
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, inc.terms[k].describe(k))
	}
	return "one of " + strings.Join(parts, " or ") + " must be false"
}
