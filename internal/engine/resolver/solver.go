package resolver

import (
	"context"

	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/zerr"
)

// constraint is one dependency edge handed to the solver.
type constraint struct {
	key pkgKey
	set domain.Ranges
}

// provider answers the solver's questions about available packages.
type provider interface {
	// chooseVersion picks the preferred version of k within set, or reports none.
	chooseVersion(ctx context.Context, k pkgKey, set domain.Ranges) (domain.Version, bool, error)
	// dependencies returns the constraints of the selected version.
	dependencies(ctx context.Context, k pkgKey, v domain.Version) ([]constraint, error)
}

// pin fixes a root package to its version.
type pin struct {
	key     pkgKey
	version domain.Version
}

type propagation uint8

const (
	propNone propagation = iota
	propDerived
	propConflict
)

// solver is a PubGrub version solver.
type solver struct {
	provider  provider
	roots     map[pkgKey]domain.Version
	incompats map[pkgKey][]*incompatibility
	solution  *partialSolution
}

func solve(ctx context.Context, p provider, roots []pin) (map[pkgKey]domain.Version, error) {
	s := &solver{
		provider:  p,
		roots:     make(map[pkgKey]domain.Version, len(roots)),
		incompats: make(map[pkgKey][]*incompatibility),
		solution:  newPartialSolution(),
	}

	next := make([]pkgKey, 0, len(roots))
	for _, r := range roots {
		s.roots[r.key] = r.version
		s.add(notRoot(r.key, r.version))
		next = append(next, r.key)
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.propagate(next); err != nil {
			return nil, err
		}

		k, t, ok := s.solution.nextUndecided()
		if !ok {
			out := make(map[pkgKey]domain.Version, len(s.solution.decided))
			for k, v := range s.solution.decided {
				out[k] = v
			}
			return out, nil
		}
		next = []pkgKey{k}

		v, found, err := s.provider.chooseVersion(ctx, k, t.set)
		if err != nil {
			return nil, err
		}
		if !found {
			s.add(noVersions(k, t.set))
			continue
		}

		deps, err := s.provider.dependencies(ctx, k, v)
		if err != nil {
			return nil, err
		}
		conflict := false
		for _, d := range deps {
			if d.key == k {
				return nil, zerr.With(zerr.With(zerr.New("package depends on itself"), "package", string(k.Name)), "version", v.String())
			}
			inc := fromDependency(k, v, d.key, d.set)
			s.add(inc)
			conflict = conflict || s.solution.satisfies(d.key, inc.terms[d.key])
		}
		if !conflict {
			s.solution.decide(k, v)
		}
	}
}

func (s *solver) add(inc *incompatibility) {
	for _, k := range inc.keys {
		s.incompats[k] = append(s.incompats[k], inc)
	}
}

func (s *solver) propagate(changed []pkgKey) error {
	queue := append([]pkgKey(nil), changed...)
	for len(queue) > 0 {
		k := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		list := s.incompats[k]
		for i := len(list) - 1; i >= 0; i-- {
			derived, result := s.propagateOne(list[i])
			if result == propDerived {
				queue = append(queue, derived)
				continue
			}
			if result != propConflict {
				continue
			}

			cause, err := s.resolveConflict(list[i])
			if err != nil {
				return err
			}
			derived, result = s.propagateOne(cause)
			queue = queue[:0]
			if result == propDerived {
				queue = append(queue, derived)
			}
			break
		}
	}
	return nil
}

// propagateOne derives the negation of the only inconclusive term of inc, if all others are satisfied.
func (s *solver) propagateOne(inc *incompatibility) (pkgKey, propagation) {
	var (
		unsatisfied pkgKey
		found       bool
	)
	for _, k := range inc.keys {
		switch s.solution.relation(k, inc.terms[k]) {
		case relContradicted:
			return pkgKey{}, propNone
		case relInconclusive:
			if found {
				return pkgKey{}, propNone
			}
			unsatisfied, found = k, true
		case relSatisfied:
		}
	}
	if !found {
		return pkgKey{}, propConflict
	}
	s.solution.derive(unsatisfied, inc.terms[unsatisfied].negate(), inc)
	return unsatisfied, propDerived
}

// resolveConflict learns a new incompatibility from inc and backjumps to where it becomes useful.
func (s *solver) resolveConflict(inc *incompatibility) (*incompatibility, error) {
	learned := false
	for !inc.isTerminal(s.roots) {
		var (
			recentKey  pkgKey
			recentTerm term
			satisfier  assignment
			difference *term
			found      bool
		)
		previousLevel := 1

		for _, k := range inc.keys {
			t := inc.terms[k]
			sat, ok := s.solution.satisfier(k, t)
			if !ok {
				return nil, zerr.With(zerr.New("resolver reached an inconsistent state"), "package", string(k.Name))
			}
			if found && sat.index <= satisfier.index {
				previousLevel = max(previousLevel, sat.level)
				continue
			}
			if found {
				previousLevel = max(previousLevel, satisfier.level)
			}
			recentKey, recentTerm, satisfier, found = k, t, sat, true
			difference = nil
			if diff := sat.term.intersect(recentTerm.negate()); !diff.isContradiction() {
				difference = &diff
				if prior, ok := s.solution.satisfier(k, diff.negate()); ok {
					previousLevel = max(previousLevel, prior.level)
				}
			}
		}

		if previousLevel < satisfier.level || satisfier.cause == nil {
			s.solution.backtrack(previousLevel)
			if learned {
				s.add(inc)
			}
			return inc, nil
		}

		var (
			keys  []pkgKey
			terms []term
		)
		for _, k := range inc.keys {
			if k != recentKey {
				keys, terms = append(keys, k), append(terms, inc.terms[k])
			}
		}
		for _, k := range satisfier.cause.keys {
			if k != satisfier.key {
				keys, terms = append(keys, k), append(terms, satisfier.cause.terms[k])
			}
		}
		if difference != nil {
			keys, terms = append(keys, recentKey), append(terms, difference.negate())
		}

		next := newIncompatibility(causeDerived, keys, terms)
		next.left, next.right = inc, satisfier.cause
		s.dropRootTerms(next)
		inc = next
		learned = true
	}
	return nil, zerr.Wrap(domain.ErrVersionConflict, explain(inc))
}

// dropRootTerms removes terms that pinned root packages always satisfy.
func (s *solver) dropRootTerms(inc *incompatibility) {
	if len(inc.keys) < 2 {
		return
	}
	keys := inc.keys[:0]
	for _, k := range inc.keys {
		v, isRoot := s.roots[k]
		if t := inc.terms[k]; isRoot && t.positive && t.set.Contains(v) && len(inc.terms) > 1 {
			delete(inc.terms, k)
			continue
		}
		keys = append(keys, k)
	}
	inc.keys = keys
}
