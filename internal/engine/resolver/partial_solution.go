package resolver

import (
	"go.trai.ch/scarb/internal/core/domain"
)

// assignment is either a decision selecting one version or a term derived from cause.
type assignment struct {
	key      pkgKey
	term     term
	level    int
	index    int
	cause    *incompatibility
	decision bool
}

// partialSolution is the ordered list of assignments made so far.
type partialSolution struct {
	assignments []assignment
	level       int
	terms       map[pkgKey]term
	decided     map[pkgKey]domain.Version
	// order remembers when each package was first mentioned so decisions go breadth-first.
	order map[pkgKey]int
}

func newPartialSolution() *partialSolution {
	return &partialSolution{
		terms:   make(map[pkgKey]term),
		decided: make(map[pkgKey]domain.Version),
		order:   make(map[pkgKey]int),
	}
}

func (ps *partialSolution) decide(k pkgKey, v domain.Version) {
	ps.level++
	ps.decided[k] = v
	ps.push(assignment{key: k, term: positive(domain.SingletonRanges(v)), level: ps.level, decision: true})
}

func (ps *partialSolution) derive(k pkgKey, t term, cause *incompatibility) {
	ps.push(assignment{key: k, term: t, level: ps.level, cause: cause})
}

func (ps *partialSolution) push(a assignment) {
	a.index = len(ps.assignments)
	ps.assignments = append(ps.assignments, a)
	if _, ok := ps.order[a.key]; !ok {
		ps.order[a.key] = len(ps.order)
	}
	ps.terms[a.key] = ps.accumulated(a.key).intersect(a.term)
}

// accumulated is the intersection of every assignment of k.
func (ps *partialSolution) accumulated(k pkgKey) term {
	if t, ok := ps.terms[k]; ok {
		return t
	}
	return anyTerm()
}

func (ps *partialSolution) relation(k pkgKey, t term) relation {
	return t.relationTo(ps.accumulated(k))
}

func (ps *partialSolution) satisfies(k pkgKey, t term) bool {
	return ps.relation(k, t) == relSatisfied
}

// satisfier returns the earliest assignment after which the assignments of k satisfy t.
func (ps *partialSolution) satisfier(k pkgKey, t term) (assignment, bool) {
	acc := anyTerm()
	for _, a := range ps.assignments {
		if a.key != k {
			continue
		}
		acc = acc.intersect(a.term)
		if t.relationTo(acc) == relSatisfied {
			return a, true
		}
	}
	return assignment{}, false
}

// backtrack drops every assignment made above level.
func (ps *partialSolution) backtrack(level int) {
	keep := ps.assignments[:0]
	for _, a := range ps.assignments {
		if a.level <= level {
			keep = append(keep, a)
		}
	}
	ps.assignments = keep
	ps.level = level

	clear(ps.terms)
	clear(ps.decided)
	for _, a := range ps.assignments {
		ps.terms[a.key] = ps.accumulated(a.key).intersect(a.term)
		if a.decision {
			v, _ := a.term.set.SingleVersion()
			ps.decided[a.key] = v
		}
	}
}

// nextUndecided returns the earliest mentioned package that must be selected but has no decision yet.
func (ps *partialSolution) nextUndecided() (pkgKey, term, bool) {
	var (
		best  pkgKey
		found bool
	)
	for k, t := range ps.terms {
		if !t.positive {
			continue
		}
		if _, ok := ps.decided[k]; ok {
			continue
		}
		if !found || ps.order[k] < ps.order[best] {
			best, found = k, true
		}
	}
	if !found {
		return pkgKey{}, term{}, false
	}
	return best, ps.terms[best], true
}
