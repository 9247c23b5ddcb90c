package resolver

import (
	"fmt"
	"strings"
)

// explain renders the derivation of a terminal incompatibility as numbered steps.
func explain(root *incompatibility) string {
	if root.kind != causeDerived {
		return "Because " + root.String() + ", version solving failed."
	}
	r := &reporter{numbers: make(map[*incompatibility]int)}
	r.write(root, true)
	return strings.Join(r.lines, "\n")
}

type reporter struct {
	lines   []string
	numbers map[*incompatibility]int
}

func (r *reporter) write(inc *incompatibility, last bool) {
	for _, cause := range []*incompatibility{inc.left, inc.right} {
		if cause.kind == causeDerived {
			if _, done := r.numbers[cause]; !done {
				r.write(cause, false)
			}
		}
	}

	conclusion := inc.String()
	if last {
		conclusion = "version solving failed"
	}
	line := fmt.Sprintf("Because %s and %s, %s.", r.ref(inc.left), r.ref(inc.right), conclusion)
	if !last {
		n := len(r.numbers) + 1
		r.numbers[inc] = n
		line = fmt.Sprintf("(%d) %s", n, line)
	}
	r.lines = append(r.lines, line)
}

func (r *reporter) ref(inc *incompatibility) string {
	if n, ok := r.numbers[inc]; ok {
		return fmt.Sprintf("%s (%d)", inc, n)
	}
	return inc.String()
}
