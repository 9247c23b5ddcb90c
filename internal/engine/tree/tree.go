// Package tree renders the resolved dependency graph of workspace members.
package tree

import (
	"encoding/json"
	"errors"
	"slices"
	"strings"

	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/ui/style"
)

// Unlimited disables the depth limit.
const Unlimited = -1

// Options tune which parts of the graph are shown.
type Options struct {
	// Depth is the maximum depth to display, roots being at depth 0. Unlimited shows everything.
	Depth int
	// Core shows the core package.
	Core bool
	// NoDedupe repeats subtrees of packages that were already printed.
	NoDedupe bool
	// Prune hides the named packages together with their subtrees.
	Prune []domain.PackageName
}

// Node is one package of the tree, or a group of dependencies such as dev-dependencies.
type Node struct {
	Package                 *domain.PackageID `json:"package,omitempty"`
	Group                   string            `json:"group,omitempty"`
	Branches                []*Node           `json:"branches,omitempty"`
	MaxDepthReached         bool              `json:"max_depth_reached,omitempty"`
	AlreadyVisitedDuplicate bool              `json:"already_visited_duplicate,omitempty"`
}

func (n *Node) branch() *Node {
	b := &Node{}
	n.Branches = append(n.Branches, b)
	return b
}

func (n *Node) rollback() {
	n.Branches = n.Branches[:len(n.Branches)-1]
}

// Forest holds one tree per root package.
type Forest struct {
	Roots []*Node
}

var (
	errPruned          = errors.New("pruned")
	errMaxDepthReached = errors.New("max depth reached")
)

// Build walks the graph from every root. A package already printed elsewhere, or
// reached again through a cycle, is shown once more with the (*) marker and not expanded.
func Build(resolve *domain.Resolve, roots []domain.PackageID, opts Options) *Forest {
	forest := &Node{}
	visited := make(map[domain.PackageID]bool)
	for _, root := range roots {
		v := &visitor{main: root, visited: visited, resolve: resolve, opts: opts}
		_ = v.visit(root, forest.branch(), 0)
	}
	return &Forest{Roots: forest.Branches}
}

type visitor struct {
	main    domain.PackageID
	visited map[domain.PackageID]bool
	stack   []domain.PackageID
	resolve *domain.Resolve
	opts    Options
}

func (v *visitor) visit(id domain.PackageID, n *Node, depth int) error {
	v.stack = append(v.stack, id)
	defer func() { v.stack = v.stack[:len(v.stack)-1] }()

	if id.IsCore() && !v.opts.Core {
		return errPruned
	}
	if slices.Contains(v.opts.Prune, id.Name) {
		return errPruned
	}
	if v.opts.Depth != Unlimited && depth > v.opts.Depth {
		n.MaxDepthReached = true
		return errMaxDepthReached
	}

	n.Package = &id
	duplicate := v.visited[id] && !v.opts.NoDedupe
	cycle := countOf(v.stack, id) > 1
	n.AlreadyVisitedDuplicate = duplicate || cycle
	if n.AlreadyVisitedDuplicate {
		return nil
	}
	v.visited[id] = true

	isRoot := id == v.main
	normal := v.resolve.DependenciesOfKind(id, domain.TargetKindLib, isRoot)
	v.visitDeps(normal, n, depth)

	var devOnly []domain.PackageID
	for _, dep := range v.resolve.DependenciesOfKind(id, domain.TargetKindTest, isRoot) {
		if !slices.Contains(normal, dep) {
			devOnly = append(devOnly, dep)
		}
	}
	dev := n.branch()
	dev.Group = "dev-dependencies"
	v.visitDeps(devOnly, dev, depth)
	if len(dev.Branches) == 0 {
		n.rollback()
	}
	return nil
}

func (v *visitor) visitDeps(deps []domain.PackageID, n *Node, depth int) {
	for _, dep := range deps {
		err := v.visit(dep, n.branch(), depth+1)
		if errors.Is(err, errPruned) {
			n.rollback()
		}
		if errors.Is(err, errMaxDepthReached) {
			// One "..." stub per level is enough.
			break
		}
	}
}

func countOf(stack []domain.PackageID, id domain.PackageID) int {
	n := 0
	for _, s := range stack {
		if s == id {
			n++
		}
	}
	return n
}

// String renders the forest with box-drawing guides, one blank line between roots.
func (f *Forest) String() string {
	var b strings.Builder
	var last []bool
	for _, root := range f.Roots {
		render(&b, root, &last)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), " \n")
}

func render(b *strings.Builder, n *Node, last *[]bool) {
	for i, isLast := range *last {
		leaf := i == len(*last)-1
		switch {
		case isLast && leaf:
			b.WriteString(style.TreeLast)
		case leaf:
			b.WriteString(style.TreeBranch)
		case isLast:
			b.WriteString(style.TreeSpace)
		default:
			b.WriteString(style.TreePipe)
		}
	}
	if n.Package != nil {
		b.WriteString(n.Package.String())
	}
	if n.Group != "" {
		b.WriteString("[" + n.Group + "]")
	}
	if n.AlreadyVisitedDuplicate {
		b.WriteString(" (*)")
	}
	if n.MaxDepthReached {
		b.WriteString("...")
	}
	b.WriteByte('\n')

	for i, child := range n.Branches {
		*last = append(*last, i == len(n.Branches)-1)
		render(b, child, last)
		*last = (*last)[:len(*last)-1]
	}
}

// MarshalJSON implements json.Marshaler; the forest encodes as the list of its roots.
func (f *Forest) MarshalJSON() ([]byte, error) {
	roots := f.Roots
	if roots == nil {
		roots = []*Node{}
	}
	return json.Marshal(roots)
}
