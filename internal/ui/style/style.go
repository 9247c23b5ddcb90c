// Package style provides shared colors and glyphs for terminal output.
package style

import "github.com/charmbracelet/lipgloss"

// Palette.
var (
	Slate  = lipgloss.Color("#667085")
	Green  = lipgloss.Color("#22A06B")
	Red    = lipgloss.Color("#D93025")
	Yellow = lipgloss.Color("#F59E0B")
)

// Tree drawing glyphs used by dependency trees.
const (
	TreeBranch = "├── "
	TreeLast   = "└── "
	TreePipe   = "│   "
	TreeSpace  = "    "
)

// StatusWidth is the column the status verb is right-aligned to.
const StatusWidth = 12
