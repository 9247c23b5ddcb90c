// Package ui implements ports.Reporter for plain terminals and JSON consumers.
package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/scarb/internal/ui/output"
	"go.trai.ch/scarb/internal/ui/style"
)

var _ ports.Reporter = (*Reporter)(nil)

// Reporter prints status lines to stdout.
// In JSON mode every call produces exactly one JSON object per line.
type Reporter struct {
	mu        sync.Mutex
	out       *termenv.Output
	json      bool
	verbosity domain.Verbosity
}

// New creates a Reporter writing to stdout.
func New() *Reporter {
	return NewWithWriter(os.Stdout)
}

// NewWithWriter creates a Reporter writing to w.
func NewWithWriter(w io.Writer) *Reporter {
	return &Reporter{
		out:       output.New(w),
		verbosity: domain.VerbosityNormal,
	}
}

// Configure applies output mode and verbosity.
func (r *Reporter) Configure(jsonMode bool, verbosity domain.Verbosity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.json = jsonMode
	if verbosity != "" {
		r.verbosity = verbosity
	}
}

// SetOutput redirects every later line to w.
func (r *Reporter) SetOutput(w io.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.out = output.New(w)
}

// Verbosity implements ports.Reporter.
func (r *Reporter) Verbosity() domain.Verbosity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.verbosity
}

type statusMessage struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type typedMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Status prints a right-aligned, bold green status verb followed by message.
func (r *Reporter) Status(status, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.verbosity == domain.VerbosityQuiet {
		return
	}
	if r.json {
		r.writeJSON(statusMessage{Status: strings.ToLower(status), Message: message})
		return
	}

	verb := fmt.Sprintf("%*s", style.StatusWidth, status)
	styled := r.out.String(verb).Bold().Foreground(termenv.RGBColor(string(style.Green)))
	_, _ = r.out.WriteString(styled.String() + " " + message + "\n")
}

// Warn prints a warning line.
func (r *Reporter) Warn(message string) {
	r.prefixed("warn", style.Yellow, message)
}

// Error prints an error line.
func (r *Reporter) Error(message string) {
	r.prefixed("error", style.Red, message)
}

func (r *Reporter) prefixed(kind string, color lipgloss.Color, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.verbosity == domain.VerbosityQuiet && kind != "error" {
		return
	}
	if r.json {
		r.writeJSON(typedMessage{Type: kind, Message: message})
		return
	}

	label := r.out.String(kind + ":").Bold().Foreground(termenv.RGBColor(string(color)))
	_, _ = r.out.WriteString(label.String() + " " + message + "\n")
}

// Print writes a raw line.
func (r *Reporter) Print(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.json {
		r.writeJSON(typedMessage{Type: "print", Message: message})
		return
	}
	_, _ = r.out.WriteString(message + "\n")
}

// Data writes v as JSON: compact in JSON mode, indented otherwise.
func (r *Reporter) Data(v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		raw []byte
		err error
	)
	if r.json {
		raw, err = json.Marshal(v)
	} else {
		raw, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return err
	}
	_, err = r.out.WriteString(string(raw) + "\n")
	return err
}

func (r *Reporter) writeJSON(v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = r.out.WriteString(string(raw) + "\n")
}
