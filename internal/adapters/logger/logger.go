// Package logger implements a logging adapter using log/slog.
package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
)

var _ ports.Logger = (*Logger)(nil)

// messager is implemented by zerr errors; Message omits the cause chain.
type messager interface {
	Message() string
}

// metadataer is implemented by zerr errors carrying key/value pairs.
type metadataer interface {
	Metadata() map[string]any
}

// ErrorEntry is one link of an error chain.
type ErrorEntry struct {
	Message  string
	Metadata map[string]any
}

// Logger implements ports.Logger using log/slog.
type Logger struct {
	logger    *slog.Logger
	mu        sync.RWMutex
	jsonMode  bool
	output    io.Writer
	level     *slog.LevelVar
	verbosity domain.Verbosity
}

// New creates a new Logger writing to stderr.
func New() *Logger {
	l := &Logger{
		output:    os.Stderr,
		level:     &slog.LevelVar{},
		verbosity: domain.VerbosityNormal,
	}
	l.rebuild()
	return l
}

func (l *Logger) rebuild() {
	opts := &slog.HandlerOptions{Level: l.level}
	if l.jsonMode {
		l.logger = slog.New(slog.NewJSONHandler(l.output, opts))
		return
	}
	l.logger = slog.New(NewPrettyHandler(l.output, opts))
}

// SetOutput updates the logger's output destination.
// If w is nil, os.Stderr is used.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if w == nil {
		w = os.Stderr
	}
	l.output = w
	l.rebuild()
}

// SetJSON switches between JSON and pretty logging.
func (l *Logger) SetJSON(enable bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.jsonMode = enable
	l.rebuild()
}

// SetVerbosity maps the UI verbosity onto log levels.
// Quiet only prints errors; verbose enables debug messages and error metadata.
func (l *Logger) SetVerbosity(v domain.Verbosity) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.verbosity = v
	switch v {
	case domain.VerbosityQuiet:
		l.level.Set(slog.LevelError)
	case domain.VerbosityVerbose:
		l.level.Set(slog.LevelDebug)
	default:
		l.level.Set(slog.LevelInfo)
	}
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Debug(msg)
}

// Info logs an informational message.
func (l *Logger) Info(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Info(msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Warn(msg)
}

// Error logs an error and its cause chain.
func (l *Logger) Error(err error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if err == nil {
		return
	}

	if l.jsonMode {
		l.logger.Error(err.Error())
		return
	}

	entries := collectErrorEntries(err)
	l.logger.Error(formatErrorEntries(entries, l.verbosity == domain.VerbosityVerbose))
}

// collectErrorEntries walks the chain, merging metadata-only links into the link they annotate.
func collectErrorEntries(err error) []ErrorEntry {
	var entries []ErrorEntry
	var pending map[string]any

	for current := err; current != nil; {
		m, ok := current.(messager)
		if !ok {
			entries = append(entries, ErrorEntry{Message: current.Error(), Metadata: pending})
			break
		}

		var meta map[string]any
		if md, ok := current.(metadataer); ok {
			meta = md.Metadata()
		}
		if m.Message() == "" {
			pending = mergeMetadata(pending, meta)
			current = errors.Unwrap(current)
			continue
		}

		entries = append(entries, ErrorEntry{Message: m.Message(), Metadata: mergeMetadata(pending, meta)})
		pending = nil
		current = errors.Unwrap(current)
	}

	return entries
}

func mergeMetadata(a, b map[string]any) map[string]any {
	if len(a) == 0 {
		return b
	}
	out := make(map[string]any, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

// formatErrorEntries renders:
//
//	<leaf>
//
//	Caused by:
//	    <cause>
func formatErrorEntries(entries []ErrorEntry, withMetadata bool) string {
	lines := make([]string, 0, len(entries)+2)

	for i, entry := range entries {
		text := entry.Message
		if withMetadata && len(entry.Metadata) > 0 {
			text += " " + formatMetadata(entry.Metadata)
		}
		parts := strings.Split(text, "\n")

		if i == 0 {
			lines = append(lines, parts...)
			continue
		}
		if i == 1 {
			lines = append(lines, "", "Caused by:")
		}
		for _, p := range parts {
			lines = append(lines, "    "+p)
		}
	}

	return strings.Join(lines, "\n")
}

func formatMetadata(meta map[string]any) string {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, meta[k]))
	}
	return strings.Join(parts, " ")
}
