package ports

import "go.trai.ch/scarb/internal/core/domain"

// Reporter prints user-facing progress and results.
//
//go:generate mockgen -source=reporter.go -destination=mocks/mock_reporter.go -package=mocks
type Reporter interface {
	// Status prints a status line such as "Compiling hello v0.1.0".
	Status(status, message string)
	// Warn prints a warning.
	Warn(message string)
	// Error prints an error message without aborting.
	Error(message string)
	// Print writes a raw line to stdout.
	Print(message string)
	// Data writes a structured value; plain mode prints it as indented JSON.
	Data(v any) error
	// Verbosity returns the configured verbosity.
	Verbosity() domain.Verbosity
}
