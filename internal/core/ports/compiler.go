package ports

import (
	"context"

	"go.trai.ch/scarb/internal/core/domain"
)

// Compiler compiles one Cairo compilation unit.
//
//go:generate mockgen -source=compiler.go -destination=mocks/mock_compiler.go -package=mocks
type Compiler interface {
	Compile(ctx context.Context, req *domain.CompileRequest) (*domain.CompileResult, error)
}
