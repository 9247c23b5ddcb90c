package ports

import (
	"context"

	"go.trai.ch/scarb/internal/core/domain"
)

// GitClient performs git operations on bare repositories.
//
//go:generate mockgen -source=git.go -destination=mocks/mock_git.go -package=mocks
type GitClient interface {
	// InitBare creates a bare repository at db if none exists.
	InitBare(ctx context.Context, db string) error
	// Fetch updates db from remote for the given reference.
	Fetch(ctx context.Context, db, remote string, ref domain.GitReference) error
	// ResolveReference returns the commit id the reference points to in db.
	ResolveReference(ctx context.Context, db string, ref domain.GitReference) (string, error)
	// Checkout writes the tree of commit into dest.
	Checkout(ctx context.Context, db, commit, dest string) error
}
