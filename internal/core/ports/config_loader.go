package ports

import (
	"github.com/spf13/pflag"
	"go.trai.ch/scarb/internal/core/domain"
)

// ConfigLoader builds the configuration of one invocation.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load layers defaults, the user config file, SCARB_* variables and flags.
	Load(flags *pflag.FlagSet) (*domain.Config, error)
}
