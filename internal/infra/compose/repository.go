// Package compose implements repository.ComposeRepository by shelling out
// to the docker CLI, one command per operation, with the working directory
// set to the owning project's path.
package compose

import (
	"context"

	"dcman/internal/application/config"
	"dcman/internal/domain/repository"
	"dcman/pkg/proc"
)

// runFunc matches proc.Run so tests can substitute a fake process runner.
type runFunc func(ctx context.Context, name string, args []string, opts ...proc.Option) (proc.Result, error)

type composeRepository struct {
	config *config.Config
	run    runFunc
}

// NewRepository creates the docker-CLI-backed compose repository.
func NewRepository(cfg *config.Config) repository.ComposeRepository {
	return &composeRepository{
		config: cfg,
		run:    proc.Run,
	}
}
