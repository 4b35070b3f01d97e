package application

import (
	"context"
	"sync"

	"dcman/internal/domain/model"
	"dcman/internal/domain/repository"
)

// StatusCoordinator refreshes service statuses. Every targeted service is
// marked loading up front so readers see the refresh is underway, the status
// queries run concurrently (one goroutine per service), and the results land
// in the registry as a single batch once all of them are in.
type StatusCoordinator struct {
	repo     repository.ComposeRepository
	registry *ServiceRegistry
}

// NewStatusCoordinator creates a coordinator over the given repository and
// registry.
func NewStatusCoordinator(repo repository.ComposeRepository, registry *ServiceRegistry) *StatusCoordinator {
	return &StatusCoordinator{repo: repo, registry: registry}
}

// Refresh re-queries the status of every given service and applies the
// results atomically. It blocks until the slowest query returns; each query
// is bounded by the repository's status timeout.
func (c *StatusCoordinator) Refresh(ctx context.Context, services []model.Service) {
	if len(services) == 0 {
		return
	}

	keys := make([]string, len(services))
	for i, svc := range services {
		keys[i] = svc.Key()
	}
	c.registry.MarkStatuses(keys, model.StatusLoading)

	results := make([]string, len(services))
	var wg sync.WaitGroup
	for i, svc := range services {
		wg.Add(1)
		go func(i int, svc model.Service) {
			defer wg.Done()
			results[i] = c.repo.ServiceStatus(ctx, svc)
		}(i, svc)
	}
	wg.Wait()

	statuses := make(map[string]string, len(services))
	for i, key := range keys {
		statuses[key] = results[i]
	}
	c.registry.ApplyStatuses(statuses)
}
