// Package docker provides a thin reachability probe for the Docker daemon.
// dcman drives everything else through the docker CLI, but checking the
// daemon once at startup turns "every status shows unknown" into one clear
// warning.
package docker

import (
	"context"
	"fmt"

	"github.com/docker/docker/client"

	"dcman/pkg/log"
)

// Probe wraps an SDK client used only for Ping and ServerVersion.
type Probe struct {
	api *client.Client
}

// NewProbe creates a daemon probe using the standard environment settings
// (DOCKER_HOST etc.).
func NewProbe() (*Probe, error) {
	api, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &Probe{api: api}, nil
}

// Check pings the daemon and logs its version. The returned error describes
// an unreachable daemon; the caller decides whether that is fatal.
func (p *Probe) Check(ctx context.Context) error {
	if _, err := p.api.Ping(ctx); err != nil {
		return fmt.Errorf("docker daemon is not reachable: %w", err)
	}

	version, err := p.api.ServerVersion(ctx)
	if err != nil {
		// Reachable but not introspectable is still usable.
		log.Warn("could not read docker server version", "error", err)
		return nil
	}
	log.Info("docker daemon reachable", "version", version.Version, "api_version", version.APIVersion)
	return nil
}

// Close releases the underlying client.
func (p *Probe) Close() error {
	return p.api.Close()
}
