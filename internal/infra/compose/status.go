package compose

import (
	"context"
	"strings"

	"dcman/internal/domain/model"
	"dcman/pkg/log"
	"dcman/pkg/proc"
)

// ServiceStatus resolves a service's status with a two-step query: list the
// running container id, then inspect its state. Empty ps output means no
// container exists, so the service is stopped. Every failure along the way
// collapses to "unknown" because an undeterminable status is itself a valid,
// displayable state.
func (r *composeRepository) ServiceStatus(ctx context.Context, svc model.Service) string {
	res, err := r.run(ctx, "docker", []string{"compose", "ps", "-q", svc.Name},
		proc.WithDir(svc.ProjectPath),
		proc.WithTimeout(r.config.GetStatusTimeout()),
	)
	if err != nil || res.ExitCode != 0 {
		log.Debug("status query failed", "service", svc.Key(), "exit_code", res.ExitCode, "stderr", res.Stderr)
		return model.StatusUnknown
	}

	containerID := strings.TrimSpace(res.Stdout)
	if containerID == "" {
		return model.StatusStopped
	}
	// Scaled services list one id per line; the first replica stands in for
	// the service.
	if i := strings.IndexByte(containerID, '\n'); i >= 0 {
		containerID = strings.TrimSpace(containerID[:i])
	}

	res, err = r.run(ctx, "docker", []string{"inspect", "-f", "{{.State.Status}}", containerID},
		proc.WithTimeout(r.config.GetStatusTimeout()),
	)
	if err != nil || res.ExitCode != 0 {
		log.Debug("inspect failed", "service", svc.Key(), "container_id", containerID, "exit_code", res.ExitCode)
		return model.StatusUnknown
	}

	state := strings.TrimSpace(res.Stdout)
	if state == "" {
		return model.StatusUnknown
	}
	return state
}
