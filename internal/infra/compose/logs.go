package compose

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"dcman/internal/domain/model"
	"dcman/pkg/log"
	"dcman/pkg/proc"
)

// ServiceLogs fetches the last tail lines of a service's logs. The fetch
// timeout is short so a slow daemon cannot stall a refresh cycle; any
// failure or empty output yields a placeholder string instead of an error.
func (r *composeRepository) ServiceLogs(ctx context.Context, svc model.Service, tail int) string {
	if tail <= 0 {
		tail = r.config.GetLogTailLines()
	}

	res, err := r.run(ctx, "docker", []string{"compose", "logs", "--tail", strconv.Itoa(tail), svc.Name},
		proc.WithDir(svc.ProjectPath),
		proc.WithTimeout(r.config.GetLogsTimeout()),
	)
	if err != nil || res.ExitCode != 0 {
		log.Debug("log fetch failed", "service", svc.Key(), "exit_code", res.ExitCode, "stderr", res.Stderr)
		return fmt.Sprintf("no logs available for %s", svc.Name)
	}

	out := strings.TrimRight(res.Stdout, "\n")
	if strings.TrimSpace(out) == "" {
		return fmt.Sprintf("no logs available for %s", svc.Name)
	}
	return out
}
