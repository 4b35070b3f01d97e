package compose

import (
	"context"
	"fmt"
	"strings"

	"dcman/internal/domain/model"
	"dcman/pkg/log"
	"dcman/pkg/proc"
)

// StartService brings the service up in the background. `docker compose up`
// is idempotent, and starting one service also brings up its declared
// dependencies, which is why callers re-query the whole project afterwards.
func (r *composeRepository) StartService(ctx context.Context, svc model.Service) (model.ActionResult, error) {
	return r.runAction(ctx, svc, "start", []string{"compose", "up", "-d", svc.Name})
}

// StopService stops the single targeted service.
func (r *composeRepository) StopService(ctx context.Context, svc model.Service) (model.ActionResult, error) {
	return r.runAction(ctx, svc, "stop", []string{"compose", "stop", svc.Name})
}

// RestartService restarts the single targeted service.
func (r *composeRepository) RestartService(ctx context.Context, svc model.Service) (model.ActionResult, error) {
	return r.runAction(ctx, svc, "restart", []string{"compose", "restart", svc.Name})
}

// runAction executes one state-changing docker compose command and folds its
// outcome into an ActionResult. Success is judged solely by exit code zero.
func (r *composeRepository) runAction(ctx context.Context, svc model.Service, verb string, args []string) (model.ActionResult, error) {
	res, err := r.run(ctx, "docker", args,
		proc.WithDir(svc.ProjectPath),
		proc.WithTimeout(r.config.GetActionTimeout()),
	)
	if err != nil {
		return model.ActionResult{OK: false, Message: fmt.Sprintf("%s of %s canceled", verb, svc.Name)}, err
	}
	if res.ExitCode != 0 {
		log.Warn("compose action failed", "service", svc.Key(), "action", verb, "exit_code", res.ExitCode, "stderr", res.Stderr)
		return model.ActionResult{OK: false, Message: failureMessage(verb, svc.Name, res)}, nil
	}

	log.Debug("compose action succeeded", "service", svc.Key(), "action", verb)
	return model.ActionResult{OK: true, Message: fmt.Sprintf("successfully executed %s on %s", verb, svc.Name)}, nil
}

// failureMessage condenses a failed command into one short line, preferring
// stderr since compose writes its diagnostics there.
func failureMessage(verb, name string, res proc.Result) string {
	detail := strings.TrimSpace(res.Stderr)
	if detail == "" {
		detail = strings.TrimSpace(res.Stdout)
	}
	if detail == "" {
		detail = fmt.Sprintf("exit code %d", res.ExitCode)
	}
	if i := strings.LastIndexByte(detail, '\n'); i >= 0 {
		detail = strings.TrimSpace(detail[i+1:])
	}
	return fmt.Sprintf("%s of %s failed: %s", verb, name, detail)
}
