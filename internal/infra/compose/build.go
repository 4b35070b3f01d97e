package compose

import (
	"context"
	"fmt"

	"dcman/internal/domain/model"
	"dcman/internal/domain/repository"
	"dcman/pkg/log"
	"dcman/pkg/proc"
)

// BuildService builds the service image and waits for the full output.
// Builds get their own, much longer timeout than other actions.
func (r *composeRepository) BuildService(ctx context.Context, svc model.Service) (model.ActionResult, error) {
	return r.buildService(ctx, svc, nil)
}

// BuildServiceStreaming builds the service image while forwarding the
// interleaved stdout/stderr line-by-line to sink, so a live log can be shown
// while the build runs.
func (r *composeRepository) BuildServiceStreaming(ctx context.Context, svc model.Service, sink repository.LineSink) (model.ActionResult, error) {
	return r.buildService(ctx, svc, sink)
}

func (r *composeRepository) buildService(ctx context.Context, svc model.Service, sink repository.LineSink) (model.ActionResult, error) {
	opts := []proc.Option{
		proc.WithDir(svc.ProjectPath),
		proc.WithTimeout(r.config.GetBuildTimeout()),
	}
	if sink != nil {
		opts = append(opts,
			proc.WithStreamSink(proc.Sink(sink)),
			proc.WithMaxBufferedLines(r.config.GetBuildLogMaxLines()),
			proc.WithMergeStderr(),
		)
	}

	res, err := r.run(ctx, "docker", []string{"compose", "build", svc.Name}, opts...)
	if err != nil {
		return model.ActionResult{OK: false, Message: fmt.Sprintf("build of %s canceled", svc.Name)}, err
	}
	// Success is judged solely by the exit code; build output content is
	// informational.
	if res.ExitCode != 0 {
		log.Warn("compose build failed", "service", svc.Key(), "exit_code", res.ExitCode)
		return model.ActionResult{OK: false, Message: failureMessage("build", svc.Name, res)}, nil
	}

	log.Info("compose build succeeded", "service", svc.Key())
	return model.ActionResult{OK: true, Message: fmt.Sprintf("successfully built %s", svc.Name)}, nil
}
