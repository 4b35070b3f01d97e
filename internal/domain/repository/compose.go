// Package repository declares the interfaces the application layer depends
// on; the infra layer provides the docker-backed implementations.
package repository

import (
	"context"

	"dcman/internal/domain/model"
)

// LineSink receives one line of streamed command output at a time.
type LineSink func(line string)

// ComposeRepository translates domain operations into docker compose
// commands and interprets their results. Command failures never surface as
// errors; they are folded into the result values. The returned error is
// non-nil only when the calling context was canceled, so a shutdown sequence
// can confirm that in-flight commands have been reaped.
type ComposeRepository interface {
	// ServiceStatus resolves the current status of a service. Any failure
	// along the way, cancellation included, resolves to model.StatusUnknown.
	ServiceStatus(ctx context.Context, svc model.Service) string

	// StartService brings the service up in the background. Starting one
	// service may bring up its declared dependencies as a side effect.
	StartService(ctx context.Context, svc model.Service) (model.ActionResult, error)

	// StopService stops the single targeted service.
	StopService(ctx context.Context, svc model.Service) (model.ActionResult, error)

	// RestartService restarts the single targeted service.
	RestartService(ctx context.Context, svc model.Service) (model.ActionResult, error)

	// BuildService builds the service image, waiting for full output.
	BuildService(ctx context.Context, svc model.Service) (model.ActionResult, error)

	// BuildServiceStreaming builds the service image, forwarding interleaved
	// stdout/stderr line-by-line to sink while the build runs.
	BuildServiceStreaming(ctx context.Context, svc model.Service, sink LineSink) (model.ActionResult, error)

	// ServiceLogs fetches the last tail lines of the service's logs, or a
	// placeholder string when the service produced no output.
	ServiceLogs(ctx context.Context, svc model.Service, tail int) string
}
