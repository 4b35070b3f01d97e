package application

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"vawter.tech/stopper"

	"dcman/internal/application/config"
	"dcman/internal/domain/model"
	"dcman/internal/domain/repository"
	"dcman/internal/infra/discovery"
	"dcman/pkg/log"
)

// scanFunc discovers compose projects under a root directory. Swappable in
// tests.
type scanFunc func(rootPath string) ([]discovery.ProjectDefinition, error)

// ProjectLoaded is one discovery event: a project's services were registered
// and their first status refresh has been kicked off.
type ProjectLoaded struct {
	ProjectName string
	Services    []model.Service
}

// Orchestrator ties discovery, the registry, status refreshes, and compose
// actions together behind one façade. All spawned work runs under a stopper
// context so Close can soft-stop, cancel after a grace period, and wait for
// every in-flight command to be reaped before returning.
type Orchestrator struct {
	cfg         *config.Config
	repo        repository.ComposeRepository
	registry    *ServiceRegistry
	coordinator *StatusCoordinator
	gate        *ActionGate
	buildLogs   *BuildLogStore
	scan        scanFunc

	sctx     *stopper.Context
	inFlight sync.WaitGroup
}

// NewOrchestrator wires up an orchestrator. The stopper context derives from
// ctx, so canceling ctx also shuts the orchestrator down.
func NewOrchestrator(ctx *stopper.Context, cfg *config.Config, repo repository.ComposeRepository) *Orchestrator {
	registry := NewServiceRegistry()
	o := &Orchestrator{
		cfg:         cfg,
		repo:        repo,
		registry:    registry,
		coordinator: NewStatusCoordinator(repo, registry),
		gate:        NewActionGate(registry),
		buildLogs:   NewBuildLogStore(cfg.GetBuildLogRetention()),
		scan:        discovery.Scan,
		sctx:        ctx,
	}
	o.sctx.Defer(o.buildLogs.Close)
	return o
}

// Services returns a snapshot of every known service in discovery order.
func (o *Orchestrator) Services() []model.Service {
	return o.registry.Snapshot()
}

// Service returns a snapshot of one service.
func (o *Orchestrator) Service(project, name string) (model.Service, bool) {
	return o.registry.Get(project, name)
}

// DiscoverAndLoad scans the configured root for compose projects and loads
// them one by one in the background: each project's services are registered
// as loading, announced on the returned channel, and then refreshed. The
// channel is closed once every project is loaded. The scan itself runs
// synchronously so a bad root fails fast.
func (o *Orchestrator) DiscoverAndLoad() (<-chan ProjectLoaded, error) {
	defs, err := o.scan(o.cfg.RootPath)
	if err != nil {
		return nil, err
	}
	log.Info("discovered compose projects", "root", o.cfg.RootPath, "projects", len(defs))

	o.registry.Clear()
	ch := make(chan ProjectLoaded, len(defs))
	o.sctx.Go(func(sctx *stopper.Context) error {
		defer close(ch)
		for _, def := range defs {
			if sctx.IsStopping() {
				return nil
			}
			services := servicesFromDefinition(def)
			o.registry.ReplaceProject(def.ProjectName, services)
			ch <- ProjectLoaded{ProjectName: def.ProjectName, Services: services}
			o.coordinator.Refresh(sctx, services)
		}
		return nil
	})
	return ch, nil
}

// WatchComposeFiles re-loads a project whenever its compose file changes, so
// added or removed services show up without a restart. Returns immediately;
// the watcher runs until shutdown.
func (o *Orchestrator) WatchComposeFiles() {
	seen := make(map[string]bool)
	var files []string
	for _, svc := range o.registry.Snapshot() {
		if !seen[svc.ComposeFile] {
			seen[svc.ComposeFile] = true
			files = append(files, svc.ComposeFile)
		}
	}

	watcher := discovery.NewWatcher(files, func(composeFile string) {
		def, err := discovery.ParseComposeFile(composeFile)
		if err != nil {
			log.Warn("ignoring unparseable compose file change", "file", composeFile, "error", err)
			return
		}
		services := servicesFromDefinition(def)
		o.registry.ReplaceProject(def.ProjectName, services)
		o.coordinator.Refresh(o.sctx, services)
	})

	o.sctx.Go(func(sctx *stopper.Context) error {
		if err := watcher.Run(sctx); err != nil && !sctx.IsStopping() {
			return err
		}
		return nil
	})
}

// RefreshAll re-queries the status of every known service.
func (o *Orchestrator) RefreshAll() {
	o.inFlight.Add(1)
	defer o.inFlight.Done()
	o.coordinator.Refresh(o.sctx, o.registry.Snapshot())
}

// RefreshProject re-queries the status of one project's services.
func (o *Orchestrator) RefreshProject(project string) {
	o.inFlight.Add(1)
	defer o.inFlight.Done()
	o.coordinator.Refresh(o.sctx, o.registry.Project(project))
}

// RefreshOne re-queries the status of a single service.
func (o *Orchestrator) RefreshOne(project, name string) {
	o.inFlight.Add(1)
	defer o.inFlight.Done()
	if svc, ok := o.registry.Get(project, name); ok {
		o.coordinator.Refresh(o.sctx, []model.Service{svc})
	}
}

// PerformAction runs a start, stop, restart, or toggle against one service
// and returns the outcome together with the service's post-action snapshot.
// A busy (loading or building) service is rejected without side effects.
// The returned error is non-nil only when the action was canceled by
// shutdown.
func (o *Orchestrator) PerformAction(project, name string, action model.Action) (model.ActionResult, model.Service, error) {
	o.inFlight.Add(1)
	defer o.inFlight.Done()

	if o.sctx.IsStopping() {
		return model.ActionResult{Message: "shutting down"}, model.Service{}, nil
	}

	// Toggle resolution and the loading mark happen inside the gate's
	// critical section, against the same snapshot the busy check saw.
	// Starting one service can pull up its dependencies, so the whole
	// project goes loading and gets re-queried. Stop and restart only
	// touch the one service.
	resolved := action
	svc, ok, reason := o.gate.Admit(project, name, func(current model.Service) Decision {
		if resolved == model.ActionToggle {
			if current.Status == model.StatusRunning {
				resolved = model.ActionStop
			} else {
				resolved = model.ActionStart
			}
		}
		return Decision{Status: model.StatusLoading, WholeProject: resolved == model.ActionStart}
	})
	if !ok {
		return model.ActionResult{Message: reason}, svc, nil
	}

	opID := uuid.NewString()
	log.Info("executing service action", "op_id", opID, "service", svc.Key(), "action", string(resolved))

	scope := []model.Service{svc}
	if resolved == model.ActionStart {
		scope = o.registry.Project(project)
	}

	var result model.ActionResult
	var err error
	switch resolved {
	case model.ActionStart:
		result, err = o.repo.StartService(o.sctx, svc)
	case model.ActionStop:
		result, err = o.repo.StopService(o.sctx, svc)
	case model.ActionRestart:
		result, err = o.repo.RestartService(o.sctx, svc)
	default:
		result = model.ActionResult{Message: fmt.Sprintf("unsupported action %q", resolved)}
	}
	if err != nil {
		log.Warn("service action canceled", "op_id", opID, "service", svc.Key())
		return result, svc, err
	}

	o.coordinator.Refresh(o.sctx, scope)
	updated, _ := o.registry.Get(project, name)
	log.Info("service action finished", "op_id", opID, "service", svc.Key(), "ok", result.OK, "status", updated.Status)
	return result, updated, nil
}

// PerformBuild builds one service, streaming output into the build log store
// where readers can follow it while the build runs and for a short window
// after it finishes. Busy services are rejected the same way as actions.
func (o *Orchestrator) PerformBuild(project, name string) (model.ActionResult, model.Service, error) {
	o.inFlight.Add(1)
	defer o.inFlight.Done()

	if o.sctx.IsStopping() {
		return model.ActionResult{Message: "shutting down"}, model.Service{}, nil
	}

	svc, ok, reason := o.gate.Admit(project, name, func(model.Service) Decision {
		return Decision{Status: model.StatusBuilding}
	})
	if !ok {
		return model.ActionResult{Message: reason}, svc, nil
	}

	opID := uuid.NewString()
	key := svc.Key()
	log.Info("starting build", "op_id", opID, "service", key)

	o.buildLogs.Begin(key)
	result, err := o.repo.BuildServiceStreaming(o.sctx, svc, func(line string) {
		o.buildLogs.Append(key, line)
	})
	o.buildLogs.Retire(key)
	if err != nil {
		log.Warn("build canceled", "op_id", opID, "service", key)
		return result, svc, err
	}

	o.coordinator.Refresh(o.sctx, []model.Service{svc})
	updated, _ := o.registry.Get(project, name)
	log.Info("build finished", "op_id", opID, "service", key, "ok", result.OK)
	return result, updated, nil
}

// FetchLogs returns the service's recent container logs. tail <= 0 uses the
// configured default.
func (o *Orchestrator) FetchLogs(project, name string, tail int) string {
	o.inFlight.Add(1)
	defer o.inFlight.Done()

	svc, ok := o.registry.Get(project, name)
	if !ok {
		return fmt.Sprintf("no logs available for %s/%s", project, name)
	}
	return o.repo.ServiceLogs(o.sctx, svc, tail)
}

// BuildLogsFor returns the build output captured for a service, if any is
// still retained.
func (o *Orchestrator) BuildLogsFor(project, name string) (string, bool) {
	return o.buildLogs.Read(model.Service{ProjectName: project, Name: name}.Key())
}

// Close shuts the orchestrator down: new operations are refused, running
// commands get the configured grace period before their contexts are
// canceled, and Close blocks until every in-flight operation and background
// goroutine has returned.
func (o *Orchestrator) Close() error {
	log.Info("orchestrator shutting down")
	o.sctx.Stop(o.cfg.GetShutdownGrace())
	o.inFlight.Wait()
	return o.sctx.Wait()
}

func servicesFromDefinition(def discovery.ProjectDefinition) []model.Service {
	services := make([]model.Service, 0, len(def.Services))
	for _, name := range def.Services {
		services = append(services, model.Service{
			Name:        name,
			ProjectName: def.ProjectName,
			ProjectPath: def.ProjectPath,
			ComposeFile: def.ComposeFile,
			Status:      model.StatusLoading,
		})
	}
	return services
}
