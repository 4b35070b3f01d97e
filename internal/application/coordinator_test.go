package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dcman/internal/domain/model"
	"dcman/internal/domain/repository"
)

// fakeComposeRepo scripts repository behavior per service key. Optional
// channels let tests hold a call open to observe intermediate state.
type fakeComposeRepo struct {
	mu       sync.Mutex
	statuses map[string]string
	results  map[string]model.ActionResult
	errs     map[string]error
	calls    []string

	buildLines []string

	// blockUntilCancel makes every action hang until its context is
	// canceled, for exercising shutdown.
	blockUntilCancel bool

	statusArrived chan struct{}
	statusRelease chan struct{}
	buildStarted  chan struct{}
	buildRelease  chan struct{}
}

func newFakeComposeRepo() *fakeComposeRepo {
	return &fakeComposeRepo{
		statuses: make(map[string]string),
		results:  make(map[string]model.ActionResult),
		errs:     make(map[string]error),
	}
}

func (f *fakeComposeRepo) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeComposeRepo) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeComposeRepo) ServiceStatus(ctx context.Context, svc model.Service) string {
	f.record("status " + svc.Key())
	if f.statusArrived != nil {
		f.statusArrived <- struct{}{}
		<-f.statusRelease
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if status, ok := f.statuses[svc.Key()]; ok {
		return status
	}
	return model.StatusUnknown
}

func (f *fakeComposeRepo) action(ctx context.Context, verb string, svc model.Service) (model.ActionResult, error) {
	call := verb + " " + svc.Key()
	f.record(call)
	if f.blockUntilCancel {
		<-ctx.Done()
		return model.ActionResult{Message: verb + " canceled"}, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[call]; ok {
		return model.ActionResult{Message: verb + " canceled"}, err
	}
	if res, ok := f.results[call]; ok {
		return res, nil
	}
	return model.ActionResult{OK: true, Message: "ok"}, nil
}

func (f *fakeComposeRepo) StartService(ctx context.Context, svc model.Service) (model.ActionResult, error) {
	return f.action(ctx, "start", svc)
}

func (f *fakeComposeRepo) StopService(ctx context.Context, svc model.Service) (model.ActionResult, error) {
	return f.action(ctx, "stop", svc)
}

func (f *fakeComposeRepo) RestartService(ctx context.Context, svc model.Service) (model.ActionResult, error) {
	return f.action(ctx, "restart", svc)
}

func (f *fakeComposeRepo) BuildService(ctx context.Context, svc model.Service) (model.ActionResult, error) {
	return f.action(ctx, "build", svc)
}

func (f *fakeComposeRepo) BuildServiceStreaming(ctx context.Context, svc model.Service, sink repository.LineSink) (model.ActionResult, error) {
	f.mu.Lock()
	lines := f.buildLines
	f.mu.Unlock()
	for _, line := range lines {
		sink(line)
	}
	if f.buildStarted != nil {
		f.buildStarted <- struct{}{}
		<-f.buildRelease
	}
	return f.action(ctx, "build", svc)
}

func (f *fakeComposeRepo) ServiceLogs(ctx context.Context, svc model.Service, tail int) string {
	f.record("logs " + svc.Key())
	return "log output"
}

func TestCoordinatorAppliesStatusesAtomically(t *testing.T) {
	repo := newFakeComposeRepo()
	repo.statuses["web/app"] = model.StatusRunning
	repo.statuses["web/db"] = model.StatusStopped

	registry := NewServiceRegistry()
	registry.ReplaceProject("web", []model.Service{
		svc("web", "app", model.StatusUnknown),
		svc("web", "db", model.StatusUnknown),
	})
	c := NewStatusCoordinator(repo, registry)

	c.Refresh(context.Background(), registry.Snapshot())

	app, _ := registry.Get("web", "app")
	db, _ := registry.Get("web", "db")
	assert.Equal(t, model.StatusRunning, app.Status)
	assert.Equal(t, model.StatusStopped, db.Status)
}

func TestCoordinatorMarksLoadingAndFansOut(t *testing.T) {
	repo := newFakeComposeRepo()
	repo.statusArrived = make(chan struct{})
	repo.statusRelease = make(chan struct{})
	repo.statuses["web/app"] = model.StatusRunning
	repo.statuses["web/db"] = model.StatusRunning

	registry := NewServiceRegistry()
	registry.ReplaceProject("web", []model.Service{
		svc("web", "app", model.StatusStopped),
		svc("web", "db", model.StatusStopped),
	})
	c := NewStatusCoordinator(repo, registry)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Refresh(context.Background(), registry.Snapshot())
	}()

	// Both queries are in flight at once, so waiting for two arrivals
	// before releasing either proves the fan-out is concurrent.
	for i := 0; i < 2; i++ {
		select {
		case <-repo.statusArrived:
		case <-time.After(2 * time.Second):
			t.Fatal("status queries did not run concurrently")
		}
	}

	// While the queries are held open the registry shows loading.
	app, _ := registry.Get("web", "app")
	db, _ := registry.Get("web", "db")
	assert.Equal(t, model.StatusLoading, app.Status)
	assert.Equal(t, model.StatusLoading, db.Status)

	close(repo.statusRelease)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh did not finish")
	}

	app, _ = registry.Get("web", "app")
	assert.Equal(t, model.StatusRunning, app.Status)
}

func TestCoordinatorRefreshNothing(t *testing.T) {
	repo := newFakeComposeRepo()
	c := NewStatusCoordinator(repo, NewServiceRegistry())

	c.Refresh(context.Background(), nil)

	require.Empty(t, repo.recorded())
}
