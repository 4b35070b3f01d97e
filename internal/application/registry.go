package application

import (
	"sync"

	"dcman/internal/domain/model"
)

// ServiceRegistry is the in-memory collection of discovered services, one
// entry per (project, service) pair, in discovery order. Callers only ever
// see copies; all mutation happens through registry methods under a single
// mutex, so status writes never interleave partially and a batch update is
// observed either not at all or in full.
type ServiceRegistry struct {
	mu       sync.RWMutex
	services []model.Service
}

// NewServiceRegistry creates an empty registry.
func NewServiceRegistry() *ServiceRegistry {
	return &ServiceRegistry{}
}

// Clear removes every service. Used by a full re-scan.
func (r *ServiceRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services = nil
}

// ReplaceProject swaps out the given project's services in place, keeping
// the project's position in the overall ordering. An unseen project is
// appended at the end.
func (r *ServiceRegistry) ReplaceProject(project string, services []model.Service) {
	r.mu.Lock()
	defer r.mu.Unlock()

	first := -1
	rest := make([]model.Service, 0, len(r.services))
	for i, svc := range r.services {
		if svc.ProjectName == project {
			if first < 0 {
				first = i
			}
			continue
		}
		rest = append(rest, svc)
	}

	if first < 0 {
		r.services = append(rest, services...)
		return
	}

	merged := make([]model.Service, 0, len(rest)+len(services))
	merged = append(merged, rest[:first]...)
	merged = append(merged, services...)
	merged = append(merged, rest[first:]...)
	r.services = merged
}

// Snapshot returns a copy of every service in discovery order.
func (r *ServiceRegistry) Snapshot() []model.Service {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Service, len(r.services))
	copy(out, r.services)
	return out
}

// Len reports the number of registered services.
func (r *ServiceRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.services)
}

// Get returns a copy of one service.
func (r *ServiceRegistry) Get(project, name string) (model.Service, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, svc := range r.services {
		if svc.ProjectName == project && svc.Name == name {
			return svc, true
		}
	}
	return model.Service{}, false
}

// Project returns copies of every service belonging to the given project,
// in discovery order.
func (r *ServiceRegistry) Project(project string) []model.Service {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.Service
	for _, svc := range r.services {
		if svc.ProjectName == project {
			out = append(out, svc)
		}
	}
	return out
}

// SetStatus updates one service's status. Returns false when the service is
// not registered.
func (r *ServiceRegistry) SetStatus(project, name, status string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.services {
		if r.services[i].ProjectName == project && r.services[i].Name == name {
			r.services[i].Status = status
			return true
		}
	}
	return false
}

// MarkStatuses sets the same status on every service named by keys
// ("{project}/{service}") in one atomic step.
func (r *ServiceRegistry) MarkStatuses(keys []string, status string) {
	wanted := make(map[string]bool, len(keys))
	for _, k := range keys {
		wanted[k] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.services {
		if wanted[r.services[i].Key()] {
			r.services[i].Status = status
		}
	}
}

// Acquire claims a service for a new operation in one critical section: the
// busy check and the in-flight marking happen under the same write lock, so
// two concurrent operations on one service can never both pass the check on
// stale reads. decide sees the service's pre-mark snapshot and names the
// in-flight status to set and whether the whole project is marked. A service
// that is already in progress is left untouched.
func (r *ServiceRegistry) Acquire(project, name string, decide func(svc model.Service) Decision) (svc model.Service, found, acquired bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	target := -1
	for i := range r.services {
		if r.services[i].ProjectName == project && r.services[i].Name == name {
			target = i
			break
		}
	}
	if target < 0 {
		return model.Service{}, false, false
	}

	svc = r.services[target]
	if svc.InProgress() {
		return svc, true, false
	}

	d := decide(svc)
	if d.WholeProject {
		for i := range r.services {
			if r.services[i].ProjectName == project {
				r.services[i].Status = d.Status
			}
		}
	} else {
		r.services[target].Status = d.Status
	}
	return svc, true, true
}

// ApplyStatuses applies a batch of per-service status results in one atomic
// step: no reader observes some services updated and others not.
func (r *ServiceRegistry) ApplyStatuses(statuses map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.services {
		if status, ok := statuses[r.services[i].Key()]; ok {
			r.services[i].Status = status
		}
	}
}
