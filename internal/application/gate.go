package application

import (
	"fmt"

	"dcman/internal/domain/model"
)

// Decision tells the gate how to mark an admitted service: the in-flight
// status to set and whether the whole project is marked along with it.
type Decision struct {
	Status       string
	WholeProject bool
}

// ActionGate decides whether a service may accept a new operation. A service
// that is loading or building is busy: the gate rejects without touching its
// state or spawning any process, and the in-flight operation keeps running.
type ActionGate struct {
	registry *ServiceRegistry
}

// NewActionGate creates a gate over the given registry.
func NewActionGate(registry *ServiceRegistry) *ActionGate {
	return &ActionGate{registry: registry}
}

// Admit checks that the service exists and is not busy, and marks it in
// flight in the same registry critical section, so no concurrent operation
// can pass the check against a stale status. decide sees the service's
// pre-mark snapshot. When rejected, reason holds a user-facing explanation
// and nothing was marked.
func (g *ActionGate) Admit(project, name string, decide func(svc model.Service) Decision) (svc model.Service, ok bool, reason string) {
	svc, found, acquired := g.registry.Acquire(project, name, decide)
	if !found {
		return model.Service{}, false, fmt.Sprintf("unknown service %s/%s", project, name)
	}
	if !acquired {
		return svc, false, fmt.Sprintf("%s is busy (%s), try again once it settles", svc.Key(), svc.Status)
	}
	return svc, true, ""
}
