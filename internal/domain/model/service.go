package model

import "fmt"

// Well-known service statuses. Anything else stored in Service.Status is the
// raw state string reported by `docker inspect` (e.g. "paused", "restarting")
// and is displayed as-is.
const (
	// StatusUnknown means the status could not be determined.
	StatusUnknown = "unknown"
	// StatusStopped means no container exists for the service.
	StatusStopped = "stopped"
	// StatusRunning is the inspect state of a healthy running container.
	StatusRunning = "running"
	// StatusLoading is the placeholder while a status query or action is in
	// flight. No new action may target the service until it resolves.
	StatusLoading = "loading"
	// StatusBuilding is the placeholder while an image build is in flight.
	StatusBuilding = "building"
)

// Action is a state-changing operation on a service.
type Action string

const (
	ActionStart   Action = "start"
	ActionStop    Action = "stop"
	ActionRestart Action = "restart"
	// ActionToggle resolves to stop when the service is running and start
	// otherwise.
	ActionToggle Action = "toggle"
)

// Service is one named unit within a discovered compose project. Identity is
// the (ProjectName, Name) pair; ProjectPath and ComposeFile are derived
// context used to run commands, not identity.
type Service struct {
	Name        string
	ProjectName string
	ProjectPath string
	ComposeFile string
	Status      string
}

// Key returns the "{project}/{service}" identity string used to key build
// logs and in-progress checks.
func (s Service) Key() string {
	return fmt.Sprintf("%s/%s", s.ProjectName, s.Name)
}

// InProgress reports whether an operation currently owns the service, which
// forbids dispatching another one.
func (s Service) InProgress() bool {
	return s.Status == StatusLoading || s.Status == StatusBuilding
}

// ActionResult is the outcome of a state-changing operation as shown to the
// caller: a success flag and a short human-readable message. Failures are
// carried here, never as errors.
type ActionResult struct {
	OK      bool
	Message string
}
