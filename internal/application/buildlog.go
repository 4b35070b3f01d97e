package application

import (
	"strings"
	"sync"
	"time"
)

// BuildLogStore keeps the streamed output of in-flight builds, keyed by
// service. A finished build's log stays readable for a retention window so a
// reader who looks right after completion still sees the output, then it is
// dropped to keep memory bounded.
type BuildLogStore struct {
	retention time.Duration

	mu      sync.Mutex
	entries map[string]*strings.Builder
	timers  map[string]*time.Timer
}

// NewBuildLogStore creates a store whose finished logs expire after the
// given retention.
func NewBuildLogStore(retention time.Duration) *BuildLogStore {
	return &BuildLogStore{
		retention: retention,
		entries:   make(map[string]*strings.Builder),
		timers:    make(map[string]*time.Timer),
	}
}

// Begin opens a fresh log for the given service key, discarding any previous
// log and canceling its pending expiry.
func (s *BuildLogStore) Begin(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[key]; ok {
		timer.Stop()
		delete(s.timers, key)
	}
	s.entries[key] = &strings.Builder{}
}

// Append adds one output line to the service's log. Lines for a key without
// an open log are dropped.
func (s *BuildLogStore) Append(key, line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return
	}
	entry.WriteString(line)
	entry.WriteByte('\n')
}

// Read returns the log collected so far for the given key.
func (s *BuildLogStore) Read(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return "", false
	}
	return entry.String(), true
}

// Retire schedules the key's log for removal after the retention window.
// A Begin for the same key before expiry cancels the removal.
func (s *BuildLogStore) Retire(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[key]; ok {
		timer.Stop()
	}
	s.timers[key] = time.AfterFunc(s.retention, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.entries, key)
		delete(s.timers, key)
	})
}

// Close stops all pending expiry timers and drops every log.
func (s *BuildLogStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, timer := range s.timers {
		timer.Stop()
	}
	s.timers = make(map[string]*time.Timer)
	s.entries = make(map[string]*strings.Builder)
}
