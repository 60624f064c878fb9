package terminal

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultIdleTimeout is how long a session may go without any byte transfer
// before the supervisor evicts it.
const DefaultIdleTimeout = 30 * time.Minute

// DefaultSweepInterval is how often the supervisor scans for idle sessions.
const DefaultSweepInterval = 5 * time.Minute

// EvictionReason is delivered to the client when a session is torn down for
// inactivity.
const EvictionReason = "session evicted after idle timeout"

// Supervisor periodically evicts idle sessions and guarantees that no PTY
// process outlives the server. One failing session never aborts a sweep.
type Supervisor struct {
	registry    *Registry
	idleTimeout time.Duration
	cron        *cron.Cron
}

// NewSupervisor builds a supervisor over the given registry. Non-positive
// durations fall back to the defaults.
func NewSupervisor(reg *Registry, sweepInterval, idleTimeout time.Duration) *Supervisor {
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}

	s := &Supervisor{
		registry:    reg,
		idleTimeout: idleTimeout,
		cron:        cron.New(),
	}
	s.cron.Schedule(cron.Every(sweepInterval), cron.FuncJob(func() { s.Sweep() }))
	return s
}

// Start begins the periodic sweep in the background.
func (s *Supervisor) Start() {
	s.cron.Start()
	log.Printf("terminal: supervisor started (idle timeout %s)", s.idleTimeout)
}

// Sweep evicts every session idle past the threshold and reports how many it
// tore down. Exposed so tests and the shutdown path can trigger it directly.
func (s *Supervisor) Sweep() int {
	cutoff := time.Now().Add(-s.idleTimeout)
	evicted := 0
	for _, sess := range s.registry.List() {
		if sess.LastActivity().After(cutoff) {
			continue
		}
		log.Printf("terminal: evicting idle session %s (container=%s idle since %s)",
			sess.ID, sess.ContainerRef, sess.LastActivity().Format(time.RFC3339))
		s.registry.Destroy(sess.ID, EvictionReason)
		evicted++
	}
	return evicted
}

// Shutdown stops the sweeper and synchronously terminates every live session.
// It returns only once no PTY process remains.
func (s *Supervisor) Shutdown() {
	ctx := s.cron.Stop()
	<-ctx.Done()

	for _, sess := range s.registry.List() {
		s.registry.Destroy(sess.ID, "server shutting down")
	}
	log.Printf("terminal: supervisor stopped, all sessions terminated")
}
