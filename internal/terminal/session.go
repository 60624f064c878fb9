package terminal

import (
	"sync"
	"time"
)

// State is the lifecycle state of a terminal session.
type State string

const (
	// StateCreated means a registry slot is reserved but the PTY process has
	// not been confirmed alive yet.
	StateCreated State = "created"
	// StateActive means the handshake completed and both pumps are running.
	StateActive State = "active"
	// StateClosing means teardown has been initiated.
	StateClosing State = "closing"
	// StateTerminated means the PTY is gone and the registry entry removed.
	// Terminal state; further Close calls are no-ops.
	StateTerminated State = "terminated"
)

// Session is one interactive terminal attached to a container. It exclusively
// owns its PTY handle: every teardown path funnels through Close, which acts
// exactly once.
type Session struct {
	ID           string
	ContainerRef string
	OwnerID      uint
	CreatedAt    time.Time

	mu           sync.Mutex
	state        State
	handle       Handle
	cols, rows   uint16
	lastActivity time.Time
	closeReason  string

	// done is closed when teardown starts, so the bridge can cancel its
	// pumps even when the socket is idle.
	done chan struct{}
}

// Attach hands the spawned PTY handle to the session and marks it active.
// Returns false when teardown already ran while the process was starting;
// Close never saw the handle then, so the caller owns it and must kill it.
func (s *Session) Attach(h Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateCreated {
		return false
	}
	s.handle = h
	s.state = StateActive
	return true
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Touch records activity. Called on every inbound and outbound transfer.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if now.After(s.lastActivity) {
		s.lastActivity = now
	}
}

// LastActivity returns the time of the most recent byte transfer.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Dimensions returns the current terminal size.
func (s *Session) Dimensions() (cols, rows uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cols, s.rows
}

// SetDimensions records a resize.
func (s *Session) SetDimensions(cols, rows uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cols, s.rows = cols, rows
}

// Done is closed when teardown of this session has started.
func (s *Session) Done() <-chan struct{} { return s.done }

// CloseReason returns the reason passed to Close, or "" if the session is
// still live or was closed by its own bridge.
func (s *Session) CloseReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeReason
}

// Close tears the session down: it kills the PTY (SIGTERM, then force-kill
// after a grace period) and moves the session to Terminated. Idempotent;
// concurrent calls from the bridge, the PTY exit path and the supervisor are
// safe and only the first acts.
func (s *Session) Close(reason string) {
	s.mu.Lock()
	if s.state == StateClosing || s.state == StateTerminated {
		s.mu.Unlock()
		return
	}
	s.state = StateClosing
	s.closeReason = reason
	h := s.handle
	s.mu.Unlock()

	close(s.done)
	if h != nil {
		h.Kill(killGrace)
	}

	s.mu.Lock()
	s.state = StateTerminated
	s.mu.Unlock()
}
