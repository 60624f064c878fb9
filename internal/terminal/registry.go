package terminal

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxSessions caps concurrent terminal sessions across all containers.
const DefaultMaxSessions = 5

// ErrCapacity is returned by Create when the session cap is reached.
var ErrCapacity = errors.New("terminal session limit reached")

// Registry is the in-memory directory of live terminal sessions. It is the
// single source of truth for which sessions exist and enforces the global
// concurrency cap. All mutations are serialized behind one mutex so two
// connections cannot race past the capacity check.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	max      int
}

// NewRegistry creates a registry admitting at most max concurrent sessions.
// A non-positive max falls back to DefaultMaxSessions.
func NewRegistry(max int) *Registry {
	if max <= 0 {
		max = DefaultMaxSessions
	}
	return &Registry{
		sessions: make(map[string]*Session),
		max:      max,
	}
}

// Create atomically checks capacity and reserves a session slot. On rejection
// it has no side effects; existing sessions are untouched.
func (r *Registry) Create(containerRef string, ownerID uint, cols, rows uint16) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sessions) >= r.max {
		return nil, fmt.Errorf("%w (max %d)", ErrCapacity, r.max)
	}

	now := time.Now()
	s := &Session{
		ID:           uuid.New().String(),
		ContainerRef: containerRef,
		OwnerID:      ownerID,
		CreatedAt:    now,
		state:        StateCreated,
		cols:         cols,
		rows:         rows,
		lastActivity: now,
		done:         make(chan struct{}),
	}
	r.sessions[s.ID] = s
	return s, nil
}

// Get returns the session with the given id, or nil.
func (r *Registry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id]
}

// Remove drops a session from the registry. Removing an unknown id is a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Max returns the session cap.
func (r *Registry) Max() int {
	return r.max
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// List returns a snapshot of all live sessions.
func (r *Registry) List() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Destroy closes a session and removes it from the registry. Safe to call
// from any teardown path; whichever caller gets there first wins and the
// rest no-op.
func (r *Registry) Destroy(id, reason string) {
	r.mu.Lock()
	s := r.sessions[id]
	r.mu.Unlock()

	if s == nil {
		return
	}
	s.Close(reason)
	r.Remove(id)
}
