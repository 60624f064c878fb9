package terminal

import (
	"testing"
	"time"
)

func backdate(s *Session, d time.Duration) {
	s.mu.Lock()
	s.lastActivity = time.Now().Add(-d)
	s.mu.Unlock()
}

func TestSupervisor_EvictsIdleSessions(t *testing.T) {
	reg := NewRegistry(5)
	sup := NewSupervisor(reg, time.Minute, 30*time.Minute)

	idle, _ := reg.Create("web", 1, 80, 24)
	idleHandle := newFakeHandle()
	idle.Attach(idleHandle)
	backdate(idle, 31*time.Minute)

	busy, _ := reg.Create("db", 1, 80, 24)
	busyHandle := newFakeHandle()
	busy.Attach(busyHandle)
	busy.Touch()

	if n := sup.Sweep(); n != 1 {
		t.Fatalf("expected 1 eviction, got %d", n)
	}

	if idleHandle.killCount() != 1 {
		t.Errorf("idle session PTY not terminated (kills=%d)", idleHandle.killCount())
	}
	if idle.State() != StateTerminated {
		t.Errorf("expected idle session terminated, got %s", idle.State())
	}
	if idle.CloseReason() != EvictionReason {
		t.Errorf("expected eviction reason, got %q", idle.CloseReason())
	}

	if busyHandle.killCount() != 0 {
		t.Error("active session must survive the sweep")
	}
	if reg.Count() != 1 {
		t.Errorf("expected 1 remaining session, got %d", reg.Count())
	}
}

func TestSupervisor_SweepToleratesAlreadyGoneSessions(t *testing.T) {
	reg := NewRegistry(5)
	sup := NewSupervisor(reg, time.Minute, 30*time.Minute)

	a, _ := reg.Create("web", 1, 80, 24)
	a.Attach(newFakeHandle())
	backdate(a, time.Hour)

	b, _ := reg.Create("db", 1, 80, 24)
	b.Attach(newFakeHandle())
	backdate(b, time.Hour)

	// One of them raced away (bridge teardown finished first). The sweep
	// must continue to the next session rather than abort.
	reg.Destroy(a.ID, "")

	if n := sup.Sweep(); n != 1 {
		t.Fatalf("expected 1 eviction, got %d", n)
	}
	if reg.Count() != 0 {
		t.Errorf("expected empty registry, got %d", reg.Count())
	}
}

func TestSupervisor_ShutdownTerminatesEverything(t *testing.T) {
	reg := NewRegistry(5)
	sup := NewSupervisor(reg, time.Minute, 30*time.Minute)
	sup.Start()

	handles := make([]*fakeHandle, 3)
	for i := range handles {
		s, err := reg.Create("web", uint(i), 80, 24)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		handles[i] = newFakeHandle()
		s.Attach(handles[i])
	}

	sup.Shutdown()

	if reg.Count() != 0 {
		t.Errorf("expected no sessions after shutdown, got %d", reg.Count())
	}
	for i, h := range handles {
		select {
		case <-h.Done():
		default:
			t.Errorf("handle %d still alive after shutdown", i)
		}
		if h.killCount() != 1 {
			t.Errorf("handle %d killed %d times, want 1", i, h.killCount())
		}
	}
}

func TestSupervisor_FreshSessionsSurvive(t *testing.T) {
	reg := NewRegistry(5)
	sup := NewSupervisor(reg, time.Minute, 30*time.Minute)

	s, _ := reg.Create("web", 1, 80, 24)
	s.Attach(newFakeHandle())

	if n := sup.Sweep(); n != 0 {
		t.Fatalf("expected no evictions, got %d", n)
	}
	if reg.Count() != 1 {
		t.Errorf("expected session to survive, got count %d", reg.Count())
	}
}
