package terminal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
)

// killGrace is how long a process gets to exit after SIGTERM before it is
// force-killed.
const killGrace = 3 * time.Second

// Handle is the bridge's view of one running PTY process. Exactly one session
// owns a handle; Kill is safe to call more than once but acts only once.
type Handle interface {
	// Read blocks until the process produces output or the PTY is closed.
	Read(p []byte) (n int, err error)
	// Write delivers bytes to the process's stdin.
	Write(p []byte) (n int, err error)
	// Resize changes the terminal window dimensions.
	Resize(cols, rows uint16) error
	// Done is closed once the process has exited and its exit code is known.
	Done() <-chan struct{}
	// ExitCode is valid only after Done is closed. -1 means the process was
	// killed by a signal or its status could not be determined.
	ExitCode() int
	// Kill requests graceful termination and force-kills after the grace
	// period. It blocks until the process is gone, at most for the grace
	// period plus a small margin.
	Kill(grace time.Duration)
}

// SpawnFunc creates a PTY process attached to a shell inside the given
// container. Injectable so tests run against in-memory fakes.
type SpawnFunc func(ctx context.Context, containerRef string, cols, rows uint16) (Handle, error)

// DockerSpawner returns a SpawnFunc that runs `docker exec -it <ref> <shell>`
// under a local pseudo-terminal.
func DockerSpawner(shell string) SpawnFunc {
	return func(_ context.Context, containerRef string, cols, rows uint16) (Handle, error) {
		cmd := exec.Command("docker", "exec", "-it", containerRef, shell)
		return startPTY(cmd, cols, rows)
	}
}

// ptyHandle owns one PTY master and its child process.
type ptyHandle struct {
	master *os.File
	cmd    *exec.Cmd

	done     chan struct{}
	exitCode int

	killOnce sync.Once
}

// startPTY starts cmd attached to a new pseudo-terminal of the given size.
func startPTY(cmd *exec.Cmd, cols, rows uint16) (*ptyHandle, error) {
	master, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: cols, Rows: rows})
	if err != nil {
		return nil, fmt.Errorf("start pty: %w", err)
	}

	h := &ptyHandle{
		master: master,
		cmd:    cmd,
		done:   make(chan struct{}),
	}
	go h.wait()
	return h, nil
}

func (h *ptyHandle) wait() {
	err := h.cmd.Wait()
	switch {
	case err == nil:
		h.exitCode = 0
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			h.exitCode = exitErr.ExitCode()
		} else {
			h.exitCode = -1
		}
	}
	close(h.done)
}

func (h *ptyHandle) Read(p []byte) (int, error)  { return h.master.Read(p) }
func (h *ptyHandle) Write(p []byte) (int, error) { return h.master.Write(p) }

func (h *ptyHandle) Resize(cols, rows uint16) error {
	return pty.Setsize(h.master, &pty.Winsize{Cols: cols, Rows: rows})
}

func (h *ptyHandle) Done() <-chan struct{} { return h.done }

func (h *ptyHandle) ExitCode() int { return h.exitCode }

// Kill sends SIGTERM, waits up to grace for the process to exit, then
// force-kills. The master is closed last so a concurrent Read unblocks.
func (h *ptyHandle) Kill(grace time.Duration) {
	h.killOnce.Do(func() {
		if h.cmd.Process != nil {
			h.cmd.Process.Signal(syscall.SIGTERM)
		}
		select {
		case <-h.done:
		case <-time.After(grace):
			if h.cmd.Process != nil {
				h.cmd.Process.Kill()
			}
			<-h.done
		}
		h.master.Close()
	})
}
