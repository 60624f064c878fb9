package terminal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"
)

// fakeHandle is an in-memory PTY stand-in. Output is fed through a pipe so
// reads block like a real master fd; input and resizes are recorded.
type fakeHandle struct {
	mu      sync.Mutex
	input   bytes.Buffer
	resizes [][2]uint16
	kills   int

	outR *io.PipeReader
	outW *io.PipeWriter

	done     chan struct{}
	exitCode int
	exitOnce sync.Once
}

func newFakeHandle() *fakeHandle {
	r, w := io.Pipe()
	return &fakeHandle{outR: r, outW: w, done: make(chan struct{})}
}

func (f *fakeHandle) Read(p []byte) (int, error) { return f.outR.Read(p) }

func (f *fakeHandle) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.input.Write(p)
}

func (f *fakeHandle) Resize(cols, rows uint16) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resizes = append(f.resizes, [2]uint16{cols, rows})
	return nil
}

func (f *fakeHandle) Done() <-chan struct{} { return f.done }

func (f *fakeHandle) ExitCode() int { return f.exitCode }

func (f *fakeHandle) Kill(time.Duration) {
	f.mu.Lock()
	f.kills++
	f.mu.Unlock()
	f.exit(-1)
}

// exit simulates process termination with the given code.
func (f *fakeHandle) exit(code int) {
	f.exitOnce.Do(func() {
		f.exitCode = code
		close(f.done)
		f.outW.Close()
	})
}

// emit produces process output. Blocks until the bridge consumes it, which
// preserves production order in tests.
func (f *fakeHandle) emit(s string) {
	f.outW.Write([]byte(s))
}

func (f *fakeHandle) inputString() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.input.String()
}

func (f *fakeHandle) killCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.kills
}

func (f *fakeHandle) lastResize() ([2]uint16, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.resizes) == 0 {
		return [2]uint16{}, false
	}
	return f.resizes[len(f.resizes)-1], true
}

// fakeSpawner hands out fakeHandles and counts spawn calls.
type fakeSpawner struct {
	mu      sync.Mutex
	handles []*fakeHandle
	fail    bool
}

func (fs *fakeSpawner) spawn(context.Context, string, uint16, uint16) (Handle, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.fail {
		return nil, errors.New("spawn refused")
	}
	h := newFakeHandle()
	fs.handles = append(fs.handles, h)
	return h, nil
}

func (fs *fakeSpawner) count() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.handles)
}

func (fs *fakeSpawner) handle(i int) *fakeHandle {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.handles[i]
}

// fakeIdentity resolves credentials from a static table.
type fakeIdentity struct {
	principals map[string]*Principal
}

func (fi *fakeIdentity) Verify(credential string) (*Principal, error) {
	if p, ok := fi.principals[credential]; ok {
		return p, nil
	}
	return nil, errors.New("invalid credential")
}

// fakeRuntime reports container state from a static table.
type fakeRuntime struct {
	running map[string]bool
}

func (fr *fakeRuntime) IsRunning(_ context.Context, ref string) (bool, error) {
	return fr.running[ref], nil
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
