package terminal

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
)

// WebSocket close codes used during the handshake. They let the client
// distinguish "rejected before any shell" from a shell that ran and exited.
const (
	CloseUnauthenticated      websocket.StatusCode = 4001
	CloseForbidden            websocket.StatusCode = 4003
	CloseContainerUnavailable websocket.StatusCode = 4004
	CloseSessionFailed        websocket.StatusCode = 4005
)

const (
	defaultCols = 80
	defaultRows = 24

	// Resize requests beyond these bounds are clamped.
	maxCols = 1000
	maxRows = 1000

	readLimit = 1024 * 1024

	// exitWait bounds how long the bridge waits for the exit code after the
	// PTY stream ends. Past it the socket is closed abruptly.
	exitWait = 2 * time.Second
)

// Principal is the authenticated identity resolved from a credential.
type Principal struct {
	ID       uint
	Username string
	Role     string
}

// Identity verifies a bearer credential. External collaborator.
type Identity interface {
	Verify(credential string) (*Principal, error)
}

// Runtime answers whether a container is present and running. External
// collaborator.
type Runtime interface {
	IsRunning(ctx context.Context, containerRef string) (bool, error)
}

// clientFrame is the inbound message envelope. Payloads that do not parse as
// a typed frame are written to the PTY verbatim, a deliberate fallback for
// clients that stream raw keystrokes.
type clientFrame struct {
	Type string `json:"type"`
	Data string `json:"data"`
	Cols uint16 `json:"cols"`
	Rows uint16 `json:"rows"`
}

type connectedFrame struct {
	Type         string `json:"type"`
	SessionID    string `json:"sessionId"`
	ContainerRef string `json:"containerRef"`
}

type dataFrame struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

type exitFrame struct {
	Type     string `json:"type"`
	ExitCode int    `json:"exitCode"`
}

// Server bridges WebSocket connections to PTY-backed container shells. One
// Server is constructed in main and shared by reference; tests instantiate
// their own with isolated registries.
type Server struct {
	Registry *Registry
	Identity Identity
	Runtime  Runtime
	Spawn    SpawnFunc

	// RequiredRole is the role a principal must hold to open a terminal.
	// Defaults to "admin".
	RequiredRole string
}

// NewServer wires a bridge over its collaborators.
func NewServer(reg *Registry, id Identity, rt Runtime, spawn SpawnFunc) *Server {
	return &Server{
		Registry:     reg,
		Identity:     id,
		Runtime:      rt,
		Spawn:        spawn,
		RequiredRole: "admin",
	}
}

// Serve upgrades the request and runs the session until the process exits,
// the client disconnects, or the supervisor evicts it. The credential arrives
// as an opaque string extracted from the request by the caller.
func (s *Server) Serve(w http.ResponseWriter, r *http.Request, credential, containerRef string) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Printf("terminal: websocket accept failed: %v", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	// Authorization gate: credential, role, container state. Nothing is
	// allocated until all three pass.
	principal, err := s.Identity.Verify(credential)
	if err != nil {
		conn.Close(CloseUnauthenticated, "authentication required")
		return
	}
	if principal.Role != s.RequiredRole {
		conn.Close(CloseForbidden, "insufficient role")
		return
	}
	running, err := s.Runtime.IsRunning(ctx, containerRef)
	if err != nil || !running {
		conn.Close(CloseContainerUnavailable, "container not found or not running")
		return
	}

	cols, rows := requestedDims(r)

	sess, err := s.Registry.Create(containerRef, principal.ID, cols, rows)
	if err != nil {
		log.Printf("terminal: session rejected for container %s: %v", containerRef, err)
		conn.Close(CloseSessionFailed, err.Error())
		return
	}

	handle, err := s.Spawn(ctx, containerRef, cols, rows)
	if err != nil {
		s.Registry.Remove(sess.ID)
		log.Printf("terminal: spawn failed for container %s: %v", containerRef, err)
		conn.Close(CloseSessionFailed, "failed to start shell")
		return
	}
	if !sess.Attach(handle) {
		// The session was destroyed while the shell was starting. Its
		// registry slot is already gone and Close never saw this handle,
		// so it is ours to kill.
		handle.Kill(killGrace)
		reason := sess.CloseReason()
		if reason == "" {
			reason = "session closed during startup"
		}
		log.Printf("terminal: session %s destroyed during spawn (container=%s)", sess.ID, containerRef)
		conn.Close(websocket.StatusGoingAway, reason)
		return
	}
	log.Printf("terminal: session %s started (container=%s owner=%d)", sess.ID, containerRef, principal.ID)

	if err := writeFrame(ctx, conn, connectedFrame{Type: "connected", SessionID: sess.ID, ContainerRef: containerRef}); err != nil {
		s.Registry.Destroy(sess.ID, "")
		return
	}

	conn.SetReadLimit(readLimit)

	relayCtx, relayCancel := context.WithCancel(ctx)
	defer relayCancel()

	// Eviction watcher: when the supervisor (or an admin) closes the
	// session, deliver the reason to the client before the pumps die.
	// Canceling relayCtx closes the connection, so the close frame has to
	// go out first. watcherDone lets the pumps wait for that handshake:
	// killing the handle makes the outbound pump see EOF immediately, and
	// its deferred cancel must not win the race against conn.Close here.
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		select {
		case <-sess.Done():
			if reason := sess.CloseReason(); reason != "" {
				conn.Close(websocket.StatusGoingAway, reason)
			}
			relayCancel()
		case <-relayCtx.Done():
		}
	}()

	// Shell output -> client. The socket write blocks the PTY read, so a
	// slow client applies backpressure to the process instead of growing an
	// unbounded buffer. On stream end this pump also delivers the exit frame
	// and the close handshake, while the connection is still usable.
	var ptyEOF atomic.Bool
	go func() {
		defer relayCancel()
		buf := make([]byte, 32*1024)
		for {
			n, err := handle.Read(buf)
			if n > 0 {
				sess.Touch()
				if werr := writeFrame(relayCtx, conn, dataFrame{Type: "data", Data: string(buf[:n])}); werr != nil {
					if sess.CloseReason() != "" {
						<-watcherDone
					}
					return
				}
			}
			if err != nil {
				ptyEOF.Store(true)
				if sess.CloseReason() != "" {
					// Evicted. Block until the watcher finishes the
					// close handshake, or the deferred cancel below
					// would abort it mid-flight.
					<-watcherDone
					return
				}
				select {
				case <-handle.Done():
					code := handle.ExitCode()
					if werr := writeFrame(relayCtx, conn, exitFrame{Type: "exit", ExitCode: code}); werr == nil {
						conn.Close(websocket.StatusNormalClosure, "")
					}
					log.Printf("terminal: session %s exited with code %d", sess.ID, code)
				case <-time.After(exitWait):
					// Exit code unobtainable; close abruptly.
					log.Printf("terminal: session %s stream ended without exit status", sess.ID)
					conn.CloseNow()
				}
				return
			}
		}
	}()

	// Client -> shell stdin.
	func() {
		defer relayCancel()
		for {
			_, data, err := conn.Read(relayCtx)
			if err != nil {
				return
			}
			sess.Touch()

			var frame clientFrame
			if jsonErr := json.Unmarshal(data, &frame); jsonErr != nil || frame.Type == "" {
				// Raw keystrokes.
				if _, werr := handle.Write(data); werr != nil {
					return
				}
				continue
			}

			switch frame.Type {
			case "data":
				if _, werr := handle.Write([]byte(frame.Data)); werr != nil {
					return
				}
			case "resize":
				if frame.Cols == 0 || frame.Rows == 0 {
					continue
				}
				c, rw := clampDims(frame.Cols, frame.Rows)
				if rerr := handle.Resize(c, rw); rerr != nil {
					log.Printf("terminal: resize failed for session %s: %v", sess.ID, rerr)
				}
				sess.SetDimensions(c, rw)
			default:
				// Unknown typed frames are raw input as well.
				if _, werr := handle.Write(data); werr != nil {
					return
				}
			}
		}
	}()

	// Whichever trigger fired first, teardown is idempotent from here: kill
	// the PTY if it is still alive and drop the registry entry.
	s.Registry.Destroy(sess.ID, "")
	if !ptyEOF.Load() && sess.CloseReason() == "" {
		log.Printf("terminal: session %s disconnected by client", sess.ID)
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

func writeFrame(ctx context.Context, conn *websocket.Conn, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, b)
}

func requestedDims(r *http.Request) (cols, rows uint16) {
	cols, rows = defaultCols, defaultRows
	if q := r.URL.Query().Get("cols"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 && n <= maxCols {
			cols = uint16(n)
		}
	}
	if q := r.URL.Query().Get("rows"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 && n <= maxRows {
			rows = uint16(n)
		}
	}
	return clampDims(cols, rows)
}

func clampDims(cols, rows uint16) (uint16, uint16) {
	if cols > maxCols {
		cols = maxCols
	}
	if rows > maxRows {
		rows = maxRows
	}
	return cols, rows
}
