package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hostdeck/hostdeck/internal/auth"
	"github.com/hostdeck/hostdeck/internal/terminal"
)

// Term and TermRegistry are set from main.go during init.
var (
	Term         *terminal.Server
	TermRegistry *terminal.Registry
)

// TerminalWS upgrades to a WebSocket shell session in the named container.
// Authentication is handled inside the bridge so failures surface as close
// codes the terminal client understands, not HTTP errors.
func TerminalWS(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	if ref == "" {
		http.Error(w, "Container reference required", http.StatusBadRequest)
		return
	}

	credential := auth.CredentialFromRequest(r)
	if credential == "" {
		credential = r.URL.Query().Get("token")
	}

	Term.Serve(w, r, credential, ref)
}

// ListTerminalSessions reports the live sessions for the admin dashboard.
func ListTerminalSessions(w http.ResponseWriter, r *http.Request) {
	sessions := TermRegistry.List()
	out := make([]map[string]interface{}, 0, len(sessions))
	for _, s := range sessions {
		cols, rows := s.Dimensions()
		out = append(out, map[string]interface{}{
			"id":            s.ID,
			"container_ref": s.ContainerRef,
			"owner_id":      s.OwnerID,
			"state":         string(s.State()),
			"created_at":    s.CreatedAt,
			"last_activity": s.LastActivity(),
			"cols":          cols,
			"rows":          rows,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": out,
		"count":    len(out),
		"max":      TermRegistry.Max(),
	})
}

// CloseTerminalSession force-closes one session by ID.
func CloseTerminalSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if TermRegistry.Get(id) == nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	TermRegistry.Destroy(id, "closed by administrator")
	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}
