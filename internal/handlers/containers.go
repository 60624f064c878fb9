package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hostdeck/hostdeck/internal/runtime"
)

func runtimeOr503(w http.ResponseWriter, r *http.Request) *runtime.Client {
	rt := runtime.Get()
	if rt == nil || !rt.IsAvailable(r.Context()) {
		writeError(w, http.StatusServiceUnavailable, "Container runtime unavailable")
		return nil
	}
	return rt
}

func ListContainers(w http.ResponseWriter, r *http.Request) {
	rt := runtimeOr503(w, r)
	if rt == nil {
		return
	}
	containers, err := rt.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list containers")
		return
	}
	writeJSON(w, http.StatusOK, containers)
}

func StartContainer(w http.ResponseWriter, r *http.Request) {
	rt := runtimeOr503(w, r)
	if rt == nil {
		return
	}
	ref := chi.URLParam(r, "ref")
	if err := rt.Start(r.Context(), ref); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to start container")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func StopContainer(w http.ResponseWriter, r *http.Request) {
	rt := runtimeOr503(w, r)
	if rt == nil {
		return
	}
	ref := chi.URLParam(r, "ref")
	if err := rt.Stop(r.Context(), ref); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to stop container")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func RestartContainer(w http.ResponseWriter, r *http.Request) {
	rt := runtimeOr503(w, r)
	if rt == nil {
		return
	}
	ref := chi.URLParam(r, "ref")
	if err := rt.Restart(r.Context(), ref); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to restart container")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "restarted"})
}

func ContainerStats(w http.ResponseWriter, r *http.Request) {
	rt := runtimeOr503(w, r)
	if rt == nil {
		return
	}
	ref := chi.URLParam(r, "ref")
	stats, err := rt.Stats(r.Context(), ref)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read container stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func ContainerLogs(w http.ResponseWriter, r *http.Request) {
	rt := runtimeOr503(w, r)
	if rt == nil {
		return
	}
	ref := chi.URLParam(r, "ref")

	tail := 200
	if v := r.URL.Query().Get("tail"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 10000 {
			tail = n
		}
	}

	logs, err := rt.Logs(r.Context(), ref, tail)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read container logs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"logs": logs})
}
