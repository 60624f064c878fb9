package handlers

import (
	"net/http"

	"github.com/hostdeck/hostdeck/internal/database"
	"github.com/hostdeck/hostdeck/internal/runtime"
)

func Health(w http.ResponseWriter, r *http.Request) {
	dbStatus := "ok"
	if database.DB == nil {
		dbStatus = "down"
	} else if sqlDB, err := database.DB.DB(); err != nil || sqlDB.Ping() != nil {
		dbStatus = "down"
	}

	runtimeStatus := "ok"
	if rt := runtime.Get(); rt == nil || !rt.IsAvailable(r.Context()) {
		runtimeStatus = "unavailable"
	}

	status := http.StatusOK
	if dbStatus != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{
		"database": dbStatus,
		"runtime":  runtimeStatus,
	})
}
