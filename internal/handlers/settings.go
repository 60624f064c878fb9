package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/hostdeck/hostdeck/internal/database"
)

// editableSettings are the keys exposed over the settings API.
var editableSettings = map[string]bool{
	"backup_retention_days": true,
	"default_shell":         true,
}

func GetSettings(w http.ResponseWriter, r *http.Request) {
	result := make(map[string]string)
	for key := range editableSettings {
		value, err := database.GetSetting(key)
		if err != nil {
			continue
		}
		result[key] = value
	}
	writeJSON(w, http.StatusOK, result)
}

func UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	for key, value := range body {
		if !editableSettings[key] {
			writeError(w, http.StatusBadRequest, "Unknown setting: "+key)
			return
		}
		if key == "backup_retention_days" {
			if n, err := strconv.Atoi(value); err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "Retention must be a positive number of days")
				return
			}
		}
	}

	for key, value := range body {
		if err := database.SetSetting(key, value); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save setting")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
