package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/hostdeck/hostdeck/internal/backup"
	"github.com/hostdeck/hostdeck/internal/crypto"
	"github.com/hostdeck/hostdeck/internal/database"
)

// BackupRunner is set from main.go during init.
var BackupRunner *backup.Runner

func databaseJSON(d *database.ManagedDatabase) map[string]interface{} {
	password, _ := crypto.Decrypt(d.PasswordEncrypted)
	return map[string]interface{}{
		"id":          d.ID,
		"name":        d.Name,
		"engine":      d.Engine,
		"host":        d.Host,
		"port":        d.Port,
		"username":    d.Username,
		"password":    crypto.Mask(password),
		"auto_backup": d.AutoBackup,
		"project_id":  d.ProjectID,
		"created_at":  d.CreatedAt,
	}
}

func ListDatabases(w http.ResponseWriter, r *http.Request) {
	dbs, err := database.ListManagedDatabases()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	out := make([]map[string]interface{}, 0, len(dbs))
	for i := range dbs {
		out = append(out, databaseJSON(&dbs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func GetDatabase(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	db, err := database.GetManagedDatabase(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Database not found")
		return
	}
	writeJSON(w, http.StatusOK, databaseJSON(db))
}

func CreateDatabase(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name       string `json:"name"`
		Engine     string `json:"engine"`
		Host       string `json:"host"`
		Port       int    `json:"port"`
		Username   string `json:"username"`
		Password   string `json:"password"`
		AutoBackup bool   `json:"auto_backup"`
		ProjectID  *uint  `json:"project_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Name == "" || body.Username == "" {
		writeError(w, http.StatusBadRequest, "Name and username are required")
		return
	}
	if body.Engine == "" {
		body.Engine = "postgres"
	}
	if body.Engine != "postgres" {
		writeError(w, http.StatusBadRequest, "Only postgres is supported")
		return
	}
	if body.Host == "" {
		body.Host = "localhost"
	}
	if body.Port == 0 {
		body.Port = 5432
	}
	if body.ProjectID != nil {
		if _, err := database.GetProject(*body.ProjectID); err != nil {
			writeError(w, http.StatusBadRequest, "Unknown project")
			return
		}
	}

	enc, err := crypto.Encrypt(body.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encrypt password")
		return
	}

	db := &database.ManagedDatabase{
		Name:              body.Name,
		Engine:            body.Engine,
		Host:              body.Host,
		Port:              body.Port,
		Username:          body.Username,
		PasswordEncrypted: enc,
		AutoBackup:        body.AutoBackup,
		ProjectID:         body.ProjectID,
	}
	if err := database.CreateManagedDatabase(db); err != nil {
		writeError(w, http.StatusConflict, "Database name already in use")
		return
	}
	writeJSON(w, http.StatusCreated, databaseJSON(db))
}

func UpdateDatabase(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	db, err := database.GetManagedDatabase(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Database not found")
		return
	}

	var body struct {
		Host       *string `json:"host"`
		Port       *int    `json:"port"`
		Username   *string `json:"username"`
		Password   *string `json:"password"`
		AutoBackup *bool   `json:"auto_backup"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if body.Host != nil {
		db.Host = *body.Host
	}
	if body.Port != nil {
		db.Port = *body.Port
	}
	if body.Username != nil {
		db.Username = *body.Username
	}
	if body.Password != nil {
		enc, err := crypto.Encrypt(*body.Password)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to encrypt password")
			return
		}
		db.PasswordEncrypted = enc
	}
	if body.AutoBackup != nil {
		db.AutoBackup = *body.AutoBackup
	}

	if err := database.SaveManagedDatabase(db); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update database")
		return
	}
	writeJSON(w, http.StatusOK, databaseJSON(db))
}

func DeleteDatabase(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	if _, err := database.GetManagedDatabase(id); err != nil {
		writeError(w, http.StatusNotFound, "Database not found")
		return
	}
	if err := database.DeleteManagedDatabase(id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete database")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// TriggerBackup runs a backup for one database immediately.
func TriggerBackup(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	db, err := database.GetManagedDatabase(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Database not found")
		return
	}

	rec, err := BackupRunner.Backup(r.Context(), db)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, rec)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func ListBackups(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	if _, err := database.GetManagedDatabase(id); err != nil {
		writeError(w, http.StatusNotFound, "Database not found")
		return
	}
	records, err := database.ListBackupRecords(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	writeJSON(w, http.StatusOK, records)
}
