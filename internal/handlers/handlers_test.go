package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hostdeck/hostdeck/internal/auth"
	"github.com/hostdeck/hostdeck/internal/database"
	"github.com/hostdeck/hostdeck/internal/middleware"
)

// setupTestDB creates a fresh in-memory SQLite database for each test.
func setupTestDB(t *testing.T) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	database.DB = db
	if err := db.AutoMigrate(&database.User{}, &database.Project{},
		&database.ManagedDatabase{}, &database.BackupRecord{}, &database.Setting{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	SessionStore = auth.NewSessionStore()
}

func testAdmin(t *testing.T) *database.User {
	t.Helper()
	hash, err := auth.HashPassword("adminpass")
	if err != nil {
		t.Fatal(err)
	}
	u := &database.User{Username: "admin", PasswordHash: hash, Role: "admin"}
	if err := database.CreateUser(u); err != nil {
		t.Fatal(err)
	}
	return u
}

// do routes a request through a throwaway chi router so URL params resolve.
func do(method, pattern, path string, body interface{}, user *database.User, h http.HandlerFunc) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req = middleware.WithUserForTest(req, user)
	}

	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal response %q: %v", rec.Body.String(), err)
	}
	return out
}
