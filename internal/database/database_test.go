package database

import (
	"path/filepath"
	"testing"

	"github.com/hostdeck/hostdeck/internal/config"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	config.Cfg.DatabasePath = filepath.Join(t.TempDir(), "test.db")
	if err := Init(); err != nil {
		t.Fatalf("init database: %v", err)
	}
	t.Cleanup(func() { Close() })
}

func TestSeedDefaults(t *testing.T) {
	setupTestDB(t)

	v, err := GetSetting("backup_retention_days")
	if err != nil || v != "14" {
		t.Errorf("backup_retention_days = %q (err %v), want 14", v, err)
	}
	v, err = GetSetting("default_shell")
	if err != nil || v != "/bin/sh" {
		t.Errorf("default_shell = %q (err %v), want /bin/sh", v, err)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	setupTestDB(t)

	if err := SetSetting("backup_retention_days", "30"); err != nil {
		t.Fatal(err)
	}
	v, err := GetSetting("backup_retention_days")
	if err != nil || v != "30" {
		t.Errorf("after update = %q (err %v), want 30", v, err)
	}

	if _, err := GetSetting("no_such_key"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestUserLifecycle(t *testing.T) {
	setupTestDB(t)

	if n, _ := UserCount(); n != 0 {
		t.Fatalf("fresh db should have no users, got %d", n)
	}

	u := &User{Username: "alice", PasswordHash: "x", Role: "admin"}
	if err := CreateUser(u); err != nil {
		t.Fatal(err)
	}
	if u.ID == 0 {
		t.Error("ID should be assigned on create")
	}

	dup := &User{Username: "alice", PasswordHash: "y", Role: "user"}
	if err := CreateUser(dup); err == nil {
		t.Error("duplicate username should fail")
	}

	got, err := GetUserByUsername("alice")
	if err != nil || got.ID != u.ID {
		t.Fatalf("lookup by username: %v", err)
	}

	admin, err := GetFirstAdmin()
	if err != nil || admin.Username != "alice" {
		t.Errorf("GetFirstAdmin = %+v (err %v)", admin, err)
	}

	if err := UpdateUserRole(u.ID, "user"); err != nil {
		t.Fatal(err)
	}
	if _, err := GetFirstAdmin(); err == nil {
		t.Error("no admin should remain after demotion")
	}

	if err := DeleteUser(u.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := GetUserByID(u.ID); err == nil {
		t.Error("deleted user should not resolve")
	}
}

func TestProjectCRUD(t *testing.T) {
	setupTestDB(t)

	p := &Project{Name: "web", DisplayName: "Web", ContainerRef: "web", Status: "created"}
	if err := CreateProject(p); err != nil {
		t.Fatal(err)
	}

	got, err := GetProjectByName("web")
	if err != nil || got.ID != p.ID {
		t.Fatalf("lookup by name: %v", err)
	}

	got.Domain = "example.com"
	if err := SaveProject(got); err != nil {
		t.Fatal(err)
	}
	reread, _ := GetProject(p.ID)
	if reread.Domain != "example.com" {
		t.Errorf("domain not persisted: %+v", reread)
	}

	if err := DeleteProject(p.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := GetProject(p.ID); err == nil {
		t.Error("deleted project should not resolve")
	}
}

func TestAutoBackupFilter(t *testing.T) {
	setupTestDB(t)

	a := &ManagedDatabase{Name: "a", Engine: "postgres", Host: "localhost", Port: 5432, Username: "u", AutoBackup: true}
	b := &ManagedDatabase{Name: "b", Engine: "postgres", Host: "localhost", Port: 5432, Username: "u"}
	for _, d := range []*ManagedDatabase{a, b} {
		if err := CreateManagedDatabase(d); err != nil {
			t.Fatal(err)
		}
	}

	auto, err := ListAutoBackupDatabases()
	if err != nil {
		t.Fatal(err)
	}
	if len(auto) != 1 || auto[0].Name != "a" {
		t.Errorf("auto-backup filter returned %+v", auto)
	}
}

func TestBackupRecordsNewestFirst(t *testing.T) {
	setupTestDB(t)

	db := &ManagedDatabase{Name: "a", Engine: "postgres", Host: "localhost", Port: 5432, Username: "u"}
	if err := CreateManagedDatabase(db); err != nil {
		t.Fatal(err)
	}
	for _, status := range []string{"ok", "failed", "ok"} {
		if err := CreateBackupRecord(&BackupRecord{DatabaseID: db.ID, Status: status}); err != nil {
			t.Fatal(err)
		}
	}

	records, err := ListBackupRecords(db.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].ID < records[1].ID || records[1].ID < records[2].ID {
		t.Errorf("records should be newest first: %v %v %v", records[0].ID, records[1].ID, records[2].ID)
	}
}
