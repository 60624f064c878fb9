package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadBootstrapDefaults(t *testing.T) {
	content := `
projects:
  - name: web
    display_name: Web App
    container_ref: web
databases:
  - name: appdb
    username: app
    password: secret
    auto_backup: true
`
	path := filepath.Join(t.TempDir(), "bootstrap.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	Cfg.BootstrapFile = path
	defer func() { Cfg.BootstrapFile = "" }()

	b, err := LoadBootstrap()
	if err != nil {
		t.Fatalf("load bootstrap: %v", err)
	}
	if len(b.Projects) != 1 || b.Projects[0].ContainerRef != "web" {
		t.Errorf("unexpected projects: %+v", b.Projects)
	}
	if len(b.Databases) != 1 {
		t.Fatalf("unexpected databases: %+v", b.Databases)
	}
	db := b.Databases[0]
	if db.Engine != "postgres" || db.Port != 5432 || db.Host != "localhost" {
		t.Errorf("defaults not applied: %+v", db)
	}
	if !db.AutoBackup {
		t.Error("auto_backup should parse true")
	}
}

func TestLoadBootstrapUnset(t *testing.T) {
	Cfg.BootstrapFile = ""
	b, err := LoadBootstrap()
	if err != nil || b != nil {
		t.Errorf("expected nil, nil when unset, got %v, %v", b, err)
	}
}

func TestLoadBootstrapBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("projects: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	Cfg.BootstrapFile = path
	defer func() { Cfg.BootstrapFile = "" }()

	if _, err := LoadBootstrap(); err == nil {
		t.Error("expected parse error")
	}
}
