package crypto

import (
	"path/filepath"
	"testing"

	"github.com/hostdeck/hostdeck/internal/config"
	"github.com/hostdeck/hostdeck/internal/database"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	config.Cfg.DatabasePath = filepath.Join(t.TempDir(), "test.db")
	if err := database.Init(); err != nil {
		t.Fatalf("init database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	setupTestDB(t)

	enc, err := Encrypt("p@ssw0rd")
	if err != nil {
		t.Fatal(err)
	}
	if enc == "p@ssw0rd" {
		t.Fatal("ciphertext must differ from plaintext")
	}

	dec, err := Decrypt(enc)
	if err != nil {
		t.Fatal(err)
	}
	if dec != "p@ssw0rd" {
		t.Errorf("decrypted = %q", dec)
	}
}

func TestKeyPersistsAcrossCalls(t *testing.T) {
	setupTestDB(t)

	enc, err := Encrypt("secret")
	if err != nil {
		t.Fatal(err)
	}
	key1, _ := database.GetSetting("fernet_key")

	// Second operation must reuse the stored key, not mint a new one.
	if _, err := Encrypt("another"); err != nil {
		t.Fatal(err)
	}
	key2, _ := database.GetSetting("fernet_key")
	if key1 != key2 {
		t.Fatal("fernet key changed between operations")
	}

	dec, err := Decrypt(enc)
	if err != nil || dec != "secret" {
		t.Errorf("decrypt after key reuse = %q, %v", dec, err)
	}
}

func TestDecryptGarbage(t *testing.T) {
	setupTestDB(t)

	if _, err := Decrypt("not-a-token"); err == nil {
		t.Error("garbage ciphertext should fail")
	}
	if dec, err := Decrypt(""); err != nil || dec != "" {
		t.Errorf("empty ciphertext = %q, %v; want empty, nil", dec, err)
	}
}

func TestMask(t *testing.T) {
	if got := Mask(""); got != "" {
		t.Errorf("Mask(empty) = %q", got)
	}
	if got := Mask("ab"); got != "****" {
		t.Errorf("Mask(short) = %q", got)
	}
	if got := Mask("supersecret"); got != "****cret" {
		t.Errorf("Mask(long) = %q", got)
	}
}
