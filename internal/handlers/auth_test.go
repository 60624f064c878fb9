package handlers

import (
	"net/http"
	"testing"

	"github.com/hostdeck/hostdeck/internal/auth"
)

func TestLoginSuccessSetsCookie(t *testing.T) {
	setupTestDB(t)
	testAdmin(t)

	rec := do("POST", "/auth/login", "/auth/login",
		map[string]string{"username": "admin", "password": "adminpass"}, nil, Login)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["username"] != "admin" || body["role"] != "admin" {
		t.Errorf("unexpected body: %v", body)
	}

	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookie && c.Value != "" && c.HttpOnly {
			found = true
			if _, ok := SessionStore.Get(c.Value); !ok {
				t.Error("cookie token should resolve in the session store")
			}
		}
	}
	if !found {
		t.Error("session cookie not set")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	setupTestDB(t)
	testAdmin(t)

	rec := do("POST", "/auth/login", "/auth/login",
		map[string]string{"username": "admin", "password": "nope"}, nil, Login)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestLoginUnknownUserSameError(t *testing.T) {
	setupTestDB(t)

	rec := do("POST", "/auth/login", "/auth/login",
		map[string]string{"username": "ghost", "password": "x"}, nil, Login)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestSetupFlow(t *testing.T) {
	setupTestDB(t)

	rec := do("GET", "/auth/setup-required", "/auth/setup-required", nil, nil, SetupRequired)
	if decode(t, rec)["setup_required"] != true {
		t.Error("fresh install should require setup")
	}

	rec = do("POST", "/auth/setup", "/auth/setup",
		map[string]string{"username": "root", "password": "pw"}, nil, SetupCreateAdmin)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do("GET", "/auth/setup-required", "/auth/setup-required", nil, nil, SetupRequired)
	if decode(t, rec)["setup_required"] != false {
		t.Error("setup should be complete after first admin")
	}

	// Second setup attempt must be rejected.
	rec = do("POST", "/auth/setup", "/auth/setup",
		map[string]string{"username": "evil", "password": "pw"}, nil, SetupCreateAdmin)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
}

func TestGetCurrentUser(t *testing.T) {
	setupTestDB(t)
	admin := testAdmin(t)

	rec := do("GET", "/auth/me", "/auth/me", nil, admin, GetCurrentUser)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if decode(t, rec)["username"] != "admin" {
		t.Error("wrong user returned")
	}

	rec = do("GET", "/auth/me", "/auth/me", nil, nil, GetCurrentUser)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without user, got %d", rec.Code)
	}
}
