package auth

import (
	"github.com/hostdeck/hostdeck/internal/config"
	"github.com/hostdeck/hostdeck/internal/database"
	"github.com/hostdeck/hostdeck/internal/terminal"
)

// Verifier resolves login tokens to principals for the terminal gate. With
// AUTH_DISABLED the first admin account is assumed, mirroring the HTTP
// middleware.
type Verifier struct {
	Store *SessionStore
}

func (v *Verifier) Verify(credential string) (*terminal.Principal, error) {
	if config.Cfg.AuthDisabled {
		user, err := database.GetFirstAdmin()
		if err != nil {
			return nil, ErrInvalidCredential
		}
		return &terminal.Principal{ID: user.ID, Username: user.Username, Role: user.Role}, nil
	}

	if credential == "" {
		return nil, ErrInvalidCredential
	}
	userID, ok := v.Store.Get(credential)
	if !ok {
		return nil, ErrInvalidCredential
	}
	user, err := database.GetUserByID(userID)
	if err != nil {
		return nil, ErrInvalidCredential
	}
	return &terminal.Principal{ID: user.ID, Username: user.Username, Role: user.Role}, nil
}
