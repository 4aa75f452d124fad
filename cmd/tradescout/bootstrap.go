package main

import (
	"context"
	"errors"
	"fmt"

	"tradescout/internal/auth"
	"tradescout/internal/browser"
	"tradescout/internal/session"
)

// newStore builds the session store from config.
func newStore() *session.Store {
	return session.NewStore(cfg.Session.Dir, cfg.SessionTimeout(), logger.Named("session"))
}

// newAuthenticator wires detector + authenticator for the given page.
func newAuthenticator(page browser.Page, store *session.Store) *auth.Authenticator {
	detector := auth.NewDetector(cfg.Target, nil, cfg.ElementTimeout())
	userInfo := map[string]string{}
	if cfg.Auth.Username != "" {
		userInfo["username"] = cfg.Auth.Username
	}
	return auth.New(page, store, detector, auth.Options{
		LoginURL:       cfg.Target.LoginURL,
		ElementTimeout: cfg.ElementTimeout(),
		UserInfo:       userInfo,
	}, logger.Named("auth"))
}

// credentialsFromConfig returns configured credentials or an error
// telling the operator where to put them.
func credentialsFromConfig() (auth.Credentials, error) {
	if cfg.Auth.Username == "" || cfg.Auth.Password == "" {
		return auth.Credentials{}, errors.New(
			"credentials not configured (set auth.username/auth.password or TRADESCOUT_USERNAME/TRADESCOUT_PASSWORD)")
	}
	return auth.Credentials{Identifier: cfg.Auth.Username, Secret: cfg.Auth.Password}, nil
}

// ensureAuthenticated restores a stored session when one is usable and
// logs in otherwise. It leaves the page authenticated or fails.
func ensureAuthenticated(ctx context.Context, a *auth.Authenticator) error {
	if err := a.RestoreSession(ctx); err != nil && !errors.Is(err, session.ErrNoSession) {
		return err
	}

	creds, err := credentialsFromConfig()
	if err != nil {
		return err
	}

	// Login short-circuits when the restored cookies still hold.
	if err := a.Login(ctx, creds); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return nil
}
