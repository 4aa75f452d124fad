package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"tradescout/internal/auth"
	"tradescout/internal/browser"
	"tradescout/internal/session"
)

var (
	loginUsername string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the target site and persist the session",
	RunE:  runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginUsername, "username", "", "login identifier (falls back to config/env)")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "login secret (falls back to config/env)")
}

func runLogin(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	creds := auth.Credentials{Identifier: loginUsername, Secret: loginPassword}
	if creds.Identifier == "" || creds.Secret == "" {
		var err error
		creds, err = credentialsFromConfig()
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	engine, err := browser.Start(ctx, cfg, logger.Named("browser"))
	if err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer engine.Close()

	page := engine.Page()
	store := newStore()
	a := newAuthenticator(page, store)

	// Reuse stored cookies so a still-valid session short-circuits.
	if err := a.RestoreSession(ctx); err != nil && !errors.Is(err, session.ErrNoSession) {
		return err
	}

	if err := a.Login(ctx, creds); err != nil {
		return describeLoginFailure(err)
	}

	fmt.Println("login succeeded")
	return nil
}

// describeLoginFailure maps typed login outcomes onto operator-facing
// reasons. The process exit code is non-zero for all of them.
func describeLoginFailure(err error) error {
	var nf *auth.ElementNotFoundError
	var te *auth.TransportError
	switch {
	case errors.As(err, &nf):
		return fmt.Errorf("login failed: could not locate the %s field on the login page", nf.Field)
	case errors.Is(err, auth.ErrVerificationFailed):
		return errors.New("login failed: credentials were submitted but the site did not authenticate (check username/password)")
	case errors.As(err, &te):
		return fmt.Errorf("login failed: browser transport error during %s: %v", te.Op, te.Err)
	default:
		return err
	}
}
