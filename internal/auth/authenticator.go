// Package auth implements the login state machine against a page whose
// markup is neither versioned nor controlled: navigate, short-circuit
// when already authenticated, fill credentials via ordered fallback
// locators, submit, re-verify, persist the session.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tradescout/internal/browser"
	"tradescout/internal/session"
)

// Credentials are ephemeral login inputs. They live only inside a
// Login call and are never persisted or logged.
type Credentials struct {
	Identifier string
	Secret     string
}

// Candidates holds the ordered locator lists for the three login form
// elements.
type Candidates struct {
	Identifier browser.CandidateList
	Secret     browser.CandidateList
	Submit     browser.CandidateList
}

// DefaultCandidates returns the fallback selector sets for login forms
// in the wild, identifier first by input type, then by name/id/
// placeholder conventions.
func DefaultCandidates() Candidates {
	return Candidates{
		Identifier: browser.CandidateList{
			browser.Selector(`input[type="email"]`),
			browser.Selector(`input[name*="email"]`),
			browser.Selector(`input[name*="mail"]`),
			browser.Selector(`input[id*="email"]`),
			browser.Selector(`input[id*="mail"]`),
			browser.Selector(`input[placeholder*="メール"]`),
			browser.Selector(`input[placeholder*="email"]`),
		},
		Secret: browser.CandidateList{
			browser.Selector(`input[type="password"]`),
			browser.Selector(`input[name*="password"]`),
			browser.Selector(`input[name*="pass"]`),
			browser.Selector(`input[id*="password"]`),
			browser.Selector(`input[id*="pass"]`),
			browser.Selector(`input[placeholder*="パスワード"]`),
			browser.Selector(`input[placeholder*="password"]`),
		},
		Submit: browser.CandidateList{
			browser.Selector(`button[type="submit"]`),
			browser.Selector(`input[type="submit"]`),
			browser.TextIn("button", "ログイン"),
			browser.TextIn("button", "login"),
			browser.Selector(`input[value*="ログイン"]`),
			browser.Selector(`input[value*="login"]`),
			browser.Selector(`[class*="login"] button`),
			browser.Selector(`[class*="signin"] button`),
		},
	}
}

// Options configures an Authenticator.
type Options struct {
	// LoginURL is the page Login navigates to first.
	LoginURL string

	// ElementTimeout bounds each individual locator probe.
	ElementTimeout time.Duration

	// Candidates overrides DefaultCandidates when any list is non-nil.
	Candidates Candidates

	// UserInfo is opaque metadata stored with a successful session
	// (e.g. the account name). Never include secrets.
	UserInfo map[string]string
}

// Authenticator owns the login state machine. It holds the single page
// exclusively for its lifetime; all calls are serialized by the
// underlying engine.
type Authenticator struct {
	page     browser.Page
	store    *session.Store
	detector *Detector
	opts     Options
	logger   *zap.Logger
}

// New creates an Authenticator driving page.
func New(page browser.Page, store *session.Store, detector *Detector, opts Options, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultCandidates()
	if opts.Candidates.Identifier == nil {
		opts.Candidates.Identifier = def.Identifier
	}
	if opts.Candidates.Secret == nil {
		opts.Candidates.Secret = def.Secret
	}
	if opts.Candidates.Submit == nil {
		opts.Candidates.Submit = def.Submit
	}
	if opts.ElementTimeout <= 0 {
		opts.ElementTimeout = 2 * time.Second
	}
	return &Authenticator{
		page:     page,
		store:    store,
		detector: detector,
		opts:     opts,
		logger:   logger,
	}
}

// RestoreSession installs a previously saved session into the browser
// context. It returns session.ErrNoSession when no usable record
// exists; a fresh login is then required.
func (a *Authenticator) RestoreSession(ctx context.Context) error {
	rec, err := a.store.Load()
	if err != nil {
		return err
	}
	if err := a.page.SetCookies(rec.Cookies); err != nil {
		return &TransportError{Op: "restore cookies", Err: err}
	}
	a.logger.Info("session restored into browser", zap.Int("cookies", len(rec.Cookies)))
	return nil
}

// Login runs the login state machine once. There is no retry across
// steps; the page is left in whatever state the final step produced.
//
// Outcomes: nil on success (including the already-authenticated
// short-circuit), *ElementNotFoundError, ErrVerificationFailed, or
// *TransportError.
func (a *Authenticator) Login(ctx context.Context, creds Credentials) error {
	attempt := uuid.NewString()
	log := a.logger.With(zap.String("attempt_id", attempt))
	log.Info("login attempt started", zap.String("url", a.opts.LoginURL))

	if err := a.page.Navigate(ctx, a.opts.LoginURL); err != nil {
		log.Error("login failed", zap.String("kind", "transport"), zap.Error(err))
		return &TransportError{Op: "navigate to login", Err: err}
	}
	if err := a.page.WaitSettle(ctx); err != nil {
		log.Error("login failed", zap.String("kind", "transport"), zap.Error(err))
		return &TransportError{Op: "settle after navigation", Err: err}
	}

	// Idempotency: a live session means no fields are filled and no
	// submit occurs.
	if a.detector.IsAuthenticated(ctx, a.page) {
		log.Info("already authenticated, skipping login")
		return nil
	}

	identifier, err := a.resolveField(ctx, a.opts.Candidates.Identifier, FieldIdentifier, log)
	if err != nil {
		return err
	}
	if err := identifier.Fill(ctx, creds.Identifier); err != nil {
		log.Error("login failed", zap.String("kind", "transport"), zap.Error(err))
		return &TransportError{Op: "fill identifier", Err: err}
	}
	log.Debug("identifier filled")

	secret, err := a.resolveField(ctx, a.opts.Candidates.Secret, FieldSecret, log)
	if err != nil {
		return err
	}
	if err := secret.Fill(ctx, creds.Secret); err != nil {
		log.Error("login failed", zap.String("kind", "transport"), zap.Error(err))
		return &TransportError{Op: "fill secret", Err: err}
	}
	log.Debug("secret filled")

	submit, err := a.resolveField(ctx, a.opts.Candidates.Submit, FieldSubmit, log)
	if err != nil {
		return err
	}
	if err := submit.Click(ctx); err != nil {
		log.Error("login failed", zap.String("kind", "transport"), zap.Error(err))
		return &TransportError{Op: "activate submit", Err: err}
	}
	if err := a.page.WaitSettle(ctx); err != nil {
		log.Error("login failed", zap.String("kind", "transport"), zap.Error(err))
		return &TransportError{Op: "settle after submit", Err: err}
	}

	if !a.detector.IsAuthenticated(ctx, a.page) {
		log.Warn("login failed", zap.String("kind", "verification"))
		return ErrVerificationFailed
	}

	a.persistSession(log)
	log.Info("login succeeded")
	return nil
}

// resolveField resolves one form field's candidate list, mapping
// exhaustion to a typed field failure.
func (a *Authenticator) resolveField(ctx context.Context, cands browser.CandidateList, field Field, log *zap.Logger) (browser.Element, error) {
	el, err := browser.Resolve(ctx, a.page, cands, a.opts.ElementTimeout)
	if err != nil {
		if errors.Is(err, browser.ErrNoMatch) {
			log.Warn("login failed",
				zap.String("kind", "element_not_found"),
				zap.String("field", string(field)))
			return nil, &ElementNotFoundError{Field: field}
		}
		log.Error("login failed", zap.String("kind", "transport"), zap.Error(err))
		return nil, &TransportError{Op: "resolve " + string(field), Err: err}
	}
	return el, nil
}

// persistSession saves cookies after a verified login. A save failure
// degrades to a warning; the login itself already succeeded.
func (a *Authenticator) persistSession(log *zap.Logger) {
	cookies, err := a.page.Cookies()
	if err != nil {
		log.Warn("could not read cookies, session not persisted", zap.Error(err))
		return
	}
	if err := a.store.Save(cookies, a.opts.UserInfo); err != nil {
		log.Warn("session save failed", zap.Error(err))
	}
}
