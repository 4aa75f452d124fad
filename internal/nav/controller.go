// Package nav provides authenticated navigation primitives: open the
// user-search surface, search by nickname, open a result. Each
// operation is a candidate-list resolution plus a settle-wait. The
// caller must already hold an authenticated session; the controller
// never logs in itself.
package nav

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tradescout/internal/browser"
	"tradescout/internal/session"
)

// ErrNotFound is returned when an operation's candidate list is
// exhausted without a match.
var ErrNotFound = errors.New("navigation target not found")

// Candidates holds the locator lists for the navigation surfaces.
type Candidates struct {
	SearchSurface browser.CandidateList
	SearchInput   browser.CandidateList
	SearchButton  browser.CandidateList
}

// DefaultCandidates returns the fallback selector sets for the target
// site's user-search surfaces.
func DefaultCandidates() Candidates {
	return Candidates{
		SearchSurface: browser.CandidateList{
			browser.Text("ユーザー検索"),
			browser.Selector(`[href*="user"]`),
			browser.Selector(`[href*="search"]`),
			browser.TextIn("a", "ユーザー検索"),
			browser.TextIn("button", "ユーザー検索"),
		},
		SearchInput: browser.CandidateList{
			browser.Selector(`input[placeholder*="ニックネーム"]`),
			browser.Selector(`input[placeholder*="nickname"]`),
			browser.Selector(`input[name*="nickname"]`),
			browser.Selector(`input[name*="search"]`),
			browser.Selector(`input[type="search"]`),
			browser.Selector(`input[class*="search"]`),
		},
		SearchButton: browser.CandidateList{
			browser.TextIn("button", "検索"),
			browser.Selector(`button[type="submit"]`),
			browser.Selector(`input[type="submit"]`),
		},
	}
}

// ResultCandidates builds the locator list for opening the search
// result matching key.
func ResultCandidates(key string) browser.CandidateList {
	return browser.CandidateList{
		browser.TextIn("a", key),
		browser.Selector(fmt.Sprintf(`[href*=%q]`, key)),
		browser.Text(key),
		browser.Selector(".user-item a"),
		browser.Selector(".search-result a"),
	}
}

// Options configures a Controller.
type Options struct {
	// ElementTimeout bounds each locator probe.
	ElementTimeout time.Duration

	// RequestDelay paces consecutive authenticated actions.
	RequestDelay time.Duration

	// Candidates overrides DefaultCandidates when any list is non-nil.
	Candidates Candidates
}

// Controller executes authenticated navigation against the single
// page. Session activity is touched on each successful operation
// (cosmetic only; the expiry window stays fixed).
type Controller struct {
	page   browser.Page
	store  *session.Store
	opts   Options
	logger *zap.Logger
}

// New creates a navigation controller. store may be nil when session
// activity tracking is not wanted.
func New(page browser.Page, store *session.Store, opts Options, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultCandidates()
	if opts.Candidates.SearchSurface == nil {
		opts.Candidates.SearchSurface = def.SearchSurface
	}
	if opts.Candidates.SearchInput == nil {
		opts.Candidates.SearchInput = def.SearchInput
	}
	if opts.Candidates.SearchButton == nil {
		opts.Candidates.SearchButton = def.SearchButton
	}
	if opts.ElementTimeout <= 0 {
		opts.ElementTimeout = 3 * time.Second
	}
	return &Controller{page: page, store: store, opts: opts, logger: logger}
}

// OpenSearchSurface activates the user-search tab.
func (c *Controller) OpenSearchSurface(ctx context.Context) error {
	if err := c.pace(ctx); err != nil {
		return err
	}

	el, err := browser.Resolve(ctx, c.page, c.opts.Candidates.SearchSurface, c.opts.ElementTimeout)
	if err != nil {
		if errors.Is(err, browser.ErrNoMatch) {
			c.logger.Warn("search surface not found")
			return fmt.Errorf("search surface: %w", ErrNotFound)
		}
		return err
	}
	if err := el.Click(ctx); err != nil {
		return fmt.Errorf("open search surface: %w", err)
	}
	if err := c.page.WaitSettle(ctx); err != nil {
		return fmt.Errorf("settle after opening search surface: %w", err)
	}

	c.touch()
	c.logger.Info("search surface opened")
	return nil
}

// SearchByKey fills the search input with key and submits. When no
// search button resolves, an Enter keystroke on the input is the
// fallback.
func (c *Controller) SearchByKey(ctx context.Context, key string) error {
	if err := c.pace(ctx); err != nil {
		return err
	}

	in, err := browser.Resolve(ctx, c.page, c.opts.Candidates.SearchInput, c.opts.ElementTimeout)
	if err != nil {
		if errors.Is(err, browser.ErrNoMatch) {
			c.logger.Warn("search input not found")
			return fmt.Errorf("search input: %w", ErrNotFound)
		}
		return err
	}
	if err := in.Fill(ctx, key); err != nil {
		return fmt.Errorf("fill search input: %w", err)
	}

	button, err := browser.Resolve(ctx, c.page, c.opts.Candidates.SearchButton, c.opts.ElementTimeout)
	switch {
	case err == nil:
		if err := button.Click(ctx); err != nil {
			return fmt.Errorf("click search button: %w", err)
		}
	case errors.Is(err, browser.ErrNoMatch):
		if err := in.PressEnter(ctx); err != nil {
			return fmt.Errorf("submit search via enter: %w", err)
		}
	default:
		return err
	}

	if err := c.page.WaitSettle(ctx); err != nil {
		return fmt.Errorf("settle after search: %w", err)
	}

	c.touch()
	c.logger.Info("search executed", zap.String("key", key))
	return nil
}

// OpenResult opens the search result matching key.
func (c *Controller) OpenResult(ctx context.Context, key string) error {
	if err := c.pace(ctx); err != nil {
		return err
	}

	el, err := browser.Resolve(ctx, c.page, ResultCandidates(key), c.opts.ElementTimeout)
	if err != nil {
		if errors.Is(err, browser.ErrNoMatch) {
			c.logger.Warn("search result not found", zap.String("key", key))
			return fmt.Errorf("result %q: %w", key, ErrNotFound)
		}
		return err
	}
	if err := el.Click(ctx); err != nil {
		return fmt.Errorf("open result: %w", err)
	}
	if err := c.page.WaitSettle(ctx); err != nil {
		return fmt.Errorf("settle after opening result: %w", err)
	}

	c.touch()
	c.logger.Info("result opened", zap.String("key", key))
	return nil
}

// pace waits the configured request delay, honoring cancellation.
func (c *Controller) pace(ctx context.Context) error {
	if c.opts.RequestDelay <= 0 {
		return nil
	}
	t := time.NewTimer(c.opts.RequestDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Controller) touch() {
	if c.store == nil {
		return
	}
	if err := c.store.Touch(); err != nil {
		c.logger.Warn("session touch failed", zap.Error(err))
	}
}
