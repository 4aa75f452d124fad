// Package browser drives a Chromium instance over CDP and exposes the
// narrow page capability surface the rest of tradescout depends on.
//
// Higher components (auth, nav, export) only see the Page and Element
// interfaces plus the candidate-list resolver, so the engine behind
// them is swappable and tests run against fakes.
package browser

import (
	"context"
	"time"

	"tradescout/internal/session"
)

// Page is the capability surface of the single browser page owned by
// an engine. Implementations serialize calls internally; callers may
// use a Page from one goroutine at a time without extra locking.
type Page interface {
	// Navigate loads url and returns once navigation is committed.
	Navigate(ctx context.Context, url string) error

	// WaitSettle blocks until the page has finished pending background
	// loads after an action. Bounded by the engine navigation timeout.
	WaitSettle(ctx context.Context) error

	// Find resolves a single locator within timeout. The probe has no
	// side effects.
	Find(ctx context.Context, loc Locator, timeout time.Duration) (Element, error)

	// CurrentURL returns the page's current URL, or "" when it cannot
	// be determined.
	CurrentURL() string

	// HTML returns the page's current markup.
	HTML(ctx context.Context) (string, error)

	// Cookies returns the browsing context's cookies verbatim.
	Cookies() ([]session.Cookie, error)

	// SetCookies installs cookies into the browsing context verbatim.
	SetCookies(cookies []session.Cookie) error
}

// Element is a handle to one resolved UI element.
type Element interface {
	// Fill replaces the element's value with text.
	Fill(ctx context.Context, text string) error

	// Click activates the element.
	Click(ctx context.Context) error

	// PressEnter sends an Enter keystroke to the element.
	PressEnter(ctx context.Context) error
}
