package auth

import (
	"context"
	"strings"
	"time"

	"tradescout/internal/browser"
	"tradescout/internal/config"
)

// Detector decides authenticated vs. not without a stable API. Two
// tiers, short-circuiting: a URL heuristic first, then a small ordered
// list of post-login markers. The probe is side-effect-free and safe
// to call repeatedly.
type Detector struct {
	baseURL      string
	loginPattern string
	markers      browser.CandidateList
	timeout      time.Duration
}

// DefaultMarkers returns the post-login markers probed when the URL
// heuristic is inconclusive: a logout control, profile markers, and
// authenticated-only navigation text.
func DefaultMarkers() browser.CandidateList {
	return browser.CandidateList{
		browser.Selector(`[href*="logout"]`),
		browser.Selector(`[class*="user"]`),
		browser.Selector(`[class*="profile"]`),
		browser.Text("ユーザー検索"),
		browser.Text("マイページ"),
	}
}

// NewDetector builds a detector for the target site. Passing a nil
// markers list selects DefaultMarkers.
func NewDetector(target config.TargetConfig, markers browser.CandidateList, timeout time.Duration) *Detector {
	if markers == nil {
		markers = DefaultMarkers()
	}
	pattern := target.LoginURLPattern
	if pattern == "" {
		pattern = "/login"
	}
	return &Detector{
		baseURL:      target.BaseURL,
		loginPattern: pattern,
		markers:      markers,
		timeout:      timeout,
	}
}

// IsAuthenticated reports whether the page currently holds an
// authenticated session.
func (d *Detector) IsAuthenticated(ctx context.Context, page browser.Page) bool {
	// Tier 1: off the login page and on the target origin.
	url := page.CurrentURL()
	if url != "" && d.baseURL != "" &&
		!strings.Contains(url, d.loginPattern) && strings.Contains(url, d.baseURL) {
		return true
	}

	// Tier 2: any post-login marker resolves.
	_, err := browser.Resolve(ctx, page, d.markers, d.timeout)
	return err == nil
}
