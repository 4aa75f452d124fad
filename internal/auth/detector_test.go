package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tradescout/internal/browser"
	"tradescout/internal/browser/browsertest"
	"tradescout/internal/config"
)

func testTarget() config.TargetConfig {
	return config.TargetConfig{
		BaseURL:         "https://island.example.test",
		LoginURL:        "https://island.example.test/login",
		LoginURLPattern: "/login",
	}
}

func TestDetector_URLHeuristic(t *testing.T) {
	d := NewDetector(testTarget(), nil, 10*time.Millisecond)

	page := browsertest.NewFakePage("https://island.example.test/mypage")
	require.True(t, d.IsAuthenticated(context.Background(), page))
	// Tier 1 short-circuits: no marker probe happened.
	require.Zero(t, page.FindCount())
}

func TestDetector_LoginURLFallsThroughToMarkers(t *testing.T) {
	d := NewDetector(testTarget(), nil, 10*time.Millisecond)

	page := browsertest.NewFakePage("https://island.example.test/login")
	require.False(t, d.IsAuthenticated(context.Background(), page))
	require.Equal(t, len(DefaultMarkers()), page.FindCount())
}

func TestDetector_ForeignOriginFallsThroughToMarkers(t *testing.T) {
	d := NewDetector(testTarget(), nil, 10*time.Millisecond)

	page := browsertest.NewFakePage("https://sso.other.test/start")
	page.Match(browser.Selector(`[href*="logout"]`), "logout-link")
	require.True(t, d.IsAuthenticated(context.Background(), page))
}

func TestDetector_MarkerResolves(t *testing.T) {
	markers := browser.CandidateList{
		browser.Selector("#logout"),
		browser.Text("マイページ"),
	}
	d := NewDetector(testTarget(), markers, 10*time.Millisecond)

	page := browsertest.NewFakePage("https://island.example.test/login")
	page.Match(browser.Text("マイページ"), "mypage-link")

	require.True(t, d.IsAuthenticated(context.Background(), page))
}

func TestDetector_Idempotent(t *testing.T) {
	d := NewDetector(testTarget(), nil, 10*time.Millisecond)
	page := browsertest.NewFakePage("https://island.example.test/home")

	for i := 0; i < 3; i++ {
		require.True(t, d.IsAuthenticated(context.Background(), page))
	}
	// Probes are read-only: no fills, no clicks recorded anywhere.
	require.Empty(t, page.NavigateCalls)
	require.Zero(t, page.SettleCalls)
}
