package nav

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tradescout/internal/browser"
	"tradescout/internal/browser/browsertest"
	"tradescout/internal/session"
)

func newController(t *testing.T, page browser.Page) (*Controller, *session.Store) {
	t.Helper()
	store := session.NewStore(t.TempDir(), time.Hour, nil)
	c := New(page, store, Options{ElementTimeout: 10 * time.Millisecond}, nil)
	return c, store
}

func TestOpenSearchSurface(t *testing.T) {
	page := browsertest.NewFakePage("https://island.example.test/home")
	page.Match(browser.Text("ユーザー検索"), "search-tab")

	c, _ := newController(t, page)
	require.NoError(t, c.OpenSearchSurface(context.Background()))
	require.Equal(t, 1, page.Element("search-tab").ClickCount)
	require.Equal(t, 1, page.SettleCalls)
}

func TestOpenSearchSurface_NotFound(t *testing.T) {
	page := browsertest.NewFakePage("https://island.example.test/home")

	c, _ := newController(t, page)
	err := c.OpenSearchSurface(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, len(DefaultCandidates().SearchSurface), page.FindCount())
}

func TestSearchByKey_ButtonPath(t *testing.T) {
	page := browsertest.NewFakePage("https://island.example.test/search")
	page.Match(browser.Selector(`input[type="search"]`), "search-input")
	page.Match(browser.TextIn("button", "検索"), "search-button")

	c, _ := newController(t, page)
	require.NoError(t, c.SearchByKey(context.Background(), "tarou"))

	in := page.Element("search-input")
	require.Equal(t, []string{"tarou"}, in.FillTexts)
	require.Zero(t, in.EnterCount)
	require.Equal(t, 1, page.Element("search-button").ClickCount)
}

func TestSearchByKey_EnterFallback(t *testing.T) {
	page := browsertest.NewFakePage("https://island.example.test/search")
	page.Match(browser.Selector(`input[name*="search"]`), "search-input")

	c, _ := newController(t, page)
	require.NoError(t, c.SearchByKey(context.Background(), "tarou"))

	in := page.Element("search-input")
	require.Equal(t, []string{"tarou"}, in.FillTexts)
	require.Equal(t, 1, in.EnterCount)
}

func TestSearchByKey_InputNotFound(t *testing.T) {
	page := browsertest.NewFakePage("https://island.example.test/search")

	c, _ := newController(t, page)
	err := c.SearchByKey(context.Background(), "tarou")
	require.ErrorIs(t, err, ErrNotFound)
	require.Zero(t, page.SettleCalls)
}

func TestOpenResult(t *testing.T) {
	page := browsertest.NewFakePage("https://island.example.test/search?q=tarou")
	page.Match(browser.TextIn("a", "tarou"), "result-link")

	c, _ := newController(t, page)
	require.NoError(t, c.OpenResult(context.Background(), "tarou"))
	require.Equal(t, 1, page.Element("result-link").ClickCount)
}

func TestOperationsTouchSession(t *testing.T) {
	page := browsertest.NewFakePage("https://island.example.test/home")
	page.Match(browser.Text("ユーザー検索"), "search-tab")

	c, store := newController(t, page)
	require.NoError(t, store.Save([]session.Cookie{{Name: "sid", Value: "x"}}, nil))
	before := store.Status()

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, c.OpenSearchSurface(context.Background()))

	after := store.Status()
	require.True(t, after.LastActivity.After(before.LastActivity))
	// Fixed window: activity never extends expiry.
	require.True(t, after.ExpiresAt.Equal(before.ExpiresAt))
}

func TestPace_Cancellation(t *testing.T) {
	page := browsertest.NewFakePage("https://island.example.test/home")
	c := New(page, nil, Options{RequestDelay: time.Minute, ElementTimeout: time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.OpenSearchSurface(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, page.FindCount())
}
