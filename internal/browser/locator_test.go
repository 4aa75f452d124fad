package browser_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tradescout/internal/browser"
	"tradescout/internal/browser/browsertest"
)

func TestResolve_FirstMatchWins(t *testing.T) {
	page := browsertest.NewFakePage("https://example.test")
	candidates := browser.CandidateList{
		browser.Selector(`input[type="email"]`),
		browser.Selector(`input[name*="mail"]`),
		browser.Selector(`input[id*="mail"]`),
	}
	page.Match(candidates[1], "email-field")

	el, err := browser.Resolve(context.Background(), page, candidates, 10*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, el)

	// The third candidate must never be probed once the second hits.
	require.Equal(t, 2, page.FindCount())
	require.Equal(t, candidates[0], page.FindCalls[0])
	require.Equal(t, candidates[1], page.FindCalls[1])
}

func TestResolve_ExhaustionTriesAllCandidates(t *testing.T) {
	page := browsertest.NewFakePage("https://example.test")
	candidates := browser.CandidateList{
		browser.Selector("#a"),
		browser.Selector("#b"),
		browser.Text("ログイン"),
		browser.XPath("//button[1]"),
	}

	_, err := browser.Resolve(context.Background(), page, candidates, 10*time.Millisecond)
	require.ErrorIs(t, err, browser.ErrNoMatch)
	require.Equal(t, len(candidates), page.FindCount())
}

func TestResolve_EmptyListFails(t *testing.T) {
	page := browsertest.NewFakePage("https://example.test")
	_, err := browser.Resolve(context.Background(), page, nil, time.Millisecond)
	require.ErrorIs(t, err, browser.ErrNoMatch)
	require.Zero(t, page.FindCount())
}

func TestResolve_CancellationAborts(t *testing.T) {
	page := browsertest.NewFakePage("https://example.test")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := browser.Resolve(ctx, page, browser.CandidateList{
		browser.Selector("#a"),
		browser.Selector("#b"),
	}, time.Millisecond)
	require.True(t, errors.Is(err, context.Canceled))
	// The first probe may run before cancellation is observed, but no
	// exhaustion happens.
	require.LessOrEqual(t, page.FindCount(), 1)
}

func TestLocator_String(t *testing.T) {
	require.Equal(t, `css[input[type="email"]]`, browser.Selector(`input[type="email"]`).String())
	require.Equal(t, `text[ユーザー検索]`, browser.Text("ユーザー検索").String())
	require.Equal(t, `text[a~"ユーザー検索"]`, browser.TextIn("a", "ユーザー検索").String())
	require.Equal(t, `xpath[//button]`, browser.XPath("//button").String())
}
