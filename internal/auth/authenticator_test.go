package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"tradescout/internal/browser"
	"tradescout/internal/browser/browsertest"
	"tradescout/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	loginURL = "https://island.example.test/login"
	homeURL  = "https://island.example.test/home"
)

func newAuthenticator(t *testing.T, page browser.Page) (*Authenticator, *session.Store) {
	t.Helper()
	store := session.NewStore(t.TempDir(), time.Hour, nil)
	detector := NewDetector(testTarget(), nil, 10*time.Millisecond)
	a := New(page, store, detector, Options{
		LoginURL:       loginURL,
		ElementTimeout: 10 * time.Millisecond,
		UserInfo:       map[string]string{"username": "trader"},
	}, nil)
	return a, store
}

// matchLoginForm wires the first candidate of each field list to a
// named element and returns the three handles.
func matchLoginForm(page *browsertest.FakePage) (id, secret, submit *browsertest.FakeElement) {
	cands := DefaultCandidates()
	page.Match(cands.Identifier[0], "identifier")
	page.Match(cands.Secret[0], "secret")
	page.Match(cands.Submit[0], "submit")
	return page.Element("identifier"), page.Element("secret"), page.Element("submit")
}

func TestLogin_Success(t *testing.T) {
	page := browsertest.NewFakePage("about:blank")
	page.CookieJar = []session.Cookie{{Name: "sid", Value: "fresh", Domain: ".island.example.test"}}
	id, secret, submit := matchLoginForm(page)
	submit.OnActivate = func() { page.SetURL(homeURL) }

	a, store := newAuthenticator(t, page)
	err := a.Login(context.Background(), Credentials{Identifier: "trader@example.test", Secret: "hunter2"})
	require.NoError(t, err)

	require.Equal(t, []string{"trader@example.test"}, id.FillTexts)
	require.Equal(t, []string{"hunter2"}, secret.FillTexts)
	require.Equal(t, 1, submit.ClickCount)

	// Session persisted on success.
	rec, err := store.Load()
	require.NoError(t, err)
	require.Len(t, rec.Cookies, 1)
	require.Equal(t, "sid", rec.Cookies[0].Name)
	require.Equal(t, "trader", rec.Info.UserInfo["username"])
}

func TestLogin_AlreadyAuthenticatedSkipsForm(t *testing.T) {
	page := browsertest.NewFakePage("about:blank")
	// The login URL redirects straight to an authenticated page.
	page.OnNavigate = func(string) string { return homeURL }
	id, secret, submit := matchLoginForm(page)

	a, store := newAuthenticator(t, page)
	err := a.Login(context.Background(), Credentials{Identifier: "trader", Secret: "pw"})
	require.NoError(t, err)

	// No probe, no fill, no submit beyond the URL check.
	require.Zero(t, page.FindCount())
	require.Zero(t, id.Fills())
	require.Zero(t, secret.Fills())
	require.Zero(t, submit.ClickCount)

	// The short-circuit path does not rewrite the stored session.
	_, err = store.Load()
	require.ErrorIs(t, err, session.ErrNoSession)
}

func TestLogin_IdentifierNotFound(t *testing.T) {
	page := browsertest.NewFakePage("about:blank")
	page.OnNavigate = func(string) string { return loginURL }

	a, _ := newAuthenticator(t, page)
	err := a.Login(context.Background(), Credentials{Identifier: "trader", Secret: "pw"})

	var nf *ElementNotFoundError
	require.ErrorAs(t, err, &nf)
	require.Equal(t, FieldIdentifier, nf.Field)
}

func TestLogin_SecretNotFoundStopsBeforeSubmit(t *testing.T) {
	page := browsertest.NewFakePage("about:blank")
	page.OnNavigate = func(string) string { return loginURL }
	cands := DefaultCandidates()
	page.Match(cands.Identifier[0], "identifier")
	page.Match(cands.Submit[0], "submit")

	a, _ := newAuthenticator(t, page)
	err := a.Login(context.Background(), Credentials{Identifier: "trader", Secret: "pw"})

	var nf *ElementNotFoundError
	require.ErrorAs(t, err, &nf)
	require.Equal(t, FieldSecret, nf.Field)

	// Identifier was filled, but submit was never activated.
	require.Equal(t, 1, page.Element("identifier").Fills())
	require.Zero(t, page.Element("submit").ClickCount)
	require.Equal(t, 1, page.SettleCalls)
}

func TestLogin_VerificationFailedWritesNoSession(t *testing.T) {
	page := browsertest.NewFakePage("about:blank")
	page.OnNavigate = func(string) string { return loginURL }
	_, _, submit := matchLoginForm(page)
	// Submit leaves the page on the login URL: wrong credentials.
	submit.OnActivate = func() { page.SetURL(loginURL) }

	a, store := newAuthenticator(t, page)
	err := a.Login(context.Background(), Credentials{Identifier: "trader", Secret: "wrong"})
	require.ErrorIs(t, err, ErrVerificationFailed)
	require.Equal(t, 1, submit.ClickCount)

	_, err = store.Load()
	require.ErrorIs(t, err, session.ErrNoSession)
}

func TestLogin_TransportErrorAborts(t *testing.T) {
	page := browsertest.NewFakePage("about:blank")
	page.NavigateErr = errors.New("browser gone")

	a, _ := newAuthenticator(t, page)
	err := a.Login(context.Background(), Credentials{Identifier: "trader", Secret: "pw"})

	var te *TransportError
	require.ErrorAs(t, err, &te)
	require.Zero(t, page.FindCount())
}

func TestRestoreSession(t *testing.T) {
	page := browsertest.NewFakePage("about:blank")
	a, store := newAuthenticator(t, page)

	cookies := []session.Cookie{{Name: "sid", Value: "persisted", Domain: ".island.example.test"}}
	require.NoError(t, store.Save(cookies, nil))

	require.NoError(t, a.RestoreSession(context.Background()))
	require.Len(t, page.CookieJar, 1)
	require.Equal(t, "persisted", page.CookieJar[0].Value)
}

func TestRestoreSession_NoSession(t *testing.T) {
	page := browsertest.NewFakePage("about:blank")
	a, _ := newAuthenticator(t, page)

	err := a.RestoreSession(context.Background())
	require.ErrorIs(t, err, session.ErrNoSession)
	require.Empty(t, page.CookieJar)
}
