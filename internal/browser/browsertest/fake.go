// Package browsertest provides an in-memory Page implementation for
// testing components that drive the browser capability surface.
package browsertest

import (
	"context"
	"errors"
	"sync"
	"time"

	"tradescout/internal/browser"
	"tradescout/internal/session"
)

// FakePage implements browser.Page against a declared set of matching
// locators. It records every probe, fill, and click so tests can
// assert on attempt counts and side effects.
type FakePage struct {
	mu sync.Mutex

	// URL is returned by CurrentURL and updated by Navigate.
	URL string

	// Matches maps locator strings (Locator.String()) to element
	// names. A probe for an unlisted locator fails.
	Matches map[string]string

	// CookieJar backs Cookies/SetCookies.
	CookieJar []session.Cookie

	// HTMLContent is returned by HTML.
	HTMLContent string

	// NavigateErr, when set, is returned by Navigate (transport
	// failure injection).
	NavigateErr error
	// SettleErr, when set, is returned by WaitSettle.
	SettleErr error

	// OnNavigate, when set, rewrites the page URL after a successful
	// Navigate (simulates redirects).
	OnNavigate func(url string) string

	NavigateCalls []string
	FindCalls     []browser.Locator
	SettleCalls   int

	elements map[string]*FakeElement
}

// NewFakePage returns an empty fake at url.
func NewFakePage(url string) *FakePage {
	return &FakePage{URL: url, Matches: map[string]string{}}
}

// Match declares that loc resolves to the element called name.
func (p *FakePage) Match(loc browser.Locator, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Matches[loc.String()] = name
}

// Element returns the named element handle, creating it on first use.
func (p *FakePage) Element(name string) *FakeElement {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.elementLocked(name)
}

func (p *FakePage) elementLocked(name string) *FakeElement {
	if p.elements == nil {
		p.elements = map[string]*FakeElement{}
	}
	el, ok := p.elements[name]
	if !ok {
		el = &FakeElement{Name: name}
		p.elements[name] = el
	}
	return el
}

func (p *FakePage) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.NavigateCalls = append(p.NavigateCalls, url)
	if p.NavigateErr != nil {
		return p.NavigateErr
	}
	p.URL = url
	if p.OnNavigate != nil {
		p.URL = p.OnNavigate(url)
	}
	return nil
}

func (p *FakePage) WaitSettle(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SettleCalls++
	return p.SettleErr
}

func (p *FakePage) Find(_ context.Context, loc browser.Locator, _ time.Duration) (browser.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.FindCalls = append(p.FindCalls, loc)
	name, ok := p.Matches[loc.String()]
	if !ok {
		return nil, errors.New("element not found")
	}
	return p.elementLocked(name), nil
}

func (p *FakePage) CurrentURL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.URL
}

func (p *FakePage) HTML(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.HTMLContent, nil
}

func (p *FakePage) Cookies() ([]session.Cookie, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]session.Cookie(nil), p.CookieJar...), nil
}

func (p *FakePage) SetCookies(cookies []session.Cookie) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CookieJar = append(p.CookieJar, cookies...)
	return nil
}

// SetURL updates the page URL directly (simulates an in-page
// transition).
func (p *FakePage) SetURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.URL = url
}

// FindCount returns how many probes were issued.
func (p *FakePage) FindCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.FindCalls)
}

// FakeElement implements browser.Element and records interactions.
type FakeElement struct {
	mu sync.Mutex

	Name string

	FillTexts   []string
	ClickCount  int
	EnterCount  int
	FillErr     error
	ClickErr    error
	OnActivate  func() // runs after a successful Click or PressEnter
}

func (e *FakeElement) Fill(_ context.Context, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.FillErr != nil {
		return e.FillErr
	}
	e.FillTexts = append(e.FillTexts, text)
	return nil
}

func (e *FakeElement) Click(context.Context) error {
	e.mu.Lock()
	if e.ClickErr != nil {
		e.mu.Unlock()
		return e.ClickErr
	}
	e.ClickCount++
	cb := e.OnActivate
	e.mu.Unlock()
	if cb != nil {
		cb()
	}
	return nil
}

func (e *FakeElement) PressEnter(context.Context) error {
	e.mu.Lock()
	e.EnterCount++
	cb := e.OnActivate
	e.mu.Unlock()
	if cb != nil {
		cb()
	}
	return nil
}

// Fills returns the number of fill operations on the element.
func (e *FakeElement) Fills() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.FillTexts)
}
