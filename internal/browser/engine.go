package browser

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"tradescout/internal/config"
	"tradescout/internal/session"
)

// settleWindow is how long the DOM must stay unchanged after load
// before the page counts as settled.
const settleWindow = 2 * time.Second

// Engine owns one Chromium process and one page for its lifetime. All
// page operations are serialized through a weight-1 semaphore, so a
// single logical task runs against the page at a time.
type Engine struct {
	cfg        config.BrowserConfig
	navTimeout time.Duration
	logger     *zap.Logger

	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	sem      *semaphore.Weighted

	mu     sync.Mutex
	closed bool
}

// Start launches Chromium (or connects to cfg.Browser.DebuggerURL when
// set), opens the single page, and applies viewport and user-agent
// overrides. On any failure the partially-built engine is torn down
// before returning.
func Start(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{
		cfg:        cfg.Browser,
		navTimeout: cfg.NavigationTimeout(),
		logger:     logger,
		sem:        semaphore.NewWeighted(1),
	}

	controlURL := cfg.Browser.DebuggerURL
	if controlURL == "" {
		l := launcher.New().
			Headless(cfg.Browser.Headless).
			Set(flags.NoSandbox).
			Set("disable-dev-shm-usage")
		url, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chromium: %w", err)
		}
		e.launcher = l
		controlURL = url
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		e.Close()
		return nil, fmt.Errorf("connect to chromium: %w", err)
	}
	e.browser = browser

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("create page: %w", err)
	}
	e.page = page

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             cfg.Browser.ViewportWidth,
		Height:            cfg.Browser.ViewportHeight,
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		logger.Warn("failed to set viewport", zap.Error(err))
	}

	if cfg.Browser.UserAgent != "" {
		if err := (proto.NetworkSetUserAgentOverride{
			UserAgent: cfg.Browser.UserAgent,
		}).Call(page); err != nil {
			logger.Warn("failed to set user agent", zap.Error(err))
		}
	}

	logger.Info("browser started",
		zap.Bool("headless", cfg.Browser.Headless),
		zap.Bool("attached", cfg.Browser.DebuggerURL != ""))
	return e, nil
}

// Page returns the engine's single page.
func (e *Engine) Page() Page {
	return &rodPage{engine: e}
}

// Close releases the page, the browsing context, and the launched
// process. It is idempotent and safe on a partially-initialized
// engine.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true

	if e.page != nil {
		_ = e.page.Close()
		e.page = nil
	}
	if e.browser != nil {
		_ = e.browser.Close()
		e.browser = nil
	}
	if e.launcher != nil {
		e.launcher.Kill()
		e.launcher.Cleanup()
		e.launcher = nil
	}
	e.logger.Info("browser stopped")
}

// rodPage adapts the rod page to the Page interface, serializing every
// call through the engine's semaphore.
type rodPage struct {
	engine *Engine
}

func (p *rodPage) acquire(ctx context.Context) (release func(), err error) {
	if err := p.engine.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { p.engine.sem.Release(1) }, nil
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	release, err := p.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := p.engine.page.Context(ctx).Timeout(p.engine.navTimeout).Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (p *rodPage) WaitSettle(ctx context.Context) error {
	release, err := p.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	page := p.engine.page.Context(ctx).Timeout(p.engine.navTimeout)
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}
	// Best effort: a page that keeps mutating still counts as settled
	// once the window elapses.
	_ = page.WaitStable(settleWindow)
	return nil
}

func (p *rodPage) Find(ctx context.Context, loc Locator, timeout time.Duration) (Element, error) {
	release, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	page := p.engine.page.Context(ctx).Timeout(timeout)

	var el *rod.Element
	switch loc.Kind {
	case KindSelector:
		el, err = page.Element(loc.Value)
	case KindText:
		scope := loc.Scope
		if scope == "" {
			scope = "*"
		}
		el, err = page.ElementR(scope, regexp.QuoteMeta(loc.Value))
	case KindXPath:
		el, err = page.ElementX(loc.Value)
	default:
		return nil, fmt.Errorf("unknown locator kind: %s", loc.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", loc, err)
	}
	return &rodElement{engine: p.engine, el: el}, nil
}

func (p *rodPage) CurrentURL() string {
	info, err := p.engine.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (p *rodPage) HTML(ctx context.Context) (string, error) {
	release, err := p.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	html, err := p.engine.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("page html: %w", err)
	}
	return html, nil
}

func (p *rodPage) Cookies() ([]session.Cookie, error) {
	cookies, err := p.engine.page.Cookies([]string{})
	if err != nil {
		return nil, fmt.Errorf("get cookies: %w", err)
	}

	out := make([]session.Cookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, session.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  float64(c.Expires),
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		})
	}
	return out, nil
}

func (p *rodPage) SetCookies(cookies []session.Cookie) error {
	if len(cookies) == 0 {
		return nil
	}

	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  proto.TimeSinceEpoch(c.Expires),
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		})
	}
	if err := p.engine.page.SetCookies(params); err != nil {
		return fmt.Errorf("set cookies: %w", err)
	}
	return nil
}

type rodElement struct {
	engine *Engine
	el     *rod.Element
}

func (r *rodElement) Fill(ctx context.Context, text string) error {
	release, err := (&rodPage{engine: r.engine}).acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	el := r.el.Context(ctx)
	// Clear any prefilled value before typing.
	if err := el.SelectAllText(); err == nil {
		_ = el.Input("")
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("fill element: %w", err)
	}
	return nil
}

func (r *rodElement) Click(ctx context.Context) error {
	release, err := (&rodPage{engine: r.engine}).acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := r.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click element: %w", err)
	}
	return nil
}

func (r *rodElement) PressEnter(ctx context.Context) error {
	release, err := (&rodPage{engine: r.engine}).acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := r.el.Context(ctx).Type(input.Enter); err != nil {
		return fmt.Errorf("press enter: %w", err)
	}
	return nil
}
