package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// LocatorKind selects the matching mechanism of a Locator.
type LocatorKind string

const (
	// KindSelector matches by CSS selector.
	KindSelector LocatorKind = "css"
	// KindText matches an element whose text content contains Value.
	KindText LocatorKind = "text"
	// KindXPath matches by XPath expression.
	KindXPath LocatorKind = "xpath"
)

// Locator is an opaque rule for finding exactly one UI element.
type Locator struct {
	Kind  LocatorKind
	Value string

	// Scope narrows text matches to elements of this CSS selector.
	// Empty means any element.
	Scope string
}

// Selector builds a CSS selector locator.
func Selector(v string) Locator { return Locator{Kind: KindSelector, Value: v} }

// Text builds a locator matching any element containing v.
func Text(v string) Locator { return Locator{Kind: KindText, Value: v} }

// TextIn builds a locator matching elements of scope containing v.
func TextIn(scope, v string) Locator { return Locator{Kind: KindText, Value: v, Scope: scope} }

// XPath builds an XPath locator.
func XPath(v string) Locator { return Locator{Kind: KindXPath, Value: v} }

func (l Locator) String() string {
	if l.Kind == KindText && l.Scope != "" {
		return fmt.Sprintf("%s[%s~%q]", l.Kind, l.Scope, l.Value)
	}
	return fmt.Sprintf("%s[%s]", l.Kind, l.Value)
}

// CandidateList is an ordered sequence of locators: tried in order,
// first match wins, exhausting all is failure.
type CandidateList []Locator

// ErrNoMatch is returned by Resolve after every candidate has been
// tried without a match.
var ErrNoMatch = errors.New("no candidate locator matched")

// Resolve tries each candidate in order, each probe independently
// time-boxed by perTimeout, and returns the first matching element.
// It stops probing at the first match; worst-case latency is the sum
// of per-candidate timeouts. Context cancellation aborts between
// probes.
func Resolve(ctx context.Context, page Page, candidates CandidateList, perTimeout time.Duration) (Element, error) {
	for _, loc := range candidates {
		el, err := page.Find(ctx, loc, perTimeout)
		if err == nil {
			return el, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, ErrNoMatch
}
