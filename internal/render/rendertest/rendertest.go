// Package rendertest provides scripted in-memory render backends for tests.
package rendertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/everstacklabs/librarian/internal/render"
)

// Elem is a fake DOM element.
type Elem struct {
	Label string
	Href  string
}

// Doc is the scripted content served for one URL.
type Doc struct {
	// Texts maps a selector to the InnerText it yields.
	Texts map[string]string
	// Elements maps a selector to what QueryAll returns before any click.
	Elements map[string][]Elem
	// Expanded maps a selector to what QueryAll returns after a Click.
	Expanded map[string][]Elem
	// NavigateErr fails Navigate for this URL.
	NavigateErr error
}

// Browser serves Docs by URL and remembers every page it opened.
type Browser struct {
	Docs       map[string]*Doc
	NewPageErr error

	mu     sync.Mutex
	pages  []*Page
	closed bool
}

// NewBrowser returns a Browser serving docs.
func NewBrowser(docs map[string]*Doc) *Browser {
	return &Browser{Docs: docs}
}

func (b *Browser) NewPage(ctx context.Context) (render.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.NewPageErr != nil {
		return nil, b.NewPageErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p := &Page{browser: b}
	b.pages = append(b.pages, p)
	return p, nil
}

func (b *Browser) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (b *Browser) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Pages returns every page opened so far.
func (b *Browser) Pages() []*Page {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Page(nil), b.pages...)
}

// Page is a fake page. Calls records each method invocation in order.
type Page struct {
	browser *Browser
	doc     *Doc
	clicked bool

	URL    string
	Closed bool
	Calls  []string
}

func (p *Page) record(format string, args ...any) {
	p.Calls = append(p.Calls, fmt.Sprintf(format, args...))
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.record("navigate %s", url)
	if err := ctx.Err(); err != nil {
		return err
	}
	doc, ok := p.browser.Docs[url]
	if !ok {
		return fmt.Errorf("no fixture for %s", url)
	}
	if doc.NavigateErr != nil {
		return doc.NavigateErr
	}
	p.doc = doc
	p.URL = url
	return nil
}

func (p *Page) WaitForSelector(ctx context.Context, selector string, _ time.Duration) error {
	p.record("wait %s", selector)
	if err := p.ready(ctx); err != nil {
		return err
	}
	if _, ok := p.doc.Texts[selector]; ok {
		return nil
	}
	if len(p.elements(selector)) > 0 {
		return nil
	}
	return fmt.Errorf("%q: %w", selector, render.ErrNotFound)
}

func (p *Page) WaitForLoadState(ctx context.Context, _ time.Duration) error {
	p.record("load-state")
	return p.ready(ctx)
}

func (p *Page) InnerText(ctx context.Context, selector string) (string, error) {
	p.record("text %s", selector)
	if err := p.ready(ctx); err != nil {
		return "", err
	}
	text, ok := p.doc.Texts[selector]
	if !ok {
		return "", fmt.Errorf("%q: %w", selector, render.ErrNotFound)
	}
	return text, nil
}

func (p *Page) QueryAll(ctx context.Context, selector string) ([]render.Element, error) {
	p.record("query %s", selector)
	if err := p.ready(ctx); err != nil {
		return nil, err
	}
	elems := p.elements(selector)
	out := make([]render.Element, len(elems))
	for i, e := range elems {
		out[i] = e
	}
	return out, nil
}

func (p *Page) Click(ctx context.Context, selector string) error {
	p.record("click %s", selector)
	if err := p.ready(ctx); err != nil {
		return err
	}
	if len(p.doc.Elements[selector]) == 0 {
		return fmt.Errorf("%q: %w", selector, render.ErrNotFound)
	}
	p.clicked = true
	return nil
}

func (p *Page) Close() error {
	p.record("close")
	p.Closed = true
	return nil
}

func (p *Page) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.doc == nil {
		return fmt.Errorf("no document loaded")
	}
	return nil
}

func (p *Page) elements(selector string) []Elem {
	if p.clicked {
		if elems, ok := p.doc.Expanded[selector]; ok {
			return elems
		}
	}
	return p.doc.Elements[selector]
}

func (e Elem) Text() (string, error) { return e.Label, nil }

func (e Elem) Attr(name string) (string, error) {
	if name == "href" {
		return e.Href, nil
	}
	return "", nil
}
