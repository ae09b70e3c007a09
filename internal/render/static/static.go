// Package static renders pages from their server-sent HTML without running
// scripts.
package static

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/everstacklabs/librarian/internal/htmlutil"
	"github.com/everstacklabs/librarian/internal/httpclient"
	"github.com/everstacklabs/librarian/internal/render"
)

// Name is the registry key for this backend.
const Name = "static"

func init() {
	render.Register(Name, Launch)
}

// Browser hands out pages backed by a shared HTTP client.
type Browser struct {
	client *httpclient.Client
}

// Launch builds a static browser. A nil opts.HTTP gets a plain client.
func Launch(_ context.Context, opts render.Options) (render.Browser, error) {
	client := opts.HTTP
	if client == nil {
		client = httpclient.New(
			httpclient.WithTimeout(opts.Timeout),
			httpclient.WithUserAgent(opts.UserAgent),
		)
	}
	return &Browser{client: client}, nil
}

func (b *Browser) NewPage(ctx context.Context) (render.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Page{client: b.client}, nil
}

func (b *Browser) Close() error { return nil }

// Page holds the parsed document of the last navigation.
type Page struct {
	client *httpclient.Client
	doc    *goquery.Document
	url    string
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	resp, err := p.client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", url, err)
	}
	p.doc = doc
	p.url = url
	return nil
}

// WaitForSelector does not wait: the document is complete after Navigate.
func (p *Page) WaitForSelector(ctx context.Context, selector string, _ time.Duration) error {
	_, err := p.find(ctx, selector)
	return err
}

func (p *Page) WaitForLoadState(ctx context.Context, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.doc == nil {
		return fmt.Errorf("no document loaded")
	}
	return nil
}

func (p *Page) InnerText(ctx context.Context, selector string) (string, error) {
	sel, err := p.find(ctx, selector)
	if err != nil {
		return "", err
	}
	return htmlutil.InnerText(sel.First()), nil
}

func (p *Page) QueryAll(ctx context.Context, selector string) ([]render.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}
	var out []render.Element
	p.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, element{s})
	})
	return out, nil
}

// Click only checks that the target exists; scripts do not run here.
func (p *Page) Click(ctx context.Context, selector string) error {
	_, err := p.find(ctx, selector)
	return err
}

func (p *Page) Close() error {
	p.doc = nil
	return nil
}

func (p *Page) find(ctx context.Context, selector string) (*goquery.Selection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}
	sel := p.doc.Find(selector)
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%q on %s: %w", selector, p.url, render.ErrNotFound)
	}
	return sel, nil
}

type element struct {
	s *goquery.Selection
}

func (e element) Text() (string, error) { return htmlutil.InnerText(e.s), nil }

func (e element) Attr(name string) (string, error) {
	v, _ := e.s.Attr(name)
	return v, nil
}
