// Package playwright renders pages in headless Chromium through playwright-go.
package playwright

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	pw "github.com/playwright-community/playwright-go"

	"github.com/everstacklabs/librarian/internal/render"
)

// Name is the registry key for this backend.
const Name = "playwright"

func init() {
	render.Register(Name, Launch)
}

// Browser owns the playwright driver and one Chromium process.
type Browser struct {
	pw      *pw.Playwright
	browser pw.Browser
	opts    render.Options
}

// Launch installs the driver if needed, starts it, and launches Chromium.
func Launch(ctx context.Context, opts render.Options) (render.Browser, error) {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.WaitPolicy == "" {
		opts.WaitPolicy = render.WaitNetworkIdle
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := pw.Install(&pw.RunOptions{Verbose: false}); err != nil {
		return nil, fmt.Errorf("installing playwright: %w", err)
	}
	runner, err := pw.Run()
	if err != nil {
		return nil, fmt.Errorf("starting playwright: %w", err)
	}

	browser, err := runner.Chromium.Launch(pw.BrowserTypeLaunchOptions{
		Headless: pw.Bool(opts.Headless),
		Timeout:  pw.Float(float64(opts.Timeout.Milliseconds())),
	})
	if err != nil {
		_ = runner.Stop()
		return nil, fmt.Errorf("launching chromium: %w", err)
	}

	slog.Debug("browser launched", "backend", Name, "headless", opts.Headless)
	return &Browser{pw: runner, browser: browser, opts: opts}, nil
}

// NewPage opens a fresh browser context so entries share no state.
func (b *Browser) NewPage(ctx context.Context) (render.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	contextOpts := pw.BrowserNewContextOptions{}
	if b.opts.UserAgent != "" {
		contextOpts.UserAgent = pw.String(b.opts.UserAgent)
	}
	bctx, err := b.browser.NewContext(contextOpts)
	if err != nil {
		return nil, fmt.Errorf("creating browser context: %w", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("creating page: %w", err)
	}
	page.SetDefaultTimeout(float64(b.opts.Timeout.Milliseconds()))

	return &Page{ctx: bctx, page: page, wait: b.opts.WaitPolicy, timeout: b.opts.Timeout}, nil
}

// Close shuts down Chromium and the driver.
func (b *Browser) Close() error {
	if err := b.browser.Close(); err != nil {
		return fmt.Errorf("closing browser: %w", err)
	}
	if err := b.pw.Stop(); err != nil {
		return fmt.Errorf("stopping playwright: %w", err)
	}
	return nil
}

// Page wraps a playwright page and its owning context.
type Page struct {
	ctx     pw.BrowserContext
	page    pw.Page
	wait    render.WaitPolicy
	timeout time.Duration
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.Goto(url, pw.PageGotoOptions{
		WaitUntil: waitUntil(p.wait),
		Timeout:   pw.Float(float64(p.timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

func (p *Page) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.WaitForSelector(selector, pw.PageWaitForSelectorOptions{
		Timeout: pw.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("waiting for %q: %w", selector, err)
	}
	return nil
}

func (p *Page) WaitForLoadState(ctx context.Context, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := p.page.WaitForLoadState(pw.PageWaitForLoadStateOptions{
		State:   loadState(p.wait),
		Timeout: pw.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("waiting for load state: %w", err)
	}
	return nil
}

func (p *Page) InnerText(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	el, err := p.page.QuerySelector(selector)
	if err != nil {
		return "", fmt.Errorf("querying %q: %w", selector, err)
	}
	if el == nil {
		return "", fmt.Errorf("%q: %w", selector, render.ErrNotFound)
	}
	text, err := el.InnerText()
	if err != nil {
		return "", fmt.Errorf("reading text of %q: %w", selector, err)
	}
	return text, nil
}

func (p *Page) QueryAll(ctx context.Context, selector string) ([]render.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	handles, err := p.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, fmt.Errorf("querying %q: %w", selector, err)
	}
	out := make([]render.Element, len(handles))
	for i, h := range handles {
		out[i] = element{h}
	}
	return out, nil
}

func (p *Page) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.page.Click(selector); err != nil {
		return fmt.Errorf("clicking %q: %w", selector, err)
	}
	return nil
}

// Close releases the page and its browser context.
func (p *Page) Close() error {
	if err := p.page.Close(); err != nil {
		_ = p.ctx.Close()
		return fmt.Errorf("closing page: %w", err)
	}
	if err := p.ctx.Close(); err != nil {
		return fmt.Errorf("closing browser context: %w", err)
	}
	return nil
}

type element struct {
	h pw.ElementHandle
}

func (e element) Text() (string, error) { return e.h.InnerText() }

func (e element) Attr(name string) (string, error) { return e.h.GetAttribute(name) }

func waitUntil(w render.WaitPolicy) *pw.WaitUntilState {
	switch w {
	case render.WaitLoad:
		return pw.WaitUntilStateLoad
	case render.WaitDOMContentLoaded:
		return pw.WaitUntilStateDomcontentloaded
	default:
		return pw.WaitUntilStateNetworkidle
	}
}

func loadState(w render.WaitPolicy) *pw.LoadState {
	switch w {
	case render.WaitLoad:
		return pw.LoadStateLoad
	case render.WaitDOMContentLoaded:
		return pw.LoadStateDomcontentloaded
	default:
		return pw.LoadStateNetworkidle
	}
}
