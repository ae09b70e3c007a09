// Package walker enumerates the entries of a catalog listing and visits each
// entry's detail page in turn, producing one record per entry.
package walker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/everstacklabs/librarian/internal/catalog"
	"github.com/everstacklabs/librarian/internal/extract"
	"github.com/everstacklabs/librarian/internal/render"
)

// Options configure a Walker.
type Options struct {
	BaseURL      string
	ListingPath  string
	ListingQuery string
	// LinkPrefix is the href prefix that marks an entry link, e.g. "/library/".
	LinkPrefix   string
	ListingLinks string
	// Container scopes the text read from a detail page; body is the fallback.
	Container   string
	WaitTimeout time.Duration
	// Limit caps the number of entries walked. Zero walks everything.
	Limit     int
	Pacer     Pacer
	Selectors extract.Selectors
}

// Result is the outcome of a walk.
type Result struct {
	IDs      []string
	Records  []catalog.Record
	Failures []*EntryError
	States   map[string]State
}

// Walker drives a Browser over one catalog.
type Walker struct {
	browser   render.Browser
	extractor *extract.Extractor
	opts      Options
}

// New creates a Walker. Zero-valued options get the library defaults.
func New(b render.Browser, opts Options) *Walker {
	if opts.LinkPrefix == "" {
		opts.LinkPrefix = "/library/"
	}
	if opts.ListingLinks == "" {
		opts.ListingLinks = fmt.Sprintf("a[href^=%q]", opts.LinkPrefix)
	}
	if opts.Container == "" {
		opts.Container = "main"
	}
	if opts.WaitTimeout == 0 {
		opts.WaitTimeout = 30 * time.Second
	}
	if opts.Pacer == nil {
		opts.Pacer = NoDelay()
	}
	if opts.Selectors == (extract.Selectors{}) {
		opts.Selectors = extract.DefaultSelectors()
	}
	return &Walker{browser: b, extractor: extract.New(opts.Selectors), opts: opts}
}

// ListingURL is the page Enumerate reads entry links from.
func (w *Walker) ListingURL() string {
	u := strings.TrimRight(w.opts.BaseURL, "/") + w.opts.ListingPath
	if w.opts.ListingQuery != "" {
		u += "?" + strings.TrimPrefix(w.opts.ListingQuery, "?")
	}
	return u
}

// EntryURL is the detail page of id.
func (w *Walker) EntryURL(id string) string {
	return strings.TrimRight(w.opts.BaseURL, "/") + w.opts.LinkPrefix + id
}

// Run enumerates the listing and walks every entry found.
func (w *Walker) Run(ctx context.Context) (*Result, error) {
	ids, err := w.Enumerate(ctx)
	if err != nil {
		return nil, err
	}
	return w.Walk(ctx, ids)
}

// Enumerate returns the entry ids linked from the listing page, deduplicated
// in first-seen order.
func (w *Walker) Enumerate(ctx context.Context) ([]string, error) {
	page, err := w.browser.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening listing page: %w", err)
	}
	defer closePage(page, "listing")

	listing := w.ListingURL()
	slog.Info("enumerating catalog", "url", listing)
	if err := page.Navigate(ctx, listing); err != nil {
		return nil, fmt.Errorf("loading listing: %w", err)
	}
	if err := page.WaitForSelector(ctx, w.opts.ListingLinks, w.opts.WaitTimeout); err != nil {
		return nil, fmt.Errorf("waiting for listing links: %w", err)
	}

	links, err := page.QueryAll(ctx, w.opts.ListingLinks)
	if err != nil {
		return nil, fmt.Errorf("querying listing links: %w", err)
	}

	seen := make(map[string]bool, len(links))
	var ids []string
	for _, link := range links {
		href, err := link.Attr("href")
		if err != nil {
			slog.Debug("skipping unreadable link", "error", err)
			continue
		}
		id, ok := EntryID(href, w.opts.LinkPrefix)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
		if w.opts.Limit > 0 && len(ids) == w.opts.Limit {
			break
		}
	}

	slog.Info("catalog enumerated", "entries", len(ids))
	return ids, nil
}

// EntryID derives an entry id from a listing href: the prefix is stripped, as
// are any query, fragment, trailing path and ":tag" suffix.
func EntryID(href, prefix string) (string, bool) {
	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if !strings.HasPrefix(u.Path, prefix) {
		return "", false
	}
	id := strings.TrimPrefix(u.Path, prefix)
	id, _, _ = strings.Cut(id, "/")
	id, _, _ = strings.Cut(id, ":")
	return id, id != ""
}

// Walk visits ids in order, pausing between entries. A failed entry is logged
// and skipped. Only context cancellation stops the walk early.
func (w *Walker) Walk(ctx context.Context, ids []string) (*Result, error) {
	res := &Result{IDs: ids, States: make(map[string]State, len(ids))}
	for _, id := range ids {
		res.States[id] = Pending
	}

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		rec, err := w.Visit(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			var ee *EntryError
			if !errors.As(err, &ee) {
				ee = &EntryError{ID: id, State: Failed, Err: err}
			}
			slog.Error("entry failed", "id", id, "state", ee.State, "error", ee.Err)
			res.States[id] = Failed
			res.Failures = append(res.Failures, ee)
		} else {
			slog.Info("entry recorded", "id", id, "index", i+1, "total", len(ids), "versions", len(rec.Versions))
			res.States[id] = Recorded
			res.Records = append(res.Records, rec)
		}

		if i < len(ids)-1 {
			if err := w.opts.Pacer.Pause(ctx); err != nil {
				return res, err
			}
		}
	}

	if len(res.Records) == 0 {
		return res, ErrEmptyResult
	}
	return res, nil
}

// Visit renders one entry in a fresh page and assembles its record.
func (w *Walker) Visit(ctx context.Context, id string) (catalog.Record, error) {
	page, err := w.browser.NewPage(ctx)
	if err != nil {
		return catalog.Record{}, &EntryError{ID: id, State: Navigating, Err: err}
	}
	defer closePage(page, id)

	if err := page.Navigate(ctx, w.EntryURL(id)); err != nil {
		return catalog.Record{}, &EntryError{ID: id, State: Navigating, Err: err}
	}
	if err := page.WaitForLoadState(ctx, w.opts.WaitTimeout); err != nil {
		if ctx.Err() != nil {
			return catalog.Record{}, &EntryError{ID: id, State: Navigating, Err: ctx.Err()}
		}
		slog.Debug("page did not settle, extracting anyway", "id", id, "error", err)
	}

	raw, err := w.pageText(ctx, page)
	if err != nil {
		return catalog.Record{}, &EntryError{ID: id, State: Extracting, Err: err}
	}

	in := extract.NewInput(id, raw, pageElements{page: page})
	fields, trace := w.extractor.Extract(ctx, in)
	if err := ctx.Err(); err != nil {
		return catalog.Record{}, &EntryError{ID: id, State: Extracting, Err: err}
	}
	slog.Debug("fields extracted", "id", id,
		"description", trace.Description, "popularity", trace.Popularity,
		"recency", trace.Recency, "versions", trace.Versions)

	return catalog.NewRecord(id, id, fields), nil
}

// pageText reads the container's rendered text, falling back to body.
func (w *Walker) pageText(ctx context.Context, page render.Page) (string, error) {
	text, err := page.InnerText(ctx, w.opts.Container)
	if err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	text, err = page.InnerText(ctx, "body")
	if err != nil {
		return "", fmt.Errorf("reading page text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("page has no text")
	}
	return text, nil
}

func closePage(page render.Page, id string) {
	if err := page.Close(); err != nil {
		slog.Warn("closing page failed", "id", id, "error", err)
	}
}
