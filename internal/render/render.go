// Package render defines the page-rendering capability the crawler consumes.
// Backends (a real browser, a static HTML fetcher) register themselves by name.
package render

import (
	"context"
	"errors"
	"time"

	"github.com/everstacklabs/librarian/internal/httpclient"
)

// WaitPolicy is the navigation milestone Navigate waits for.
type WaitPolicy string

const (
	WaitLoad             WaitPolicy = "load"
	WaitDOMContentLoaded WaitPolicy = "domcontentloaded"
	WaitNetworkIdle      WaitPolicy = "networkidle"
)

// ErrNotFound is returned when a selector matches nothing.
var ErrNotFound = errors.New("no element matches selector")

// Options configure a backend.
type Options struct {
	Headless   bool
	Timeout    time.Duration
	WaitPolicy WaitPolicy
	UserAgent  string
	// HTTP is used by backends that fetch documents directly.
	HTTP *httpclient.Client
}

// Browser hands out isolated pages.
type Browser interface {
	// NewPage opens an isolated navigation context. The caller must Close it.
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is a single rendered document.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error
	WaitForLoadState(ctx context.Context, timeout time.Duration) error
	// InnerText returns the rendered text of the first element matching selector.
	InnerText(ctx context.Context, selector string) (string, error)
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	Click(ctx context.Context, selector string) error
	Close() error
}

// Element is a handle to one DOM element.
type Element interface {
	Text() (string, error)
	Attr(name string) (string, error)
}
