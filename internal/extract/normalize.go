// Package extract turns the rendered text of a library detail page into the
// fields of a catalog record. Every field is produced by an ordered cascade of
// strategies; later strategies run only when earlier ones find nothing.
package extract

import (
	"context"
	"strings"
	"time"
)

// Elements is the DOM access the selector-based strategies need. It is backed
// by a rendered page in production and by fakes in tests.
type Elements interface {
	// Texts returns the text of every element matching selector, in DOM order.
	Texts(ctx context.Context, selector string) ([]string, error)
	// RequestExpansion activates a collapsed panel (a click).
	RequestExpansion(ctx context.Context, trigger string) error
	// AwaitStable blocks until region is rendered or timeout elapses.
	AwaitStable(ctx context.Context, region string, timeout time.Duration) error
}

// Input is everything the extractors see for one entry.
type Input struct {
	Name     string
	Text     string
	Lines    []string
	Elements Elements
}

// NewInput normalizes raw page text for the named entry. elems may be nil, in
// which case only the text strategies can produce results.
func NewInput(name, raw string, elems Elements) *Input {
	return &Input{
		Name:     name,
		Text:     raw,
		Lines:    Normalize(raw),
		Elements: elems,
	}
}

// Normalize splits rendered text into trimmed, non-empty lines.
func Normalize(raw string) []string {
	if raw == "" {
		return []string{}
	}
	parts := strings.Split(raw, "\n")
	lines := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			lines = append(lines, p)
		}
	}
	return lines
}
