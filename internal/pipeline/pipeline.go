// Package pipeline wires the walker, the snapshot store, diffing and
// publishing into the commands the CLI exposes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/everstacklabs/librarian/internal/catalog"
	"github.com/everstacklabs/librarian/internal/config"
	"github.com/everstacklabs/librarian/internal/diff"
	"github.com/everstacklabs/librarian/internal/extract"
	"github.com/everstacklabs/librarian/internal/render"
	"github.com/everstacklabs/librarian/internal/snapshot"
	"github.com/everstacklabs/librarian/internal/validate"
	"github.com/everstacklabs/librarian/internal/walker"
)

// ExitCode constants for CLI.
const (
	ExitSuccess    = 0
	ExitFailure    = 1 // Run failed: empty result, persistence, config
	ExitChanges    = 2 // Changes detected (diff mode)
	ExitValidation = 3 // Snapshot failed validation
)

// ErrUnknownEntry is returned by Show for an id absent from the latest snapshot.
var ErrUnknownEntry = errors.New("entry not in latest snapshot")

// Pipeline orchestrates a crawl from listing to published snapshot.
type Pipeline struct {
	cfg       *config.Config
	browser   render.Browser
	store     *snapshot.Store
	pacer     walker.Pacer
	publisher Publisher
	now       func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStore replaces the store built from the config.
func WithStore(s *snapshot.Store) Option {
	return func(p *Pipeline) { p.store = s }
}

// WithPacer replaces the fixed entry delay from the config.
func WithPacer(pc walker.Pacer) Option {
	return func(p *Pipeline) { p.pacer = pc }
}

// WithPublisher sets where snapshot updates are published.
func WithPublisher(pub Publisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

// New creates a Pipeline. The browser may be nil for commands that only
// read snapshots.
func New(cfg *config.Config, b render.Browser, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:     cfg,
		browser: b,
		store:   snapshot.New(cfg.ContentRoot, cfg.CatalogName),
		pacer:   walker.FixedDelay(cfg.EntryDelay),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Store exposes the snapshot store.
func (p *Pipeline) Store() *snapshot.Store { return p.store }

// CrawlResult holds the outcome of a crawl.
type CrawlResult struct {
	Walk       *walker.Result
	Persisted  *snapshot.Result
	ChangeSet  *diff.ChangeSet
	Validation *validate.Result
	Incomplete []string
	PRNumber   int
}

// Crawl walks the catalog, persists the snapshot, diffs it against the
// previous latest snapshot and publishes it when configured.
func (p *Pipeline) Crawl(ctx context.Context) (*CrawlResult, error) {
	if p.browser == nil {
		return nil, errors.New("crawl needs a renderer")
	}

	previous, err := p.store.LoadLatest()
	switch {
	case errors.Is(err, snapshot.ErrNoSnapshot):
		slog.Info("no previous snapshot, every entry will be new")
	case err != nil:
		slog.Warn("previous snapshot unreadable, diffing against nothing", "error", err)
		previous = nil
	}

	w := walker.New(p.browser, p.walkerOptions())
	walked, err := w.Run(ctx)
	if err != nil {
		return &CrawlResult{Walk: walked}, fmt.Errorf("walking catalog: %w", err)
	}
	result := &CrawlResult{Walk: walked}

	for _, rec := range walked.Records {
		if rec.Incomplete() {
			slog.Warn("incomplete record", "id", rec.ID, "missing", rec.MissingFields())
			result.Incomplete = append(result.Incomplete, rec.ID)
		}
	}

	persisted, err := p.store.Persist(walked.Records)
	if err != nil {
		return result, err
	}
	result.Persisted = persisted
	slog.Info("snapshot persisted",
		"records", len(walked.Records),
		"failed", len(walked.Failures),
		"dated", persisted.DatedPath,
		"latest", persisted.LatestPath)

	if err := p.store.WriteManifest(); err != nil {
		slog.Warn("manifest not updated", "error", err)
	}

	result.Validation = validate.ValidateSnapshot(persisted.Snapshot)
	if result.Validation.HasErrors() {
		slog.Warn("snapshot has validation errors", "errors", len(result.Validation.Errors()))
	}

	result.ChangeSet = diff.Compute(p.cfg.CatalogName, previous, persisted.Snapshot, diff.Options{})
	slog.Info("diff complete",
		"new", len(result.ChangeSet.New),
		"updated", len(result.ChangeSet.Updated),
		"removed", len(result.ChangeSet.Removed))

	if !p.cfg.Publish.Enabled {
		return result, nil
	}
	if !result.ChangeSet.HasChanges() {
		slog.Info("no changes detected, nothing to publish")
		return result, nil
	}
	if p.publisher == nil {
		slog.Warn("publishing enabled but no publisher configured (is GITHUB_TOKEN set?)")
		return result, nil
	}

	prNum, err := p.publisher.Publish(ctx, p.publishRequest(persisted, result.ChangeSet))
	if err != nil {
		return result, fmt.Errorf("publishing snapshot: %w", err)
	}
	result.PRNumber = prNum
	return result, nil
}

// Extract renders a single entry and returns its record without persisting.
func (p *Pipeline) Extract(ctx context.Context, id string) (catalog.Record, error) {
	if p.browser == nil {
		return catalog.Record{}, errors.New("extract needs a renderer")
	}
	return walker.New(p.browser, p.walkerOptions()).Visit(ctx, id)
}

// Validate checks the latest persisted snapshot.
func (p *Pipeline) Validate() (*validate.Result, error) {
	snap, err := p.store.LoadLatest()
	if err != nil {
		return nil, fmt.Errorf("loading latest snapshot: %w", err)
	}
	return validate.ValidateSnapshot(snap), nil
}

// Show returns one record from the latest snapshot.
func (p *Pipeline) Show(id string) (catalog.Record, error) {
	snap, err := p.store.LoadLatest()
	if err != nil {
		return catalog.Record{}, fmt.Errorf("loading latest snapshot: %w", err)
	}
	rec, ok := snap.Find(id)
	if !ok {
		return catalog.Record{}, fmt.Errorf("%s: %w", id, ErrUnknownEntry)
	}
	return rec, nil
}

// Diff compares two dated snapshots. Empty dates select the two newest.
func (p *Pipeline) Diff(from, to string, opts diff.Options) (*diff.ChangeSet, error) {
	history, err := p.store.History()
	if err != nil {
		return nil, err
	}

	if to == "" {
		if len(history) == 0 {
			return nil, snapshot.ErrNoSnapshot
		}
		to = history[0].Date.Format(snapshot.DateLayout)
	}
	if from == "" {
		for _, e := range history {
			if d := e.Date.Format(snapshot.DateLayout); d < to {
				from = d
				break
			}
		}
	}

	current, err := p.store.Load(p.store.DatedPath(to))
	if err != nil {
		return nil, err
	}
	var previous *catalog.Snapshot
	if from != "" {
		previous, err = p.store.Load(p.store.DatedPath(from))
		if err != nil {
			return nil, err
		}
	}
	return diff.Compute(p.cfg.CatalogName, previous, current, opts), nil
}

func (p *Pipeline) walkerOptions() walker.Options {
	sel := p.cfg.Selectors
	return walker.Options{
		BaseURL:      p.cfg.BaseURL,
		ListingPath:  p.cfg.ListingPath,
		ListingQuery: p.cfg.ListingQuery,
		LinkPrefix:   p.cfg.LinkPrefix,
		ListingLinks: sel.ListingLinks,
		Container:    sel.Container,
		WaitTimeout:  p.cfg.WaitTimeout,
		Limit:        p.cfg.Limit,
		Pacer:        p.pacer,
		Selectors: extract.Selectors{
			Versions:       sel.Versions,
			ExpandTrigger:  sel.ExpandTrigger,
			ExpandedRegion: sel.ExpandedRegion,
			ExpandedLinks:  sel.ExpandedLinks,
			ExpandTimeout:  sel.ExpandTimeout,
		},
	}
}

func (p *Pipeline) publishRequest(res *snapshot.Result, cs *diff.ChangeSet) PublishRequest {
	return PublishRequest{
		Branch: fmt.Sprintf("librarian/%s-%s", p.cfg.CatalogName, p.now().UTC().Format("20060102-150405")),
		Title:  fmt.Sprintf("chore(data): update %s snapshot %s", p.cfg.CatalogName, res.Date),
		Body:   diff.RenderPRBody(cs),
		Files:  []string{res.DatedPath, res.LatestPath, filepath.Join(p.store.Root(), snapshot.ManifestFile)},
		Draft:  p.cfg.Publish.Draft || assessDraft(cs),
	}
}

// assessDraft marks large or destructive updates for a closer look.
func assessDraft(cs *diff.ChangeSet) bool {
	if cs.TotalChanged() > 25 {
		return true
	}
	if len(cs.Removed) > 3 {
		return true
	}
	return false
}
