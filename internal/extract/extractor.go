package extract

import (
	"context"

	"github.com/everstacklabs/librarian/internal/catalog"
)

// Trace names the strategy that produced each field. Empty means the field
// fell back to its default.
type Trace struct {
	Description string
	Popularity  string
	Recency     string
	Versions    string
}

// Extractor runs all field cascades for one entry.
type Extractor struct {
	description Cascade[string]
	popularity  Cascade[string]
	recency     Cascade[string]
	versions    Cascade[[]catalog.VersionEntry]
}

// New creates an Extractor using the given DOM selectors for version tiers.
func New(sel Selectors) *Extractor {
	return &Extractor{
		description: DescriptionCascade,
		popularity:  PopularityCascade,
		recency:     RecencyCascade,
		versions:    VersionCascade(sel),
	}
}

// Extract produces the record fields for in.
func (e *Extractor) Extract(ctx context.Context, in *Input) (catalog.Fields, Trace) {
	var (
		f  catalog.Fields
		tr Trace
	)
	f.Description, tr.Description = e.description.Resolve(ctx, in, "")
	f.Popularity, tr.Popularity = e.popularity.Resolve(ctx, in, DefaultPopularity)
	f.Recency, tr.Recency = e.recency.Resolve(ctx, in, DefaultRecency)
	f.Versions, tr.Versions = e.versions.Resolve(ctx, in, nil)
	return f, tr
}
