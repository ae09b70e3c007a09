// Package diff compares two catalog snapshots entry by entry.
package diff

import (
	"slices"

	"github.com/everstacklabs/librarian/internal/catalog"
)

// Options controls diff behavior.
type Options struct {
	// IgnoreVolatile skips downloads and lastUpdated, which move on almost
	// every crawl.
	IgnoreVolatile bool
}

// Compute compares current against previous. A nil previous makes every
// current entry new.
func Compute(catalogName string, previous, current *catalog.Snapshot, opts Options) *ChangeSet {
	cs := &ChangeSet{Catalog: catalogName}

	old := make(map[string]catalog.Record)
	if previous != nil {
		for _, r := range previous.Records {
			old[r.ID] = r
		}
	}

	seen := make(map[string]bool)
	if current != nil {
		for _, r := range current.Records {
			seen[r.ID] = true
			prev, ok := old[r.ID]
			if !ok {
				cs.New = append(cs.New, RecordChange{ID: r.ID, Record: r})
				continue
			}
			if changes := fieldChanges(prev, r, opts); len(changes) > 0 {
				cs.Updated = append(cs.Updated, RecordUpdate{ID: r.ID, Record: r, Changes: changes})
			} else {
				cs.Unchanged++
			}
		}
	}

	var disappeared []RecordChange
	if previous != nil {
		for _, r := range previous.Records {
			if !seen[r.ID] {
				disappeared = append(disappeared, RecordChange{ID: r.ID, Record: r})
			}
		}
	}

	cs.PossibleRenames = detectRenames(cs.New, disappeared)
	renamed := make(map[string]bool, len(cs.PossibleRenames))
	for _, rp := range cs.PossibleRenames {
		renamed[rp.OldID] = true
	}
	for _, rc := range disappeared {
		if !renamed[rc.ID] {
			cs.Removed = append(cs.Removed, rc)
		}
	}

	return cs
}

func fieldChanges(prev, cur catalog.Record, opts Options) []FieldChange {
	var changes []FieldChange

	if prev.Description != cur.Description {
		changes = append(changes, FieldChange{Field: "description", OldValue: prev.Description, NewValue: cur.Description})
	}
	if !slices.Equal(prev.Versions, cur.Versions) {
		changes = append(changes, FieldChange{Field: "parameterVersions", OldValue: prev.Tags, NewValue: cur.Tags})
	}
	if defaultSize(prev) != defaultSize(cur) {
		changes = append(changes, FieldChange{Field: "defaultSize", OldValue: defaultSize(prev), NewValue: defaultSize(cur)})
	}

	if opts.IgnoreVolatile {
		return changes
	}
	if prev.Popularity != cur.Popularity {
		changes = append(changes, FieldChange{Field: "downloads", OldValue: prev.Popularity, NewValue: cur.Popularity})
	}
	if prev.Recency != cur.Recency {
		changes = append(changes, FieldChange{Field: "lastUpdated", OldValue: prev.Recency, NewValue: cur.Recency})
	}
	return changes
}

func defaultSize(r catalog.Record) string {
	if r.DefaultVersion == nil {
		return ""
	}
	return r.DefaultVersion.Size
}

// detectRenames pairs a new entry with a removed one when both carry the
// same non-empty description and the same version tags.
func detectRenames(added, disappeared []RecordChange) []RenamePair {
	var renames []RenamePair
	taken := make(map[string]bool)

	for _, n := range added {
		if n.Record.Description == "" {
			continue
		}
		for _, o := range disappeared {
			if taken[o.ID] {
				continue
			}
			if o.Record.Description != n.Record.Description {
				continue
			}
			if !slices.Equal(o.Record.Tags, n.Record.Tags) {
				continue
			}
			renames = append(renames, RenamePair{
				OldID:  o.ID,
				NewID:  n.ID,
				Reason: "same description and versions",
			})
			taken[o.ID] = true
			break
		}
	}
	return renames
}
