package diff

import "github.com/everstacklabs/librarian/internal/catalog"

// FieldChange records a single field change for diff reporting.
type FieldChange struct {
	Field    string
	OldValue any
	NewValue any
}

// ChangeSet is the difference between the previous and the current snapshot.
type ChangeSet struct {
	Catalog         string
	New             []RecordChange
	Updated         []RecordUpdate
	Removed         []RecordChange
	PossibleRenames []RenamePair
	Unchanged       int
}

// RecordChange is an entry that appeared or disappeared.
type RecordChange struct {
	ID     string
	Record catalog.Record
}

// RecordUpdate is an entry present in both snapshots with field changes.
type RecordUpdate struct {
	ID      string
	Record  catalog.Record
	Changes []FieldChange
}

// RenamePair is a removed entry that looks like a new one under another id.
type RenamePair struct {
	OldID  string
	NewID  string
	Reason string
}

// HasChanges reports whether the changeset has any modifications.
func (cs *ChangeSet) HasChanges() bool {
	return len(cs.New) > 0 || len(cs.Updated) > 0 || len(cs.Removed) > 0 || len(cs.PossibleRenames) > 0
}

// TotalChanged returns the count of new + updated entries.
func (cs *ChangeSet) TotalChanged() int {
	return len(cs.New) + len(cs.Updated)
}
