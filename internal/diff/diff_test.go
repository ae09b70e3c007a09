package diff

import (
	"strings"
	"testing"

	"github.com/everstacklabs/librarian/internal/catalog"
)

func record(id, desc, pulls string, sizes ...string) catalog.Record {
	var versions []catalog.VersionEntry
	for _, s := range sizes {
		versions = append(versions, catalog.VersionEntry{Size: s, DiskSize: catalog.UnknownDiskSize})
	}
	return catalog.NewRecord(id, id, catalog.Fields{
		Description: desc,
		Popularity:  pulls,
		Recency:     "1 week ago",
		Versions:    versions,
	})
}

func snap(records ...catalog.Record) *catalog.Snapshot {
	return &catalog.Snapshot{Records: records}
}

func TestNewEntryDetected(t *testing.T) {
	cs := Compute("ollama-models", snap(), snap(record("llama3", "Meta Llama 3", "6.1M", "8b")), Options{})

	if len(cs.New) != 1 {
		t.Fatalf("expected 1 new entry, got %d", len(cs.New))
	}
	if cs.New[0].ID != "llama3" {
		t.Errorf("expected new entry llama3, got %s", cs.New[0].ID)
	}
	if cs.Unchanged != 0 {
		t.Errorf("expected 0 unchanged, got %d", cs.Unchanged)
	}
}

func TestNilPreviousMakesEverythingNew(t *testing.T) {
	cs := Compute("ollama-models", nil, snap(record("a", "", "0"), record("b", "", "0")), Options{})
	if len(cs.New) != 2 || len(cs.Removed) != 0 {
		t.Errorf("new=%d removed=%d, want 2 and 0", len(cs.New), len(cs.Removed))
	}
}

func TestUpdatedEntryDetected(t *testing.T) {
	prev := snap(record("llama3", "Meta Llama 3", "6.0M", "8b"))
	cur := snap(record("llama3", "Meta Llama 3", "6.1M", "8b", "70b"))

	cs := Compute("ollama-models", prev, cur, Options{})
	if len(cs.Updated) != 1 {
		t.Fatalf("expected 1 updated entry, got %d", len(cs.Updated))
	}

	fields := map[string]bool{}
	for _, c := range cs.Updated[0].Changes {
		fields[c.Field] = true
	}
	for _, want := range []string{"parameterVersions", "downloads"} {
		if !fields[want] {
			t.Errorf("expected a %s change, got %v", want, cs.Updated[0].Changes)
		}
	}
	if fields["defaultSize"] {
		t.Error("default size did not change")
	}
}

func TestVolatileFieldsIgnored(t *testing.T) {
	prev := snap(record("llama3", "Meta Llama 3", "6.0M", "8b"))
	cur := snap(record("llama3", "Meta Llama 3", "6.1M", "8b"))

	cs := Compute("ollama-models", prev, cur, Options{IgnoreVolatile: true})
	if len(cs.Updated) != 0 || cs.Unchanged != 1 {
		t.Errorf("updated=%d unchanged=%d, want 0 and 1", len(cs.Updated), cs.Unchanged)
	}
	if cs.HasChanges() {
		t.Error("HasChanges() should be false")
	}
}

func TestRemovedEntry(t *testing.T) {
	cs := Compute("ollama-models", snap(record("old", "Old model", "1K", "7b")), snap(), Options{})
	if len(cs.Removed) != 1 || cs.Removed[0].ID != "old" {
		t.Fatalf("removed = %+v", cs.Removed)
	}
}

func TestRenameDetection(t *testing.T) {
	prev := snap(record("llama-3", "Meta Llama 3", "6.0M", "8b", "70b"))
	cur := snap(record("llama3", "Meta Llama 3", "6.1M", "8b", "70b"))

	cs := Compute("ollama-models", prev, cur, Options{})
	if len(cs.PossibleRenames) != 1 {
		t.Fatalf("expected 1 rename, got %d", len(cs.PossibleRenames))
	}
	if rp := cs.PossibleRenames[0]; rp.OldID != "llama-3" || rp.NewID != "llama3" {
		t.Errorf("expected rename llama-3 → llama3, got %s → %s", rp.OldID, rp.NewID)
	}
	if len(cs.Removed) != 0 {
		t.Errorf("renamed entry should not be reported removed, got %d", len(cs.Removed))
	}
}

func TestRenameMissDifferentVersions(t *testing.T) {
	prev := snap(record("llama-3", "Meta Llama 3", "6.0M", "8b"))
	cur := snap(record("llama3", "Meta Llama 3", "6.1M", "8b", "70b"))

	cs := Compute("ollama-models", prev, cur, Options{})
	if len(cs.PossibleRenames) != 0 {
		t.Errorf("expected no rename, got %+v", cs.PossibleRenames)
	}
	if len(cs.Removed) != 1 {
		t.Errorf("expected 1 removed, got %d", len(cs.Removed))
	}
}

func TestTotalChangedAndHasChanges(t *testing.T) {
	cs := &ChangeSet{
		New:     []RecordChange{{ID: "a"}, {ID: "b"}},
		Updated: []RecordUpdate{{ID: "c"}},
	}
	if cs.TotalChanged() != 3 {
		t.Errorf("TotalChanged() = %d, want 3", cs.TotalChanged())
	}
	if !cs.HasChanges() {
		t.Error("HasChanges() should be true")
	}
}

func TestRenderPRBody(t *testing.T) {
	prev := snap(record("llama3", "Meta Llama 3", "6.0M", "8b"), record("gone", "", "0"))
	cur := snap(record("llama3", "Meta | Llama 3", "6.0M", "8b"), record("phi3", "", "0", "3.8b"))

	body := RenderPRBody(Compute("ollama-models", prev, cur, Options{}))

	for _, want := range []string{
		"## ollama-models snapshot update",
		"| 1 | 1 | 1 | 0 |",
		"- `phi3` [3.8b]",
		"| `llama3` | description | Meta Llama 3 | Meta \\| Llama 3 |",
		"- `gone`",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("PR body missing %q:\n%s", want, body)
		}
	}
}

func TestRenderSummary(t *testing.T) {
	cs := Compute("ollama-models", snap(), snap(record("gemma", "", "0")), Options{})
	got := RenderSummary(cs)
	if !strings.HasPrefix(got, "ollama-models: 1 new, 0 updated, 0 removed, 0 unchanged") {
		t.Errorf("summary header = %q", got)
	}
	if !strings.Contains(got, "+ gemma (no versions)") {
		t.Errorf("summary missing new entry:\n%s", got)
	}
}
