package catalog

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestNewRecordDerivesTagsAndDefault(t *testing.T) {
	versions := []VersionEntry{
		{Size: "7b", DiskSize: "4.1GB"},
		{Size: "13b", DiskSize: "7.3GB"},
		{Size: "8x7b", DiskSize: UnknownDiskSize},
	}

	r := NewRecord("llama2", "llama2", Fields{
		Description: "Llama 2 is a collection of foundation language models.",
		Popularity:  "1.2K",
		Recency:     "3 weeks ago",
		Versions:    versions,
	})

	if diff := cmp.Diff([]string{"7b", "13b", "8x7b"}, r.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
	if r.DefaultVersion == nil {
		t.Fatal("expected default version")
	}
	if *r.DefaultVersion != versions[0] {
		t.Errorf("default version = %+v, want %+v", *r.DefaultVersion, versions[0])
	}
	if r.InvocationHint != "ollama run llama2" {
		t.Errorf("invocation hint = %q, want %q", r.InvocationHint, "ollama run llama2")
	}
	if r.Incomplete() {
		t.Error("record with description and versions should not be incomplete")
	}
}

func TestNewRecordCopiesVersions(t *testing.T) {
	versions := []VersionEntry{{Size: "7b", DiskSize: "4.1GB"}}
	r := NewRecord("mistral", "mistral", Fields{Versions: versions})

	versions[0].Size = "70b"
	if r.Versions[0].Size != "7b" {
		t.Errorf("record versions changed with caller slice: %q", r.Versions[0].Size)
	}
	if r.DefaultVersion.Size != "7b" {
		t.Errorf("default version changed with caller slice: %q", r.DefaultVersion.Size)
	}
}

func TestNewRecordWithoutVersions(t *testing.T) {
	r := NewRecord("nomic-embed-text", "nomic-embed-text", Fields{Popularity: "0", Recency: "unknown"})

	if r.DefaultVersion != nil {
		t.Errorf("expected nil default version, got %+v", *r.DefaultVersion)
	}
	if r.Tags == nil || len(r.Tags) != 0 {
		t.Errorf("expected empty non-nil tags, got %#v", r.Tags)
	}
	if !r.Incomplete() {
		t.Error("record without description or versions should be incomplete")
	}
	if diff := cmp.Diff([]string{"description", "parameterVersions"}, r.MissingFields()); diff != "" {
		t.Errorf("missing fields mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordJSONKeys(t *testing.T) {
	r := NewRecord("qwen2", "qwen2", Fields{
		Description: "Qwen2 is a new series of large language models.",
		Popularity:  "3.4M",
		Recency:     "2 months ago",
		Versions:    []VersionEntry{{Size: "0.5b", DiskSize: "352MB"}},
	})

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}

	want := []string{
		"name", "fullName", "description", "modelSize", "tags", "downloads",
		"lastUpdated", "runCommand", "parameterVersions", "defaultSize", "defaultDiskSize",
	}
	if len(raw) != len(want) {
		t.Errorf("got %d keys, want %d: %v", len(raw), len(want), raw)
	}
	for _, k := range want {
		if _, ok := raw[k]; !ok {
			t.Errorf("missing key %q", k)
		}
	}
	if raw["modelSize"] != "0.5b" || raw["defaultSize"] != "0.5b" || raw["defaultDiskSize"] != "352MB" {
		t.Errorf("default fields not flattened: %v", raw)
	}
	if !strings.Contains(string(data), `"parameterVersions":[{"size":"0.5b","diskSize":"352MB"}]`) {
		t.Errorf("unexpected parameterVersions encoding: %s", data)
	}
}

func TestEmptyRecordEncodesEmptyArrays(t *testing.T) {
	data, err := json.Marshal(Record{ID: "x"})
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	if !strings.Contains(s, `"tags":[]`) || !strings.Contains(s, `"parameterVersions":[]`) {
		t.Errorf("expected empty arrays, got %s", s)
	}
	if !strings.Contains(s, `"defaultSize":""`) || !strings.Contains(s, `"defaultDiskSize":""`) {
		t.Errorf("expected empty default fields, got %s", s)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	snap := Snapshot{
		GeneratedAt: time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC),
		Records: []Record{
			NewRecord("llama3", "llama3", Fields{
				Description: "Meta Llama 3: The most capable openly available LLM to date",
				Popularity:  "6.1M",
				Recency:     "5 months ago",
				Versions: []VersionEntry{
					{Size: "8b", DiskSize: "4.7GB"},
					{Size: "70b", DiskSize: "40GB"},
				},
			}),
			NewRecord("all-minilm", "all-minilm", Fields{Popularity: "0", Recency: "unknown"}),
		},
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got Snapshot
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !got.GeneratedAt.Equal(snap.GeneratedAt) {
		t.Errorf("generatedAt = %v, want %v", got.GeneratedAt, snap.GeneratedAt)
	}
	if diff := cmp.Diff(snap.Records, got.Records); diff != "" {
		t.Errorf("records mismatch after round trip (-want +got):\n%s", diff)
	}
}

func TestSnapshotFind(t *testing.T) {
	snap := Snapshot{Records: []Record{
		NewRecord("a", "a", Fields{}),
		NewRecord("b", "b", Fields{}),
	}}

	if _, ok := snap.Find("b"); !ok {
		t.Error("expected to find b")
	}
	if _, ok := snap.Find("c"); ok {
		t.Error("did not expect to find c")
	}
}
