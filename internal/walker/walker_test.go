package walker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/everstacklabs/librarian/internal/catalog"
	"github.com/everstacklabs/librarian/internal/render/rendertest"
)

const base = "https://ollama.test"

type countingPacer struct{ n int }

func (p *countingPacer) Pause(ctx context.Context) error {
	p.n++
	return ctx.Err()
}

func entryDoc(text string) *rendertest.Doc {
	return &rendertest.Doc{Texts: map[string]string{"main": text}}
}

func listingDoc(hrefs ...string) *rendertest.Doc {
	elems := make([]rendertest.Elem, len(hrefs))
	for i, h := range hrefs {
		elems[i] = rendertest.Elem{Label: h, Href: h}
	}
	return &rendertest.Doc{Elements: map[string][]rendertest.Elem{`a[href^="/library/"]`: elems}}
}

func newWalker(b *rendertest.Browser, p Pacer) *Walker {
	return New(b, Options{BaseURL: base, ListingPath: "/library", Pacer: p})
}

func TestEntryID(t *testing.T) {
	tests := []struct {
		href   string
		want   string
		wantOK bool
	}{
		{"/library/llama3", "llama3", true},
		{"/library/llama3:70b", "llama3", true},
		{"/library/llama3?tab=tags", "llama3", true},
		{"/library/llama3#readme", "llama3", true},
		{"/library/llama3/blobs/abc", "llama3", true},
		{"https://ollama.com/library/qwen2.5", "qwen2.5", true},
		{"/library/", "", false},
		{"/blog/post", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			got, ok := EntryID(tt.href, "/library/")
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("EntryID(%q) = %q, %v; want %q, %v", tt.href, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestEnumerateDedupesInOrder(t *testing.T) {
	b := rendertest.NewBrowser(map[string]*rendertest.Doc{
		base + "/library?sort=popular": listingDoc(
			"/library/llama3", "/library/mistral", "/library/llama3:70b", "/library/gemma", "/library/mistral",
		),
	})
	w := New(b, Options{BaseURL: base, ListingPath: "/library", ListingQuery: "sort=popular"})

	ids, err := w.Enumerate(context.Background())
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if diff := cmp.Diff([]string{"llama3", "mistral", "gemma"}, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	pages := b.Pages()
	if len(pages) != 1 || !pages[0].Closed {
		t.Errorf("listing page not closed: %+v", pages)
	}
}

func TestEnumerateLimit(t *testing.T) {
	b := rendertest.NewBrowser(map[string]*rendertest.Doc{
		base + "/library": listingDoc("/library/a", "/library/b", "/library/c"),
	})
	w := New(b, Options{BaseURL: base, ListingPath: "/library", Limit: 2})

	ids, err := w.Enumerate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Errorf("got %v, want 2 ids", ids)
	}
}

func TestEnumerateWithoutLinksFails(t *testing.T) {
	b := rendertest.NewBrowser(map[string]*rendertest.Doc{base + "/library": {}})
	if _, err := newWalker(b, nil).Enumerate(context.Background()); err == nil {
		t.Fatal("expected an error when the listing has no entry links")
	}
}

func TestWalkSkipsFailedEntry(t *testing.T) {
	b := rendertest.NewBrowser(map[string]*rendertest.Doc{
		base + "/library/llama3": entryDoc("llama3\nMeta Llama 3: the most capable openly available LLM to date\n6.1M Pulls\nUpdated 2 weeks ago\n8b (4.7GB)\n70b (40GB)"),
		base + "/library/broken": {NavigateErr: errors.New("net::ERR_CONNECTION_RESET")},
		base + "/library/gemma":  entryDoc("gemma\nGemma is a family of lightweight, state-of-the-art open models built by Google DeepMind\n2B (1.7GB)"),
	})
	pacer := &countingPacer{}
	w := newWalker(b, pacer)

	res, err := w.Walk(context.Background(), []string{"llama3", "broken", "gemma"})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	if len(res.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(res.Records))
	}
	if res.Records[0].ID != "llama3" || res.Records[1].ID != "gemma" {
		t.Errorf("records out of order: %s, %s", res.Records[0].ID, res.Records[1].ID)
	}

	llama := res.Records[0]
	want := catalog.NewRecord("llama3", "llama3", catalog.Fields{
		Description: "Meta Llama 3: the most capable openly available LLM to date",
		Popularity:  "6.1M",
		Recency:     "2 weeks ago",
		Versions:    []catalog.VersionEntry{{Size: "8b", DiskSize: "4.7GB"}, {Size: "70b", DiskSize: "40GB"}},
	})
	if diff := cmp.Diff(want, llama); diff != "" {
		t.Errorf("llama3 record mismatch (-want +got):\n%s", diff)
	}
	if got := res.Records[1].Tags; len(got) != 1 || got[0] != "2b" {
		t.Errorf("gemma tags = %v, want [2b]", got)
	}

	if len(res.Failures) != 1 || res.Failures[0].ID != "broken" || res.Failures[0].State != Navigating {
		t.Errorf("failures = %+v", res.Failures)
	}
	wantStates := map[string]State{"llama3": Recorded, "broken": Failed, "gemma": Recorded}
	if diff := cmp.Diff(wantStates, res.States); diff != "" {
		t.Errorf("states mismatch (-want +got):\n%s", diff)
	}

	for _, p := range b.Pages() {
		if !p.Closed {
			t.Errorf("page for %q left open", p.URL)
		}
	}
	if pacer.n != 2 {
		t.Errorf("pacer paused %d times, want 2", pacer.n)
	}
}

func TestWalkEmptyResult(t *testing.T) {
	b := rendertest.NewBrowser(map[string]*rendertest.Doc{
		base + "/library/a": {NavigateErr: errors.New("timeout")},
	})
	res, err := newWalker(b, nil).Walk(context.Background(), []string{"a"})
	if !errors.Is(err, ErrEmptyResult) {
		t.Fatalf("err = %v, want ErrEmptyResult", err)
	}
	if len(res.Records) != 0 {
		t.Errorf("records = %v", res.Records)
	}
}

func TestWalkNoIDs(t *testing.T) {
	_, err := newWalker(rendertest.NewBrowser(nil), nil).Walk(context.Background(), nil)
	if !errors.Is(err, ErrEmptyResult) {
		t.Fatalf("err = %v, want ErrEmptyResult", err)
	}
}

func TestWalkStopsOnCancel(t *testing.T) {
	b := rendertest.NewBrowser(map[string]*rendertest.Doc{
		base + "/library/a": entryDoc("a\n7b (4.1GB)"),
		base + "/library/b": entryDoc("b\n7b (4.1GB)"),
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newWalker(b, nil).Walk(ctx, []string{"a", "b"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestVisitFallsBackToBody(t *testing.T) {
	b := rendertest.NewBrowser(map[string]*rendertest.Doc{
		base + "/library/phi3": {Texts: map[string]string{"body": "phi3\n3.8b (2.2GB)"}},
	})
	rec, err := newWalker(b, nil).Visit(context.Background(), "phi3")
	if err != nil {
		t.Fatalf("Visit: %v", err)
	}
	if rec.DefaultVersion == nil || rec.DefaultVersion.Size != "3.8b" {
		t.Errorf("default version = %+v", rec.DefaultVersion)
	}
}

func TestVisitEmptyPageFails(t *testing.T) {
	b := rendertest.NewBrowser(map[string]*rendertest.Doc{
		base + "/library/blank": {Texts: map[string]string{"main": "  ", "body": ""}},
	})
	_, err := newWalker(b, nil).Visit(context.Background(), "blank")
	var ee *EntryError
	if !errors.As(err, &ee) || ee.State != Extracting {
		t.Fatalf("err = %v, want extracting EntryError", err)
	}
}

func TestVisitExpandsVersionPanel(t *testing.T) {
	doc := &rendertest.Doc{
		Texts: map[string]string{"main": "mixtral\nA set of Mixture of Experts (MoE) model with open weights by Mistral AI\n8x7b"},
		Elements: map[string][]rendertest.Elem{
			`button[name="tag"]`: {{Label: "tags"}},
		},
		Expanded: map[string][]rendertest.Elem{
			"#tags-nav": {{}},
			`#tags-nav a[href^="/library/"]`: {
				{Label: "8x7b\n26GB", Href: "/library/mixtral:8x7b"},
				{Label: "8x22b\n80GB", Href: "/library/mixtral:8x22b"},
				{Label: "View all", Href: "/library/mixtral/tags"},
			},
		},
	}
	b := rendertest.NewBrowser(map[string]*rendertest.Doc{base + "/library/mixtral": doc})

	rec, err := newWalker(b, nil).Visit(context.Background(), "mixtral")
	if err != nil {
		t.Fatalf("Visit: %v", err)
	}
	want := []catalog.VersionEntry{{Size: "8x7b", DiskSize: "26GB"}, {Size: "8x22b", DiskSize: "80GB"}}
	if diff := cmp.Diff(want, rec.Versions); diff != "" {
		t.Errorf("versions mismatch (-want +got):\n%s", diff)
	}

	calls := b.Pages()[0].Calls
	clickAt, waitAt := -1, -1
	for i, c := range calls {
		switch c {
		case `click button[name="tag"]`:
			clickAt = i
		case "wait #tags-nav":
			waitAt = i
		}
	}
	if clickAt < 0 || waitAt < clickAt {
		t.Errorf("expected click before waiting for the panel, calls: %v", calls)
	}
}

func TestFixedDelayElapses(t *testing.T) {
	start := time.Now()
	if err := FixedDelay(20 * time.Millisecond).Pause(context.Background()); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("paused %v, want at least 20ms", elapsed)
	}
}

func TestFixedDelayCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := FixedDelay(time.Hour).Pause(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
