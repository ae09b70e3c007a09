package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func mustDoc(t *testing.T, src string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parsing HTML: %v", err)
	}
	return doc
}

func TestInnerText(t *testing.T) {
	tests := []struct {
		name string
		html string
		sel  string
		want string
	}{
		{
			name: "blocks break lines",
			html: `<main><h1>llama3</h1><p>Meta Llama 3</p><div><span>6.1M</span> <span>Pulls</span></div></main>`,
			sel:  "main",
			want: "llama3\nMeta Llama 3\n6.1M Pulls",
		},
		{
			name: "br and collapsed whitespace",
			html: "<div>8b\n\n   (4.7GB)<br>70b   (40GB)</div>",
			sel:  "div",
			want: "8b (4.7GB)\n70b (40GB)",
		},
		{
			name: "script and style dropped",
			html: `<body><script>var x = "7b (1GB)";</script><style>p{}</style><p>visible</p></body>`,
			sel:  "body",
			want: "visible",
		},
		{
			name: "inline elements join without extra space",
			html: `<p><b>Up</b>dated 2 weeks ago</p>`,
			sel:  "p",
			want: "Updated 2 weeks ago",
		},
		{
			name: "missing selection",
			html: `<p>x</p>`,
			sel:  "main",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustDoc(t, tt.html)
			got := InnerText(doc.Find(tt.sel))
			if got != tt.want {
				t.Errorf("InnerText = %q, want %q", got, tt.want)
			}
		})
	}
}
