package htmlutil

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// blockElements start a new line in rendered text.
var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Button: true, atom.Dd: true, atom.Details: true, atom.Div: true,
	atom.Dl: true, atom.Dt: true, atom.Fieldset: true, atom.Figcaption: true,
	atom.Figure: true, atom.Footer: true, atom.Form: true, atom.H1: true,
	atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Header: true, atom.Hr: true, atom.Li: true, atom.Main: true,
	atom.Nav: true, atom.Ol: true, atom.P: true, atom.Pre: true,
	atom.Section: true, atom.Summary: true, atom.Table: true, atom.Td: true, atom.Th: true,
	atom.Tr: true, atom.Ul: true,
}

// skippedElements never contribute rendered text.
var skippedElements = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Noscript: true, atom.Template: true,
	atom.Head: true,
}

// InnerText approximates the browser's innerText for a selection: block
// elements and <br> break lines, runs of inline whitespace collapse to one
// space, and script/style content is dropped.
func InnerText(sel *goquery.Selection) string {
	var b textBuilder
	for _, n := range sel.Nodes {
		b.walk(n)
		b.newline()
	}
	return strings.TrimSpace(b.String())
}

type textBuilder struct {
	strings.Builder
	pendingSpace bool
}

func (b *textBuilder) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.text(n.Data)
		return
	case html.ElementNode:
		if skippedElements[n.DataAtom] {
			return
		}
		if n.DataAtom == atom.Br {
			b.newline()
			return
		}
	}

	block := n.Type == html.ElementNode && blockElements[n.DataAtom]
	if block {
		b.newline()
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.walk(c)
	}
	if block {
		b.newline()
	}
}

func (b *textBuilder) text(s string) {
	if s == "" {
		return
	}
	if first, _ := utf8.DecodeRuneInString(s); isSpace(first) {
		b.pendingSpace = true
	}
	for _, word := range strings.FieldsFunc(s, isSpace) {
		if b.pendingSpace && b.Len() > 0 && !b.endsWithNewline() {
			b.WriteByte(' ')
		}
		b.WriteString(word)
		b.pendingSpace = true
	}
	last, _ := utf8.DecodeLastRuneInString(s)
	b.pendingSpace = isSpace(last)
}

func (b *textBuilder) newline() {
	b.pendingSpace = false
	if b.Len() > 0 && !b.endsWithNewline() {
		b.WriteByte('\n')
	}
}

func (b *textBuilder) endsWithNewline() bool {
	s := b.String()
	return len(s) > 0 && s[len(s)-1] == '\n'
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\f', '\u00a0':
		return true
	}
	return false
}
