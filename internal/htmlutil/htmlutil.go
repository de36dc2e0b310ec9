// Package htmlutil extracts readable text from HTML pages.
package htmlutil

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/happyhackingspace/openie/internal/textutil"
)

// LoadHTML parses HTML bytes into a goquery Document.
func LoadHTML(r io.Reader) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(r)
}

// LoadHTMLString parses HTML string into a goquery Document.
func LoadHTMLString(htmlStr string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
}

// Title returns the trimmed document title.
func Title(doc *goquery.Document) string {
	return strings.TrimSpace(textutil.NormalizeWhitespaces(doc.Find("title").First().Text()))
}

// skipped elements never contribute visible text.
var skipped = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Iframe:   true,
	atom.Svg:      true,
	atom.Select:   true,
	atom.Textarea: true,
	atom.Button:   true,
}

// block elements end the current text block.
var block = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Br: true, atom.Caption: true, atom.Dd: true, atom.Div: true, atom.Dl: true,
	atom.Dt: true, atom.Figcaption: true, atom.Footer: true, atom.Form: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Header: true, atom.Hr: true, atom.Li: true, atom.Main: true, atom.Nav: true,
	atom.Ol: true, atom.P: true, atom.Pre: true, atom.Section: true, atom.Table: true,
	atom.Td: true, atom.Th: true, atom.Tr: true, atom.Ul: true,
}

// TextBlocks returns the visible text of sel split at block-level elements,
// with whitespace normalized. Empty blocks are dropped.
func TextBlocks(sel *goquery.Selection) []string {
	var (
		blocks []string
		buf    strings.Builder
	)
	flush := func() {
		text := strings.TrimSpace(textutil.NormalizeWhitespaces(buf.String()))
		if text != "" {
			blocks = append(blocks, text)
		}
		buf.Reset()
	}

	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			buf.WriteString(n.Data)
			return
		case html.ElementNode:
			if skipped[n.DataAtom] {
				return
			}
			if block[n.DataAtom] {
				flush()
				defer flush()
			}
		case html.CommentNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}

	for _, n := range sel.Nodes {
		visit(n)
	}
	flush()
	return blocks
}

// DocumentBlocks returns the text blocks of a document's body, or of the
// whole document when it has no body.
func DocumentBlocks(doc *goquery.Document) []string {
	body := doc.Find("body")
	if body.Length() == 0 {
		return TextBlocks(doc.Selection)
	}
	return TextBlocks(body)
}
