package importer

import (
	"fmt"
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dgallion1/teiedit/internal/xmlnode"
)

// HTMLImporter handles HTML, typically clipboard content.
type HTMLImporter struct{}

func (p *HTMLImporter) Import(r io.Reader, filename string) ([]xmlnode.Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var out []xmlnode.Node
	b := newBuilder()
	flush := func() {
		if para := b.paragraph(); para != nil {
			out = append(out, para)
		}
	}

	var walk func(*html.Node)
	inline := func(n *html.Node, tag string, attrs ...xmlnode.Attr) {
		b.open()
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		b.close(tag, attrs...)
	}
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.text(n.Data)
			return
		case html.ElementNode:
		default:
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
			return
		}

		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Nav, atom.Footer, atom.Head:
			return
		case atom.Br:
			b.text(" ")
			return
		case atom.Em, atom.I:
			inline(n, "hi", rend("italic"))
			return
		case atom.Strong, atom.B:
			inline(n, "hi", rend("bold"))
			return
		case atom.U:
			inline(n, "hi", rend("underline"))
			return
		case atom.Sup:
			inline(n, "hi", rend("superscript"))
			return
		case atom.Sub:
			inline(n, "hi", rend("subscript"))
			return
		case atom.Q:
			inline(n, "quote")
			return
		case atom.Cite:
			inline(n, "title")
			return
		case atom.A:
			if href := attr(n, "href"); href != "" {
				inline(n, "ref", target(href))
				return
			}
		case atom.P, atom.Li, atom.Td, atom.Th, atom.Div,
			atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			flush()
			if isHeading(n.DataAtom) {
				inline(n, "hi", rend("bold"))
			} else {
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					walk(c)
				}
			}
			flush()
			return
		case atom.Blockquote:
			flush()
			inline(n, "quote")
			flush()
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	flush()
	return out, nil
}

func isHeading(a atom.Atom) bool {
	switch a {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return true
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
