// Package importer turns pasted or uploaded documents into TEI paragraphs
// that can be dropped into running text.
package importer

import (
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dgallion1/teiedit/internal/xmlnode"
)

// Importer converts raw document bytes into <p> elements.
type Importer interface {
	Import(r io.Reader, filename string) ([]xmlnode.Node, error)
}

// Options tunes the importers that need it.
type Options struct {
	PDFFallbackPdftotext bool
}

// SupportedExtensions lists file extensions that can be imported.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the importer for a filename.
func ForFile(filename string, opts Options) (Importer, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextImporter{}, nil
	case ".md", ".markdown":
		return &MarkdownImporter{}, nil
	case ".html", ".htm":
		return &HTMLImporter{}, nil
	case ".pdf":
		return &PDFImporter{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXImporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

var (
	spaceRun   = regexp.MustCompile(`\s+`)
	blankLines = regexp.MustCompile(`\n\s*\n`)
)

// builder accumulates inline content for one paragraph, merging adjacent
// text and collapsing whitespace.
type builder struct {
	stack [][]xmlnode.Node
}

func newBuilder() *builder {
	return &builder{stack: [][]xmlnode.Node{nil}}
}

func (b *builder) text(s string) {
	s = spaceRun.ReplaceAllString(s, " ")
	if s == "" {
		return
	}
	top := len(b.stack) - 1
	cur := b.stack[top]
	if n := len(cur); n > 0 {
		if t, ok := cur[n-1].(*xmlnode.Text); ok {
			if strings.HasSuffix(t.Text, " ") && strings.HasPrefix(s, " ") {
				s = s[1:]
			}
			cur[n-1] = &xmlnode.Text{Text: t.Text + s}
			return
		}
	}
	b.stack[top] = append(cur, &xmlnode.Text{Text: s})
}

// open starts an inline element; close appends it to its parent. Empty
// inline elements are dropped.
func (b *builder) open() {
	b.stack = append(b.stack, nil)
}

func (b *builder) close(tag string, attrs ...xmlnode.Attr) {
	top := len(b.stack) - 1
	children := b.stack[top]
	b.stack = b.stack[:top]
	if len(children) == 0 {
		return
	}
	el := &xmlnode.Element{Tag: tag, Attrs: attrs, Children: children}
	b.stack[top-1] = append(b.stack[top-1], el)
}

// paragraph returns the collected content as <p>, or nil when it holds no
// text.
func (b *builder) paragraph() *xmlnode.Element {
	for len(b.stack) > 1 {
		b.close("seg")
	}
	children := trimEdges(b.stack[0])
	b.stack = [][]xmlnode.Node{nil}
	if len(children) == 0 {
		return nil
	}
	return &xmlnode.Element{Tag: "p", Children: children}
}

func trimEdges(nodes []xmlnode.Node) []xmlnode.Node {
	if len(nodes) == 0 {
		return nil
	}
	if t, ok := nodes[0].(*xmlnode.Text); ok {
		nodes[0] = &xmlnode.Text{Text: strings.TrimLeft(t.Text, " ")}
	}
	last := len(nodes) - 1
	if t, ok := nodes[last].(*xmlnode.Text); ok {
		nodes[last] = &xmlnode.Text{Text: strings.TrimRight(t.Text, " ")}
	}
	out := nodes[:0]
	for _, n := range nodes {
		if t, ok := n.(*xmlnode.Text); ok && t.Text == "" {
			continue
		}
		out = append(out, n)
	}
	return out
}

func rend(v string) xmlnode.Attr   { return xmlnode.Attr{Name: "rend", Value: v} }
func target(v string) xmlnode.Attr { return xmlnode.Attr{Name: "target", Value: v} }

// plainParagraphs splits text on blank lines.
func plainParagraphs(text string) []xmlnode.Node {
	var out []xmlnode.Node
	for _, block := range blankLines.Split(text, -1) {
		b := newBuilder()
		b.text(block)
		if p := b.paragraph(); p != nil {
			out = append(out, p)
		}
	}
	return out
}
