package importer

import (
	"io"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dgallion1/teiedit/internal/xmlnode"
)

// MarkdownImporter handles Markdown using goldmark. Emphasis becomes
// <hi rend>, links become <ref target>, block quotes become <quote>.
type MarkdownImporter struct{}

func (p *MarkdownImporter) Import(r io.Reader, filename string) ([]xmlnode.Node, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var out []xmlnode.Node
	var block func(n ast.Node, quoted bool)
	block = func(n ast.Node, quoted bool) {
		switch node := n.(type) {
		case *ast.Paragraph, *ast.TextBlock, *ast.Heading:
			b := newBuilder()
			if quoted {
				b.open()
			}
			if h, ok := node.(*ast.Heading); ok {
				b.open()
				mdInlines(b, h, src)
				b.close("hi", rend("bold"))
			} else {
				mdInlines(b, node, src)
			}
			if quoted {
				b.close("quote")
			}
			if para := b.paragraph(); para != nil {
				out = append(out, para)
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			b := newBuilder()
			b.open()
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				b.text(string(seg.Value(src)))
			}
			b.close("hi", rend("code"))
			if para := b.paragraph(); para != nil {
				out = append(out, para)
			}
		case *ast.Blockquote:
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				block(c, true)
			}
		default:
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				block(c, quoted)
			}
		}
	}
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		block(n, false)
	}
	return out, nil
}

func mdInlines(b *builder, n ast.Node, src []byte) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			b.text(string(node.Segment.Value(src)))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.text(" ")
			}
		case *ast.String:
			b.text(string(node.Value))
		case *ast.Emphasis:
			b.open()
			mdInlines(b, node, src)
			if node.Level >= 2 {
				b.close("hi", rend("bold"))
			} else {
				b.close("hi", rend("italic"))
			}
		case *ast.CodeSpan:
			b.open()
			mdInlines(b, node, src)
			b.close("hi", rend("code"))
		case *ast.Link:
			b.open()
			mdInlines(b, node, src)
			b.close("ref", target(string(node.Destination)))
		case *ast.AutoLink:
			url := string(node.URL(src))
			b.open()
			b.text(string(node.Label(src)))
			b.close("ref", target(url))
		default:
			mdInlines(b, c, src)
		}
	}
}
