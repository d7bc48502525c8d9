package importer

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/dgallion1/teiedit/internal/xmlnode"
)

// DOCXImporter handles .docx files. Heading-styled paragraphs are set bold.
type DOCXImporter struct{}

func (p *DOCXImporter) Import(r io.Reader, filename string) ([]xmlnode.Node, error) {
	// go-docx needs a ReaderAt and size.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	var out []xmlnode.Node
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		b := newBuilder()
		heading := isDocxHeading(para)
		if heading {
			b.open()
		}
		for _, child := range para.Children {
			run, ok := child.(*docx.Run)
			if !ok {
				continue
			}
			for _, rc := range run.Children {
				if t, ok := rc.(*docx.Text); ok {
					b.text(t.Text)
				}
			}
		}
		if heading {
			b.close("hi", rend("bold"))
		}
		if el := b.paragraph(); el != nil {
			out = append(out, el)
		}
	}
	return out, nil
}

func isDocxHeading(para *docx.Paragraph) bool {
	if para.Properties == nil || para.Properties.Style == nil {
		return false
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	return strings.HasPrefix(style, "heading") || style == "title"
}
