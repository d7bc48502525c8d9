package importer

import (
	"fmt"
	"io"

	"github.com/dgallion1/teiedit/internal/xmlnode"
)

// TextImporter handles plain text; blank lines separate paragraphs.
type TextImporter struct{}

func (p *TextImporter) Import(r io.Reader, filename string) ([]xmlnode.Node, error) {
	data, err := io.ReadAll(io.LimitReader(r, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	return plainParagraphs(string(data)), nil
}
