package xmlnode

import "github.com/dgallion1/teiedit/internal/diag"

// Source is the text side of the XML layer. DetailErrors are validation
// results to attach while parsing; they are ignored when inverting.
type Source struct {
	Data         string
	DetailErrors []diag.DetailError
}

// Transformer converts between XML text and the generic node tree.
type Transformer struct{}

// Transform parses src.Data and attaches src.DetailErrors. Malformed XML
// is returned as a *ParseError.
func (Transformer) Transform(src Source) ([]Node, error) {
	nodes, err := Parse(src.Data)
	if err != nil {
		return nil, err
	}
	AttachDetailErrors(nodes, src.DetailErrors)
	return nodes, nil
}

// Invert serializes nodes back to XML text.
func (Transformer) Invert(nodes []Node) (Source, diag.Errors) {
	data, errs := Serialize(nodes)
	return Source{Data: data}, errs
}
