package volltext

import (
	"fmt"

	"github.com/dgallion1/teiedit/internal/diag"
	"github.com/dgallion1/teiedit/internal/doctree"
)

// spanShapes is how a formatting or block kind is written when the node
// has no retained element.
var spanShapes = map[doctree.Kind]struct {
	tag, attr, value string
}{
	doctree.KindAutor:       {"persName", "role", "author"},
	doctree.KindTitel:       {"title", "", ""},
	doctree.KindZitat:       {"quote", "", ""},
	doctree.KindIncipit:     {"quote", "type", "incipit"},
	doctree.KindExplicit:    {"quote", "type", "explicit"},
	doctree.KindSuperskript: {"hi", "rend", "superscript"},
	doctree.KindSubskript:   {"hi", "rend", "subscript"},
	doctree.KindAbsatz:      {"p", "", ""},
}

// span classifies the children of a formatting or block element. Box holds
// the element without its children.
func (t *Transformer) span(el *doctree.Element, k doctree.Kind) *doctree.Inline {
	shell := *el
	shell.Children = nil
	return &doctree.Inline{
		ID:       t.idFor(el),
		Kind:     k,
		Box:      doctree.Clone(&shell).(*doctree.Element),
		Children: t.classifyChildren(el.Children),
	}
}

// invertSpan inverts the children first and reports their errors with the
// span's own.
func (t *Transformer) invertSpan(n *doctree.Inline) (*doctree.Element, diag.Errors, error) {
	var el *doctree.Element
	if n.Box != nil {
		el = doctree.Clone(n.Box).(*doctree.Element)
	} else {
		shape, ok := spanShapes[n.Kind]
		if !ok {
			return nil, nil, fmt.Errorf("no element for formatting kind %q", n.Kind)
		}
		el = &doctree.Element{Origin: shape.tag}
		if shape.attr != "" {
			el.SetAttr(shape.attr, shape.value)
		}
	}
	children, errs := t.invertChildren(n.Children)
	if len(children) == 0 && n.Content != "" {
		children = []doctree.Node{&doctree.Text{Text: n.Content}}
	}
	el.Children = children
	return el, errs, nil
}
