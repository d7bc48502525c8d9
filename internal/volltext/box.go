package volltext

import (
	"fmt"

	"github.com/dgallion1/teiedit/internal/diag"
	"github.com/dgallion1/teiedit/internal/doctree"
)

// fallbackTag wraps text of inline nodes whose semantics were lost.
const fallbackTag = "seg"

func (t *Transformer) box(el *doctree.Element) *doctree.Inline {
	return &doctree.Inline{
		ID:      t.idFor(el),
		Kind:    doctree.KindBox,
		Content: doctree.TextContent(el),
		Box:     doctree.Clone(el).(*doctree.Element),
	}
}

// invertBox returns the retained element. An edited label is written back
// only when the element holds nothing but text. Without a retained element
// the content becomes a generic span and a warning is reported.
func (t *Transformer) invertBox(n *doctree.Inline) (*doctree.Element, *diag.SerializationError) {
	if n.Box != nil {
		el := doctree.Clone(n.Box).(*doctree.Element)
		if n.Content != doctree.TextContent(el) && textOnly(el) {
			el.Children = []doctree.Node{&doctree.Text{Text: n.Content}}
		}
		return el, nil
	}
	el := &doctree.Element{
		Origin:   fallbackTag,
		Children: []doctree.Node{&doctree.Text{Text: n.Content}},
	}
	return el, &diag.SerializationError{
		Level:  diag.LevelWarning,
		Code:   diag.CodeUnknownVolltext,
		Tag:    string(n.Kind),
		Detail: fmt.Sprintf("volltext node %q has no original element, written as <%s>", n.ID, fallbackTag),
	}
}

func textOnly(el *doctree.Element) bool {
	for _, c := range el.Children {
		if _, ok := c.(*doctree.Text); !ok {
			return false
		}
	}
	return true
}
