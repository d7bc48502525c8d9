package volltext

import (
	"fmt"

	"github.com/dgallion1/teiedit/internal/doctree"
)

// referenzTags is where synthesized reference elements come from when the
// node was created in the editor and has no retained original.
var referenzTags = map[doctree.Kind]string{
	doctree.KindPerson:        "persName",
	doctree.KindOrt:           "placeName",
	doctree.KindKoerperschaft: "orgName",
}

// normdatum keeps the element verbatim and exposes its text as Content.
func (t *Transformer) normdatum(el *doctree.Element, k doctree.Kind) *doctree.Inline {
	return &doctree.Inline{
		ID:      t.idFor(el),
		Kind:    k,
		Content: doctree.TextContent(el),
		Box:     doctree.Clone(el).(*doctree.Element),
		Ref:     el.AttrValue("ref"),
	}
}

// invertNormdatum writes the edited label into the retained element. Its
// attributes, including the reference, stay as they were.
func (t *Transformer) invertNormdatum(n *doctree.Inline) (*doctree.Element, error) {
	var el *doctree.Element
	if n.Box != nil {
		el = doctree.Clone(n.Box).(*doctree.Element)
	} else {
		tag, ok := referenzTags[n.Kind]
		if !ok {
			return nil, fmt.Errorf("no element for reference kind %q", n.Kind)
		}
		el = &doctree.Element{Origin: tag}
		if n.Ref != "" {
			el.SetAttr("ref", n.Ref)
		}
	}
	el.Children = []doctree.Node{&doctree.Text{Text: n.Content}}
	return el, nil
}
