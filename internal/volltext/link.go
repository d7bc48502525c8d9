package volltext

import "github.com/dgallion1/teiedit/internal/doctree"

func (t *Transformer) link(el *doctree.Element) *doctree.Inline {
	return &doctree.Inline{
		ID:      t.idFor(el),
		Kind:    doctree.KindExternerLink,
		Content: doctree.TextContent(el),
		Box:     doctree.Clone(el).(*doctree.Element),
		Target:  el.AttrValue("target"),
	}
}

// invertLink writes Target back even when it was edited.
func (t *Transformer) invertLink(n *doctree.Inline) *doctree.Element {
	var el *doctree.Element
	if n.Box != nil {
		el = doctree.Clone(n.Box).(*doctree.Element)
	} else {
		el = &doctree.Element{Origin: "ref"}
	}
	if n.Target != "" {
		el.SetAttr("target", n.Target)
	}
	el.Children = []doctree.Node{&doctree.Text{Text: n.Content}}
	return el
}
