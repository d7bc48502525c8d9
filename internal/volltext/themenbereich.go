package volltext

import (
	"fmt"

	"github.com/dgallion1/teiedit/internal/doctree"
)

// themenbereich reads <ref type="subjectArea">label<index indexName="X">
// <term key="id" ref="uri"/></index></ref>. Terms come from the index that
// decided the kind.
func (t *Transformer) themenbereich(el *doctree.Element, k doctree.Kind) *doctree.Inline {
	n := &doctree.Inline{
		ID:      t.idFor(el),
		Kind:    k,
		Content: subjectLabel(el),
		Box:     doctree.Clone(el).(*doctree.Element),
	}
	if idx := subjectIndex(el); idx != nil {
		for _, c := range idx.Children {
			if term, ok := asTerm(c); ok {
				n.Auswahl = append(n.Auswahl, term)
			}
		}
	}
	return n
}

// subjectLabel is the text of everything but the index elements.
func subjectLabel(el *doctree.Element) string {
	var label string
	for _, c := range el.Children {
		if isIndex(c) {
			continue
		}
		label += doctree.TextContent(c)
	}
	return label
}

func isIndex(n doctree.Node) bool {
	el, ok := n.(*doctree.Element)
	return ok && el.Origin == "index"
}

// asTerm accepts only term elements carrying both key and ref.
func asTerm(n doctree.Node) (doctree.Term, bool) {
	el, ok := n.(*doctree.Element)
	if !ok || el.Origin != "term" {
		return doctree.Term{}, false
	}
	key, okKey := el.Attr("key")
	ref, okRef := el.Attr("ref")
	if !okKey || !okRef {
		return doctree.Term{}, false
	}
	return doctree.Term{ID: key, URI: ref}, true
}

func termElement(term doctree.Term) *doctree.Element {
	te := &doctree.Element{Origin: "term"}
	te.SetAttr("key", term.ID)
	te.SetAttr("ref", term.URI)
	return te
}

// invertThemenbereich writes the selection back. With a retained element,
// terms still selected stay as they were, deselected ones are dropped and
// new ones are appended; the label is replaced only when it was edited.
// The indexName always follows the kind.
func (t *Transformer) invertThemenbereich(n *doctree.Inline) (*doctree.Element, error) {
	indexName, ok := IndexName(n.Kind)
	if !ok {
		return nil, fmt.Errorf("no notation for subject area kind %q", n.Kind)
	}
	if n.Box == nil {
		el := &doctree.Element{Origin: "ref"}
		el.SetAttr("type", subjectAreaType)
		if n.Content != "" {
			el.Children = append(el.Children, &doctree.Text{Text: n.Content})
		}
		idx := &doctree.Element{Origin: "index"}
		idx.SetAttr("indexName", indexName)
		for _, term := range n.Auswahl {
			idx.Children = append(idx.Children, termElement(term))
		}
		el.Children = append(el.Children, idx)
		return el, nil
	}

	el := doctree.Clone(n.Box).(*doctree.Element)
	idx := subjectIndex(el)
	if idx == nil {
		idx = &doctree.Element{Origin: "index"}
		el.Children = append(el.Children, idx)
	}
	idx.SetAttr("indexName", indexName)

	selected := make(map[doctree.Term]bool, len(n.Auswahl))
	for _, term := range n.Auswahl {
		selected[term] = true
	}
	present := make(map[doctree.Term]bool)
	var kept []doctree.Node
	for _, c := range idx.Children {
		if term, ok := asTerm(c); ok {
			if !selected[term] {
				continue
			}
			present[term] = true
		}
		kept = append(kept, c)
	}
	for _, term := range n.Auswahl {
		if !present[term] {
			present[term] = true
			kept = append(kept, termElement(term))
		}
	}
	idx.Children = kept

	if n.Content != subjectLabel(el) {
		var children []doctree.Node
		if n.Content != "" {
			children = append(children, &doctree.Text{Text: n.Content})
		}
		for _, c := range el.Children {
			if isIndex(c) {
				children = append(children, c)
			}
		}
		el.Children = children
	}
	return el, nil
}
