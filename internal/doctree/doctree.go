// Package doctree is the editable document model: the tree the editor
// works on, derived from the XML node tree and inverted back into it.
package doctree

import (
	"strings"

	"github.com/dgallion1/teiedit/internal/diag"
)

// AttrPrefix marks reflected XML attributes so they never collide with the
// structural fields of an element.
const AttrPrefix = "data_"

// Node is one of *Element, *Text or *Inline.
type Node interface {
	docNode()
}

// Attr is a reflected XML attribute; Name carries AttrPrefix.
type Attr struct {
	Name  string
	Value string
}

// Element is a structural node. Origin is the XML tag; ID, Component,
// Region, Path and Level are derived on every transform and never written
// back to XML.
type Element struct {
	Origin    string
	ID        string
	Component string
	Region    string
	Path      string
	Level     int
	Attrs     []Attr
	Children  []Node
	Errors    []diag.DiagnosticMessage
}

// Text is a leaf text run.
type Text struct {
	Text string
}

func (*Element) docNode() {}
func (*Text) docNode()    {}
func (*Inline) docNode()  {}

// Attr returns the value of the XML attribute name (without prefix).
func (e *Element) Attr(name string) (string, bool) {
	key := AttrPrefix + name
	for _, a := range e.Attrs {
		if a.Name == key {
			return a.Value, true
		}
	}
	return "", false
}

// AttrValue is Attr without the presence flag.
func (e *Element) AttrValue(name string) string {
	v, _ := e.Attr(name)
	return v
}

// SetAttr sets the XML attribute name, appending it when absent.
func (e *Element) SetAttr(name, value string) {
	key := AttrPrefix + name
	for i, a := range e.Attrs {
		if a.Name == key {
			e.Attrs[i].Value = value
			return
		}
	}
	e.Attrs = append(e.Attrs, Attr{Name: key, Value: value})
}

// Clone returns a deep copy of n.
func Clone(n Node) Node {
	switch n := n.(type) {
	case *Element:
		return n.clone()
	case *Text:
		return &Text{Text: n.Text}
	case *Inline:
		c := *n
		c.Auswahl = append([]Term(nil), n.Auswahl...)
		c.Errors = diag.CloneMessages(n.Errors)
		if n.Box != nil {
			c.Box = n.Box.clone()
		}
		c.Children = cloneAll(n.Children)
		return &c
	}
	return nil
}

func (e *Element) clone() *Element {
	c := *e
	c.Attrs = append([]Attr(nil), e.Attrs...)
	c.Errors = diag.CloneMessages(e.Errors)
	c.Children = cloneAll(e.Children)
	return &c
}

func cloneAll(nodes []Node) []Node {
	if nodes == nil {
		return nil
	}
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = Clone(n)
	}
	return out
}

// TextContent flattens the text below n. Void inline nodes contribute
// their Content.
func TextContent(n Node) string {
	var sb strings.Builder
	var walk func(Node)
	walk = func(n Node) {
		switch n := n.(type) {
		case *Text:
			sb.WriteString(n.Text)
		case *Element:
			for _, c := range n.Children {
				walk(c)
			}
		case *Inline:
			if len(n.Children) == 0 {
				sb.WriteString(n.Content)
				return
			}
			for _, c := range n.Children {
				walk(c)
			}
		}
	}
	walk(n)
	return sb.String()
}
