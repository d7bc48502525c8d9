// Package xmlnode is the generic XML layer of the editor: a node tree that
// mirrors the XML text one to one, with parsing, serialization and
// best-effort attachment of validation diagnostics.
package xmlnode

import (
	"strings"

	"github.com/dgallion1/teiedit/internal/diag"
)

// Node is one of *Element, *Text, *Comment, *CData, *Doctype or *ProcInst.
type Node interface {
	xmlNode()
}

// Attr is a single attribute. Name keeps its prefix verbatim ("xml:space").
type Attr struct {
	Name  string
	Value string
}

// Element is the only node kind that carries attributes, children and errors.
type Element struct {
	Tag      string
	Attrs    []Attr
	Children []Node
	Errors   []diag.DiagnosticMessage
}

// Text is character data outside CDATA sections.
type Text struct {
	Text string
}

// Comment is an XML comment without its delimiters.
type Comment struct {
	Comment string
}

// CData is the content of a CDATA section.
type CData struct {
	Data string
}

// Doctype is a document type declaration. PublicID selects the PUBLIC form.
type Doctype struct {
	Name     string
	SystemID string
	PublicID string
}

// ProcInst is a processing instruction such as the XML declaration.
type ProcInst struct {
	Target string
	Inst   string
}

func (*Element) xmlNode()  {}
func (*Text) xmlNode()     {}
func (*Comment) xmlNode()  {}
func (*CData) xmlNode()    {}
func (*Doctype) xmlNode()  {}
func (*ProcInst) xmlNode() {}

// Attr returns the value of the named attribute.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Clone returns a deep copy of n.
func Clone(n Node) Node {
	switch n := n.(type) {
	case *Element:
		c := &Element{
			Tag:    n.Tag,
			Attrs:  append([]Attr(nil), n.Attrs...),
			Errors: diag.CloneMessages(n.Errors),
		}
		if n.Children != nil {
			c.Children = make([]Node, 0, len(n.Children))
			for _, child := range n.Children {
				c.Children = append(c.Children, Clone(child))
			}
		}
		return c
	case *Text:
		return &Text{Text: n.Text}
	case *Comment:
		return &Comment{Comment: n.Comment}
	case *CData:
		return &CData{Data: n.Data}
	case *Doctype:
		c := *n
		return &c
	case *ProcInst:
		c := *n
		return &c
	}
	return nil
}

// TextContent concatenates all character data below n.
func TextContent(n Node) string {
	var sb strings.Builder
	var walk func(Node)
	walk = func(n Node) {
		switch n := n.(type) {
		case *Element:
			for _, c := range n.Children {
				walk(c)
			}
		case *Text:
			sb.WriteString(n.Text)
		case *CData:
			sb.WriteString(n.Data)
		}
	}
	walk(n)
	return sb.String()
}

// LocalName strips a namespace prefix from a qualified name.
func LocalName(qname string) string {
	if i := strings.IndexByte(qname, ':'); i >= 0 {
		return qname[i+1:]
	}
	return qname
}

// Prefix returns the namespace prefix of a qualified name, if any.
func Prefix(qname string) string {
	if i := strings.IndexByte(qname, ':'); i >= 0 {
		return qname[:i]
	}
	return ""
}
