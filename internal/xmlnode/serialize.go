package xmlnode

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/dgallion1/teiedit/internal/diag"
)

var errInvalidName = errors.New("invalid xml name")

// Serialize writes nodes back to XML text. Reserved characters in text and
// attribute values are escaped. An element without children, or whose only
// child is whitespace text, is written in self-closing form. Nodes that
// cannot be written are left out and reported.
func Serialize(nodes []Node) (string, diag.Errors) {
	doc := etree.NewDocument()
	doc.WriteSettings.CanonicalText = true
	doc.WriteSettings.CanonicalAttrVal = true

	var errs diag.Errors
	for _, n := range nodes {
		t, err := toToken(n, &errs)
		if err != nil {
			errs = append(errs, diag.Transformation(tagOf(n), err))
			continue
		}
		if t != nil {
			doc.AddChild(t)
		}
	}

	out, err := doc.WriteToString()
	if err != nil {
		errs = append(errs, diag.Transformation("", err))
	}
	return out, errs
}

func toToken(n Node, errs *diag.Errors) (etree.Token, error) {
	switch n := n.(type) {
	case *Element:
		if !validName(n.Tag) {
			return nil, fmt.Errorf("%w: tag %q", errInvalidName, n.Tag)
		}
		el := etree.NewElement(n.Tag)
		for _, a := range n.Attrs {
			if !validName(a.Name) {
				return nil, fmt.Errorf("%w: attribute %q", errInvalidName, a.Name)
			}
			el.CreateAttr(a.Name, a.Value)
		}
		if isBlank(n.Children) {
			return el, nil
		}
		for _, c := range n.Children {
			t, err := toToken(c, errs)
			if err != nil {
				*errs = append(*errs, diag.Transformation(tagOf(c), err))
				continue
			}
			if t != nil {
				el.AddChild(t)
			}
		}
		return el, nil
	case *Text:
		return etree.NewText(n.Text), nil
	case *CData:
		return etree.NewCData(n.Data), nil
	case *Comment:
		return etree.NewComment(n.Comment), nil
	case *ProcInst:
		return etree.NewProcInst(n.Target, n.Inst), nil
	case *Doctype:
		return etree.NewDirective(doctypeDirective(n)), nil
	case nil:
		return nil, errors.New("nil node")
	}
	return nil, fmt.Errorf("unsupported node %T", n)
}

func isBlank(children []Node) bool {
	switch len(children) {
	case 0:
		return true
	case 1:
		t, ok := children[0].(*Text)
		return ok && strings.TrimSpace(t.Text) == ""
	}
	return false
}

func doctypeDirective(d *Doctype) string {
	var sb strings.Builder
	sb.WriteString("DOCTYPE ")
	sb.WriteString(d.Name)
	switch {
	case d.PublicID != "":
		sb.WriteString(" PUBLIC ")
		sb.WriteString(quote(d.PublicID))
		if d.SystemID != "" {
			sb.WriteString(" ")
			sb.WriteString(quote(d.SystemID))
		}
	case d.SystemID != "":
		sb.WriteString(" SYSTEM ")
		sb.WriteString(quote(d.SystemID))
	}
	return sb.String()
}

func quote(s string) string {
	if strings.ContainsRune(s, '"') {
		return "'" + s + "'"
	}
	return `"` + s + `"`
}

func tagOf(n Node) string {
	if el, ok := n.(*Element); ok {
		return el.Tag
	}
	return ""
}

// validName is a loose XML Name check: enough to keep the writer from
// producing markup that would not parse again.
func validName(name string) bool {
	if name == "" || strings.Count(name, ":") > 1 {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || r == ':' || r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r > 0x7f:
		case i > 0 && (r == '-' || r == '.' || r >= '0' && r <= '9'):
		default:
			return false
		}
	}
	return !strings.HasPrefix(name, ":") && !strings.HasSuffix(name, ":")
}
