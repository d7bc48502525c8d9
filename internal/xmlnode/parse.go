package xmlnode

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/beevik/etree"
)

// ParseError reports XML text that is not well-formed. It is never
// recovered by the pipeline; callers surface it as a broken document.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse xml: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse converts XML text into a node tree. Tag and attribute names keep
// their prefixes, text runs are never merged across element boundaries,
// and CDATA sections, comments, processing instructions and a DOCTYPE
// declaration are preserved as their own nodes.
func Parse(data string) ([]Node, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.PreserveCData = true
	if err := doc.ReadFromString(data); err != nil {
		return nil, &ParseError{Err: err}
	}
	return fromTokens(doc.Child), nil
}

func fromTokens(tokens []etree.Token) []Node {
	nodes := make([]Node, 0, len(tokens))
	for _, t := range tokens {
		if n := fromToken(t); n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

func fromToken(t etree.Token) Node {
	switch t := t.(type) {
	case *etree.Element:
		el := &Element{Tag: t.FullTag()}
		for _, a := range t.Attr {
			el.Attrs = append(el.Attrs, Attr{Name: a.FullKey(), Value: a.Value})
		}
		el.Children = fromTokens(t.Child)
		return el
	case *etree.CharData:
		if t.IsCData() {
			return &CData{Data: t.Data}
		}
		return &Text{Text: t.Data}
	case *etree.Comment:
		return &Comment{Comment: t.Data}
	case *etree.ProcInst:
		return &ProcInst{Target: t.Target, Inst: t.Inst}
	case *etree.Directive:
		if dt, ok := parseDoctype(t.Data); ok {
			return dt
		}
	}
	return nil
}

var doctypeRe = regexp.MustCompile(`(?s)^DOCTYPE\s+([^\s\[>]+)(?:\s+(SYSTEM|PUBLIC)\s+("[^"]*"|'[^']*')(?:\s+("[^"]*"|'[^']*'))?)?\s*(?:\[.*\])?\s*$`)

// parseDoctype reads the body of a <!DOCTYPE ...> directive. An internal
// subset is accepted but not kept.
func parseDoctype(data string) (*Doctype, bool) {
	m := doctypeRe.FindStringSubmatch(strings.TrimSpace(data))
	if m == nil {
		return nil, false
	}
	dt := &Doctype{Name: m[1]}
	switch m[2] {
	case "SYSTEM":
		dt.SystemID = unquote(m[3])
	case "PUBLIC":
		dt.PublicID = unquote(m[3])
		dt.SystemID = unquote(m[4])
	}
	return dt, true
}

func unquote(s string) string {
	if len(s) >= 2 {
		return s[1 : len(s)-1]
	}
	return s
}
