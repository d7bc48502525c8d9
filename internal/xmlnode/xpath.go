package xmlnode

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/antchfx/xpath"
	"github.com/dgallion1/teiedit/internal/diag"
)

// AttachDetailErrors appends the messages of each detail error to the
// element its xpath addresses. Validation services address elements as
// /*:a[1]/*:b[2] (1-based index among same-named siblings); other XPath 1.0
// expressions are accepted too. Expressions that are malformed or match
// nothing are skipped without error.
func AttachDetailErrors(nodes []Node, details []diag.DetailError) {
	for _, d := range details {
		expr, ok := compileDetailPath(d.XPath)
		if !ok {
			continue
		}
		for _, el := range selectElements(nodes, expr) {
			el.Errors = append(el.Errors, d.Message())
		}
	}
}

var positionalStep = regexp.MustCompile(`^/\*:([^/\[\]\s'"]+)\[([1-9][0-9]*)\]`)

func compileDetailPath(p string) (*xpath.Expr, bool) {
	p = strings.TrimSpace(p)
	if p == "" {
		return nil, false
	}
	query := p
	if q, ok := translatePositional(p); ok {
		query = q
	}
	expr, err := xpath.Compile(query)
	if err != nil {
		return nil, false
	}
	return expr, true
}

// translatePositional rewrites the wildcard-namespace steps, which XPath
// 1.0 lacks, into local-name() predicates.
func translatePositional(p string) (string, bool) {
	var sb strings.Builder
	for rest := p; rest != ""; {
		m := positionalStep.FindStringSubmatch(rest)
		if m == nil {
			return "", false
		}
		fmt.Fprintf(&sb, "/*[local-name()='%s'][%s]", m[1], m[2])
		rest = rest[len(m[0]):]
	}
	return sb.String(), true
}

func selectElements(nodes []Node, expr *xpath.Expr) (out []*Element) {
	defer func() {
		if recover() != nil {
			out = nil
		}
	}()
	iter := expr.Select(newNavigator(nodes))
	for iter.MoveNext() {
		nav, ok := iter.Current().(*navigator)
		if !ok || nav.attr >= 0 {
			continue
		}
		if el, ok := nav.current().(*Element); ok {
			out = append(out, el)
		}
	}
	return out
}

// navigator implements xpath.NodeNavigator over a node list. The node tree
// has no parent links, so the position is kept as a stack of frames.
type navigator struct {
	root  []Node
	stack []frame
	attr  int
}

type frame struct {
	siblings []Node
	index    int
}

func newNavigator(root []Node) *navigator {
	return &navigator{root: root, attr: -1}
}

func (n *navigator) current() Node {
	if len(n.stack) == 0 {
		return nil
	}
	f := n.stack[len(n.stack)-1]
	return f.siblings[f.index]
}

func navigable(nd Node) bool {
	switch nd.(type) {
	case *Element, *Text, *CData, *Comment:
		return true
	}
	return false
}

func (n *navigator) NodeType() xpath.NodeType {
	if n.attr >= 0 {
		return xpath.AttributeNode
	}
	switch n.current().(type) {
	case nil:
		return xpath.RootNode
	case *Element:
		return xpath.ElementNode
	case *Comment:
		return xpath.CommentNode
	default:
		return xpath.TextNode
	}
}

func (n *navigator) name() string {
	el, ok := n.current().(*Element)
	if !ok {
		return ""
	}
	if n.attr >= 0 {
		return el.Attrs[n.attr].Name
	}
	return el.Tag
}

func (n *navigator) LocalName() string { return LocalName(n.name()) }

func (n *navigator) Prefix() string { return Prefix(n.name()) }

func (n *navigator) Value() string {
	switch cur := n.current().(type) {
	case nil:
		var sb strings.Builder
		for _, c := range n.root {
			sb.WriteString(TextContent(c))
		}
		return sb.String()
	case *Element:
		if n.attr >= 0 {
			return cur.Attrs[n.attr].Value
		}
		return TextContent(cur)
	case *Text:
		return cur.Text
	case *CData:
		return cur.Data
	case *Comment:
		return cur.Comment
	}
	return ""
}

func (n *navigator) Copy() xpath.NodeNavigator {
	c := *n
	c.stack = append([]frame(nil), n.stack...)
	return &c
}

func (n *navigator) MoveToRoot() {
	n.stack = nil
	n.attr = -1
}

func (n *navigator) MoveToParent() bool {
	if n.attr >= 0 {
		n.attr = -1
		return true
	}
	if len(n.stack) == 0 {
		return false
	}
	n.stack = n.stack[:len(n.stack)-1]
	return true
}

func (n *navigator) MoveToNextAttribute() bool {
	el, ok := n.current().(*Element)
	if !ok || n.attr+1 >= len(el.Attrs) {
		return false
	}
	n.attr++
	return true
}

func (n *navigator) children() []Node {
	if len(n.stack) == 0 {
		return n.root
	}
	if el, ok := n.current().(*Element); ok {
		return el.Children
	}
	return nil
}

func (n *navigator) MoveToChild() bool {
	if n.attr >= 0 {
		return false
	}
	kids := n.children()
	for i, k := range kids {
		if navigable(k) {
			n.stack = append(n.stack, frame{siblings: kids, index: i})
			return true
		}
	}
	return false
}

func (n *navigator) MoveToFirst() bool {
	if n.attr >= 0 || len(n.stack) == 0 {
		return false
	}
	f := &n.stack[len(n.stack)-1]
	for i := range f.siblings {
		if navigable(f.siblings[i]) {
			f.index = i
			return true
		}
	}
	return false
}

func (n *navigator) MoveToNext() bool {
	if n.attr >= 0 || len(n.stack) == 0 {
		return false
	}
	f := &n.stack[len(n.stack)-1]
	for i := f.index + 1; i < len(f.siblings); i++ {
		if navigable(f.siblings[i]) {
			f.index = i
			return true
		}
	}
	return false
}

func (n *navigator) MoveToPrevious() bool {
	if n.attr >= 0 || len(n.stack) == 0 {
		return false
	}
	f := &n.stack[len(n.stack)-1]
	for i := f.index - 1; i >= 0; i-- {
		if navigable(f.siblings[i]) {
			f.index = i
			return true
		}
	}
	return false
}

func (n *navigator) MoveTo(other xpath.NodeNavigator) bool {
	o, ok := other.(*navigator)
	if !ok || !sameRoot(n.root, o.root) {
		return false
	}
	n.stack = append([]frame(nil), o.stack...)
	n.attr = o.attr
	return true
}

func sameRoot(a, b []Node) bool {
	if len(a) != len(b) {
		return false
	}
	return len(a) == 0 || a[0] == b[0]
}
