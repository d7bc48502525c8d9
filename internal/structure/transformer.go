// Package structure converts between the XML node tree and the editable
// document tree, deriving the bookkeeping fields the editor relies on.
package structure

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/dgallion1/teiedit/internal/diag"
	"github.com/dgallion1/teiedit/internal/doctree"
	"github.com/dgallion1/teiedit/internal/xmlnode"
)

var (
	ErrMissingOrigin = errors.New("element has no data_origin")
	ErrBareAttribute = errors.New("attribute lacks data_ prefix")
	ErrInlineNode    = errors.New("volltext node reached structural inversion")
)

// partTag gets its type attribute folded into its path segment so sibling
// parts of different types stay distinguishable.
const partTag = "msPart"

// Transformer is the XML node tree ⇄ document tree stage.
type Transformer struct {
	tables *Tables
	newID  func() string
	log    *slog.Logger
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithIDFunc replaces the id generator, mainly for deterministic tests.
func WithIDFunc(fn func() string) Option {
	return func(t *Transformer) { t.newID = fn }
}

// WithLogger sets the logger used for inversion failures.
func WithLogger(log *slog.Logger) Option {
	return func(t *Transformer) { t.log = log }
}

// New returns a Transformer over tables. A nil tables uses DefaultTables.
func New(tables *Tables, opts ...Option) *Transformer {
	if tables == nil {
		tables = DefaultTables()
	}
	t := &Transformer{
		tables: tables,
		newID:  uuid.NewString,
		log:    slog.Default(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Tables returns the lookup tables in use.
func (t *Transformer) Tables() *Tables { return t.tables }

// scope is what a child inherits from its parent during transform.
type scope struct {
	path   string
	region string
	level  int
	space  spaceMode
}

// Transform builds the document tree. Top-level text and all comments,
// doctypes and processing instructions are dropped.
func (t *Transformer) Transform(nodes []xmlnode.Node) ([]doctree.Node, error) {
	var out []doctree.Node
	root := scope{level: 1}
	for _, n := range nodes {
		if el, ok := n.(*xmlnode.Element); ok {
			out = append(out, t.element(el, root))
		}
	}
	return out, nil
}

func (t *Transformer) element(el *xmlnode.Element, sc scope) *doctree.Element {
	typ, _ := el.Attr("type")

	segment := el.Tag
	if el.Tag == partTag {
		segment += typ
	}
	path := segment
	if sc.path != "" {
		path = sc.path + "-" + segment
	}
	region := sc.region
	if t.tables.EstablishesRegion(el.Tag) {
		region = el.Tag + typ
	}

	out := &doctree.Element{
		Origin:    el.Tag,
		ID:        t.newID(),
		Component: t.tables.Component(el.Tag, typ),
		Region:    region,
		Path:      path,
		Level:     sc.level,
		Errors:    diag.CloneMessages(el.Errors),
	}
	if len(el.Attrs) > 0 {
		out.Attrs = make([]doctree.Attr, len(el.Attrs))
		for i, a := range el.Attrs {
			out.Attrs[i] = doctree.Attr{Name: doctree.AttrPrefix + a.Name, Value: a.Value}
		}
	}

	child := scope{
		path:   path,
		region: region,
		level:  sc.level + 1,
		space:  t.tables.modeFor(el, sc.space),
	}
	kids := contentChildren(el.Children)
	for i, c := range kids {
		switch c := c.(type) {
		case *xmlnode.Element:
			out.Children = append(out.Children, t.element(c, child))
		case *xmlnode.Text:
			text := c.Text
			switch child.space {
			case spaceStrip:
				continue
			case spaceCollapse:
				text = normalizeText(text, i, len(kids))
				if text == "" {
					continue
				}
			}
			out.Children = append(out.Children, &doctree.Text{Text: text})
		}
	}
	if len(out.Children) == 0 {
		out.Children = []doctree.Node{&doctree.Text{}}
	}
	return out
}

// contentChildren keeps elements and text, turning CDATA into text and
// merging text runs left adjacent by dropped nodes.
func contentChildren(nodes []xmlnode.Node) []xmlnode.Node {
	out := make([]xmlnode.Node, 0, len(nodes))
	appendText := func(s string) {
		if last := len(out) - 1; last >= 0 {
			if prev, ok := out[last].(*xmlnode.Text); ok {
				out[last] = &xmlnode.Text{Text: prev.Text + s}
				return
			}
		}
		out = append(out, &xmlnode.Text{Text: s})
	}
	for _, n := range nodes {
		switch n := n.(type) {
		case *xmlnode.Element:
			out = append(out, n)
		case *xmlnode.Text:
			appendText(n.Text)
		case *xmlnode.CData:
			appendText(n.Data)
		}
	}
	return out
}

// Invert rebuilds the XML node tree. A node that cannot be inverted is
// logged, reported as a TEITransformationError and left out; its siblings
// are unaffected.
func (t *Transformer) Invert(nodes []doctree.Node) ([]xmlnode.Node, diag.Errors) {
	var errs diag.Errors
	out := t.invertAll(nodes, &errs)
	return out, errs
}

func (t *Transformer) invertAll(nodes []doctree.Node, errs *diag.Errors) []xmlnode.Node {
	var out []xmlnode.Node
	for _, n := range nodes {
		x, err := t.invertNode(n, errs)
		if err != nil {
			tag := nodeTag(n)
			t.log.Warn("structural inversion failed", "tag", tag, "id", nodeID(n), "error", err)
			*errs = append(*errs, diag.Transformation(tag, err))
			continue
		}
		if x != nil {
			out = append(out, x)
		}
	}
	return out
}

func (t *Transformer) invertNode(n doctree.Node, errs *diag.Errors) (x xmlnode.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			x, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()

	switch n := n.(type) {
	case *doctree.Text:
		if n.Text == "" {
			return nil, nil
		}
		return &xmlnode.Text{Text: n.Text}, nil
	case *doctree.Inline:
		return nil, fmt.Errorf("%w: %s", ErrInlineNode, n.Kind)
	case *doctree.Element:
		if n.Origin == "" {
			return nil, ErrMissingOrigin
		}
		el := &xmlnode.Element{Tag: n.Origin, Errors: diag.CloneMessages(n.Errors)}
		for _, a := range n.Attrs {
			name, ok := strings.CutPrefix(a.Name, doctree.AttrPrefix)
			if !ok || name == "" {
				return nil, fmt.Errorf("%w: %q", ErrBareAttribute, a.Name)
			}
			el.Attrs = append(el.Attrs, xmlnode.Attr{Name: name, Value: a.Value})
		}
		el.Children = t.invertAll(n.Children, errs)
		return el, nil
	case nil:
		return nil, errors.New("nil node")
	}
	return nil, fmt.Errorf("unsupported node %T", n)
}

func nodeTag(n doctree.Node) string {
	switch n := n.(type) {
	case *doctree.Element:
		return n.Origin
	case *doctree.Inline:
		return string(n.Kind)
	}
	return ""
}

func nodeID(n doctree.Node) string {
	switch n := n.(type) {
	case *doctree.Element:
		return n.ID
	case *doctree.Inline:
		return n.ID
	}
	return ""
}
