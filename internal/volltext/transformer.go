package volltext

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dgallion1/teiedit/internal/diag"
	"github.com/dgallion1/teiedit/internal/doctree"
)

// Containers tells which elements hold running text.
type Containers interface {
	IsVolltext(tag string) bool
}

// Transformer is the document tree ⇄ document tree stage that turns the
// inline elements of running text into volltext nodes and back.
type Transformer struct {
	containers Containers
	newID      func() string
	log        *slog.Logger
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithIDFunc sets the generator for nodes that arrive without an id.
func WithIDFunc(fn func() string) Option {
	return func(t *Transformer) { t.newID = fn }
}

// WithLogger sets the logger used for inversion failures.
func WithLogger(log *slog.Logger) Option {
	return func(t *Transformer) { t.log = log }
}

func New(containers Containers, opts ...Option) *Transformer {
	t := &Transformer{
		containers: containers,
		newID:      uuid.NewString,
		log:        slog.Default(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Transform returns a copy of nodes in which every element inside a
// running-text container is a volltext node.
func (t *Transformer) Transform(nodes []doctree.Node) ([]doctree.Node, error) {
	out := make([]doctree.Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, t.structural(n))
	}
	return out, nil
}

func (t *Transformer) structural(n doctree.Node) doctree.Node {
	el, ok := n.(*doctree.Element)
	if !ok {
		return doctree.Clone(n)
	}
	shell := *el
	shell.Children = nil
	cp := doctree.Clone(&shell).(*doctree.Element)
	if t.containers.IsVolltext(el.Origin) {
		cp.Children = t.classifyChildren(el.Children)
		return cp
	}
	for _, c := range el.Children {
		cp.Children = append(cp.Children, t.structural(c))
	}
	return cp
}

func (t *Transformer) classifyChildren(nodes []doctree.Node) []doctree.Node {
	out := make([]doctree.Node, 0, len(nodes))
	for _, n := range nodes {
		switch n := n.(type) {
		case *doctree.Element:
			out = append(out, t.classify(n))
		default:
			out = append(out, doctree.Clone(n))
		}
	}
	return out
}

// classify moves the validation messages of el from the retained Box onto
// the volltext node.
func (t *Transformer) classify(el *doctree.Element) *doctree.Inline {
	n := t.volltext(el)
	n.Errors = diag.CloneMessages(el.Errors)
	if n.Box != nil {
		n.Box.Errors = nil
	}
	return n
}

// volltext dispatches on the closed kind set; unknown kinds are boxes.
func (t *Transformer) volltext(el *doctree.Element) *doctree.Inline {
	k := Classify(el)
	switch {
	case k == doctree.KindExternerLink:
		return t.link(el)
	case IsSubjectArea(k):
		return t.themenbereich(el, k)
	case k.Family() == doctree.FamilyReferenz:
		return t.normdatum(el, k)
	case k.Family() == doctree.FamilyFormatierung, k.Family() == doctree.FamilyBlock:
		return t.span(el, k)
	default:
		return t.box(el)
	}
}

func (t *Transformer) idFor(el *doctree.Element) string {
	if el.ID != "" {
		return el.ID
	}
	return t.newID()
}

// Invert turns every volltext node back into an element. A node that fails
// is logged, reported and left out.
func (t *Transformer) Invert(nodes []doctree.Node) ([]doctree.Node, diag.Errors) {
	return t.invertChildren(nodes)
}

func (t *Transformer) invertChildren(nodes []doctree.Node) ([]doctree.Node, diag.Errors) {
	var errs diag.Errors
	out := make([]doctree.Node, 0, len(nodes))
	for _, n := range nodes {
		switch n := n.(type) {
		case *doctree.Inline:
			el, nodeErrs, err := t.invertInline(n)
			errs = append(errs, nodeErrs...)
			if err != nil {
				t.log.Warn("volltext inversion failed", "kind", n.Kind, "id", n.ID, "error", err)
				errs = append(errs, diag.Transformation(string(n.Kind), err))
				continue
			}
			el.Errors = diag.CloneMessages(n.Errors)
			out = append(out, el)
		case *doctree.Element:
			shell := *n
			shell.Children = nil
			cp := doctree.Clone(&shell).(*doctree.Element)
			children, childErrs := t.invertChildren(n.Children)
			errs = append(errs, childErrs...)
			cp.Children = children
			out = append(out, cp)
		default:
			out = append(out, doctree.Clone(n))
		}
	}
	return out, errs
}

func (t *Transformer) invertInline(n *doctree.Inline) (el *doctree.Element, errs diag.Errors, err error) {
	defer func() {
		if r := recover(); r != nil {
			el, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()

	if !n.Kind.Valid() {
		return nil, nil, fmt.Errorf("unknown volltext kind %q", n.Kind)
	}
	switch {
	case n.Kind == doctree.KindExternerLink:
		return t.invertLink(n), nil, nil
	case IsSubjectArea(n.Kind):
		el, err := t.invertThemenbereich(n)
		return el, nil, err
	case n.Kind.Family() == doctree.FamilyReferenz:
		el, err := t.invertNormdatum(n)
		return el, nil, err
	case n.Kind.Family() == doctree.FamilyFormatierung, n.Kind.Family() == doctree.FamilyBlock:
		return t.invertSpan(n)
	default:
		el, warn := t.invertBox(n)
		if warn != nil {
			t.log.Warn("volltext node written as generic span", "kind", n.Kind, "id", n.ID)
			errs = append(errs, *warn)
		}
		return el, errs, nil
	}
}
