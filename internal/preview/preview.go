// Package preview renders a document tree as read-only HTML.
package preview

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dgallion1/teiedit/internal/diag"
	"github.com/dgallion1/teiedit/internal/doctree"
)

// LabelResolver turns a normdata id into a display label.
type LabelResolver interface {
	Label(ctx context.Context, id string) (string, error)
}

// Renderer builds HTML from document trees. Labels may be nil, in which
// case references show only their text.
type Renderer struct {
	labels LabelResolver
	log    *slog.Logger
}

func New(labels LabelResolver, log *slog.Logger) *Renderer {
	if log == nil {
		log = slog.Default()
	}
	return &Renderer{labels: labels, log: log}
}

// Options controls one rendering.
type Options struct {
	// Languages lists preferred languages for diagnostics, best first.
	Languages []string
	// Containers reports which elements hold running text; they render
	// as <p>.
	Containers interface{ IsVolltext(tag string) bool }
}

// Render writes doc as an HTML fragment wrapped in an <article>.
func (r *Renderer) Render(ctx context.Context, w io.Writer, doc []doctree.Node, opts Options) error {
	root := elem(atom.Article, "tei-document")
	for _, n := range doc {
		if c := r.node(ctx, n, opts); c != nil {
			root.AppendChild(c)
		}
	}
	if err := html.Render(w, root); err != nil {
		return fmt.Errorf("render preview: %w", err)
	}
	return nil
}

func (r *Renderer) node(ctx context.Context, n doctree.Node, opts Options) *html.Node {
	switch n := n.(type) {
	case *doctree.Text:
		if n.Text == "" {
			return nil
		}
		return &html.Node{Type: html.TextNode, Data: n.Text}
	case *doctree.Element:
		return r.element(ctx, n, opts)
	case *doctree.Inline:
		return r.inline(ctx, n, opts)
	}
	return nil
}

func (r *Renderer) element(ctx context.Context, el *doctree.Element, opts Options) *html.Node {
	a := atom.Div
	if opts.Containers != nil && opts.Containers.IsVolltext(el.Origin) {
		a = atom.P
	}
	classes := []string{"tei-" + el.Origin}
	if el.Region != "" {
		classes = append(classes, "region-"+el.Region)
	}
	if el.Component != "" {
		classes = append(classes, "component-"+el.Component)
	}
	out := elem(a, classes...)
	setAttr(out, "data-id", el.ID)
	setAttr(out, "data-path", el.Path)
	r.markErrors(out, el.Errors, opts)
	for _, c := range el.Children {
		if h := r.node(ctx, c, opts); h != nil {
			out.AppendChild(h)
		}
	}
	return out
}

func (r *Renderer) markErrors(out *html.Node, errs []diag.DiagnosticMessage, opts Options) {
	if len(errs) == 0 {
		return
	}
	var msgs []string
	for _, m := range errs {
		if _, text := m.Localize(opts.Languages...); text != "" {
			msgs = append(msgs, text)
		}
	}
	addClass(out, "has-error")
	setAttr(out, "title", strings.Join(msgs, "\n"))
}

func (r *Renderer) inline(ctx context.Context, n *doctree.Inline, opts Options) *html.Node {
	var out *html.Node
	switch n.Kind {
	case doctree.KindExternerLink:
		out = elem(atom.A)
		setAttr(out, "href", n.Target)
	case doctree.KindSuperskript:
		out = elem(atom.Sup)
	case doctree.KindSubskript:
		out = elem(atom.Sub)
	case doctree.KindZitat, doctree.KindIncipit, doctree.KindExplicit:
		out = elem(atom.Q)
	case doctree.KindTitel:
		out = elem(atom.Cite)
	case doctree.KindAbsatz:
		out = elem(atom.P)
	default:
		out = elem(atom.Span)
	}
	addClass(out, "volltext", "volltext-"+string(n.Kind), "family-"+string(n.Kind.Family()))
	setAttr(out, "data-id", n.ID)

	if n.Ref != "" {
		setAttr(out, "data-ref", n.Ref)
		if label := r.label(ctx, n.Ref); label != "" {
			setAttr(out, "title", label)
		}
	}
	if len(n.Auswahl) > 0 {
		ids := make([]string, len(n.Auswahl))
		for i, t := range n.Auswahl {
			ids[i] = t.ID
		}
		setAttr(out, "data-terms", strings.Join(ids, " "))
	}
	r.markErrors(out, n.Errors, opts)

	if len(n.Children) == 0 {
		if n.Content != "" {
			out.AppendChild(&html.Node{Type: html.TextNode, Data: n.Content})
		}
		return out
	}
	for _, c := range n.Children {
		if h := r.node(ctx, c, opts); h != nil {
			out.AppendChild(h)
		}
	}
	return out
}

// label resolves quietly; a missing label never breaks the preview.
func (r *Renderer) label(ctx context.Context, id string) string {
	if r.labels == nil {
		return ""
	}
	label, err := r.labels.Label(ctx, id)
	if err != nil {
		r.log.Debug("normdata label unavailable", "ref", id, "error", err)
		return ""
	}
	return label
}

func elem(a atom.Atom, classes ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	addClass(n, classes...)
	return n
}

func addClass(n *html.Node, classes ...string) {
	if len(classes) == 0 {
		return
	}
	for i, a := range n.Attr {
		if a.Key == "class" {
			n.Attr[i].Val = a.Val + " " + strings.Join(classes, " ")
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: strings.Join(classes, " ")})
}

func setAttr(n *html.Node, key, val string) {
	if val == "" {
		return
	}
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
