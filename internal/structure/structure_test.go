package structure

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"testing"

	"github.com/dgallion1/teiedit/internal/diag"
	"github.com/dgallion1/teiedit/internal/doctree"
	"github.com/dgallion1/teiedit/internal/xmlnode"
)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id%d", n)
	}
}

func newTestTransformer() *Transformer {
	return New(nil, WithIDFunc(seqIDs()), WithLogger(slog.New(slog.DiscardHandler)))
}

func mustParse(t *testing.T, s string) []xmlnode.Node {
	t.Helper()
	nodes, err := xmlnode.Parse(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return nodes
}

func roundTrip(t *testing.T, tr *Transformer, s string) string {
	t.Helper()
	doc, err := tr.Transform(mustParse(t, s))
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	back, errs := tr.Invert(doc)
	if len(errs) > 0 {
		t.Fatalf("unexpected invert errors: %v", errs)
	}
	out, errs := xmlnode.Serialize(back)
	if len(errs) > 0 {
		t.Fatalf("unexpected serialize errors: %v", errs)
	}
	return out
}

func TestTransform_AttributeRenaming(t *testing.T) {
	tr := newTestTransformer()
	doc, _ := tr.Transform(mustParse(t, `<e a="1" b="2" xml:test="4"/>`))
	if len(doc) != 1 {
		t.Fatalf("expected 1 node, got %d", len(doc))
	}
	el := doc[0].(*doctree.Element)
	want := []doctree.Attr{
		{Name: "data_a", Value: "1"},
		{Name: "data_b", Value: "2"},
		{Name: "data_xml:test", Value: "4"},
	}
	if !reflect.DeepEqual(el.Attrs, want) {
		t.Errorf("expected %v, got %v", want, el.Attrs)
	}

	back, errs := tr.Invert(doc)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	got := back[0].(*xmlnode.Element).Attrs
	wantX := []xmlnode.Attr{{Name: "a", Value: "1"}, {Name: "b", Value: "2"}, {Name: "xml:test", Value: "4"}}
	if !reflect.DeepEqual(got, wantX) {
		t.Errorf("expected %v, got %v", wantX, got)
	}
}

func TestTransform_Levels(t *testing.T) {
	tr := newTestTransformer()
	doc, _ := tr.Transform(mustParse(t, `<a><b/><c/></a>`))
	a := doc[0].(*doctree.Element)
	b := a.Children[0].(*doctree.Element)
	c := a.Children[1].(*doctree.Element)
	if a.Level != 1 || b.Level != 2 || c.Level != 2 {
		t.Errorf("expected levels 1,2,2, got %d,%d,%d", a.Level, b.Level, c.Level)
	}
	if a.ID == b.ID || b.ID == c.ID {
		t.Errorf("expected distinct ids, got %q %q %q", a.ID, b.ID, c.ID)
	}
}

func TestTransform_PathRegionComponent(t *testing.T) {
	tr := newTestTransformer()
	doc, _ := tr.Transform(mustParse(t,
		`<msDesc><msPart type="fragment"><head><note>x</note></head></msPart><msPart type="booklet"/></msDesc>`))
	desc := doc[0].(*doctree.Element)
	frag := desc.Children[0].(*doctree.Element)
	head := frag.Children[0].(*doctree.Element)
	note := head.Children[0].(*doctree.Element)
	booklet := desc.Children[1].(*doctree.Element)

	tests := []struct {
		el                      *doctree.Element
		path, region, component string
	}{
		{desc, "msDesc", "msDesc", "msDesc"},
		{frag, "msDesc-msPartfragment", "msPartfragment", "fragment"},
		{head, "msDesc-msPartfragment-head", "msPartfragment", "kopf"},
		{note, "msDesc-msPartfragment-head-note", "msPartfragment", ""},
		{booklet, "msDesc-msPartbooklet", "msPartbooklet", "faszikel"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if tt.el.Path != tt.path {
				t.Errorf("expected path %q, got %q", tt.path, tt.el.Path)
			}
			if tt.el.Region != tt.region {
				t.Errorf("expected region %q, got %q", tt.region, tt.el.Region)
			}
			if tt.el.Component != tt.component {
				t.Errorf("expected component %q, got %q", tt.component, tt.el.Component)
			}
		})
	}
}

func TestTransform_Whitespace(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"collapse", `<p>  hello   world  </p>`, []string{"hello world"}},
		{"preserve", "<p xml:space=\"preserve\">Hello\n  World\n</p>", []string{"Hello\n  World\n"}},
		{"strip", "<msDesc>\n  <head>x</head>\n</msDesc>", nil},
		{"mixed", "<p> a  <hi>b</hi>  c </p>", []string{"a ", " c"}},
		{"empty", `<p>   </p>`, []string{""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTestTransformer()
			doc, _ := tr.Transform(mustParse(t, tt.input))
			var got []string
			for _, c := range doc[0].(*doctree.Element).Children {
				if txt, ok := c.(*doctree.Text); ok {
					got = append(got, txt.Text)
				}
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestTransform_PreserveInherited(t *testing.T) {
	tr := newTestTransformer()
	doc, _ := tr.Transform(mustParse(t, "<msDesc xml:space=\"preserve\"> <p>  x  </p></msDesc>"))
	desc := doc[0].(*doctree.Element)
	if txt, ok := desc.Children[0].(*doctree.Text); !ok || txt.Text != " " {
		t.Errorf("expected preserved leading space, got %#v", desc.Children[0])
	}
	p := desc.Children[1].(*doctree.Element)
	if got := doctree.TextContent(p); got != "  x  " {
		t.Errorf("expected %q, got %q", "  x  ", got)
	}
}

func TestTransform_EmptyElementGetsTextChild(t *testing.T) {
	tr := newTestTransformer()
	doc, _ := tr.Transform(mustParse(t, `<a/>`))
	el := doc[0].(*doctree.Element)
	if len(el.Children) != 1 {
		t.Fatalf("expected 1 child, got %d", len(el.Children))
	}
	if txt, ok := el.Children[0].(*doctree.Text); !ok || txt.Text != "" {
		t.Errorf("expected empty text child, got %#v", el.Children[0])
	}
	if got := roundTrip(t, newTestTransformer(), `<a/>`); got != `<a/>` {
		t.Errorf("expected %q, got %q", `<a/>`, got)
	}
}

func TestTransform_CommentRemovalIsOneWay(t *testing.T) {
	tr := newTestTransformer()
	doc, _ := tr.Transform(mustParse(t, `<hello>world</hello><!--x-->`))
	if len(doc) != 1 {
		t.Fatalf("expected 1 node, got %d", len(doc))
	}
	if el := doc[0].(*doctree.Element); el.Origin != "hello" {
		t.Errorf("expected hello, got %q", el.Origin)
	}
	if got := roundTrip(t, tr, `<hello>world</hello><!--x-->`); got != `<hello>world</hello>` {
		t.Errorf("expected %q, got %q", `<hello>world</hello>`, got)
	}
}

func TestTransform_CDataBecomesText(t *testing.T) {
	tr := newTestTransformer()
	doc, _ := tr.Transform(mustParse(t, `<p>a<![CDATA[b]]>c</p>`))
	el := doc[0].(*doctree.Element)
	if len(el.Children) != 1 {
		t.Fatalf("expected merged text, got %d children", len(el.Children))
	}
	if got := doctree.TextContent(el); got != "abc" {
		t.Errorf("expected %q, got %q", "abc", got)
	}
}

func TestTransform_RoundTrip(t *testing.T) {
	inputs := []string{
		`<hello a="1"><world b="1">hi</world></hello>`,
		`<p>Text <persName ref="x">Name</persName> more</p>`,
		`<TEI><teiHeader><fileDesc><titleStmt><title>T</title></titleStmt></fileDesc></teiHeader></TEI>`,
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			if got := roundTrip(t, newTestTransformer(), in); got != in {
				t.Errorf("expected %q, got %q", in, got)
			}
		})
	}
}

func TestInvert_PerNodeFailure(t *testing.T) {
	tr := newTestTransformer()
	doc := []doctree.Node{
		&doctree.Element{
			Origin: "p",
			Children: []doctree.Node{
				&doctree.Text{Text: "keep"},
				&doctree.Element{Origin: ""},
				&doctree.Element{Origin: "hi", Attrs: []doctree.Attr{{Name: "rend", Value: "x"}}},
				&doctree.Inline{Kind: doctree.KindPerson},
			},
		},
	}
	back, errs := tr.Invert(doc)
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(errs), errs)
	}
	for _, e := range errs {
		if e.Code != diag.CodeTransformation || e.Level != diag.LevelError {
			t.Errorf("expected error-level TEITransformationError, got %+v", e)
		}
	}
	out, _ := xmlnode.Serialize(back)
	if out != `<p>keep</p>` {
		t.Errorf("expected %q, got %q", `<p>keep</p>`, out)
	}
}

func TestInvert_SentinelErrors(t *testing.T) {
	tr := newTestTransformer()
	var errs diag.Errors
	_, err := tr.invertNode(&doctree.Element{}, &errs)
	if !errors.Is(err, ErrMissingOrigin) {
		t.Errorf("expected ErrMissingOrigin, got %v", err)
	}
	_, err = tr.invertNode(&doctree.Inline{Kind: doctree.KindBox}, &errs)
	if !errors.Is(err, ErrInlineNode) {
		t.Errorf("expected ErrInlineNode, got %v", err)
	}
}

func TestTables_ComponentLookupOrder(t *testing.T) {
	tables := NewTables(TableConfig{Components: map[string]string{"note": "n", "notetext": "nt"}})
	if got := tables.Component("note", "text"); got != "nt" {
		t.Errorf("expected nt, got %q", got)
	}
	if got := tables.Component("note", "other"); got != "n" {
		t.Errorf("expected n, got %q", got)
	}
	if got := tables.Component("x", ""); got != "" {
		t.Errorf("expected empty component, got %q", got)
	}
}
