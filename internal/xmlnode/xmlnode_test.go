package xmlnode

import (
	"errors"
	"reflect"
	"testing"

	"github.com/dgallion1/teiedit/internal/diag"
)

func TestParse_ElementTree(t *testing.T) {
	nodes, err := Parse(`<hello a="1"><world b="1">hi</world></hello>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Node{
		&Element{
			Tag:   "hello",
			Attrs: []Attr{{Name: "a", Value: "1"}},
			Children: []Node{
				&Element{
					Tag:      "world",
					Attrs:    []Attr{{Name: "b", Value: "1"}},
					Children: []Node{&Text{Text: "hi"}},
				},
			},
		},
	}
	if !reflect.DeepEqual(nodes, want) {
		t.Errorf("expected %#v, got %#v", want, nodes)
	}
}

func TestTransformer_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"nested", `<hello a="1"><world b="1">hi</world></hello>`, `<hello a="1"><world b="1">hi</world></hello>`},
		{"empty element", `<a></a>`, `<a/>`},
		{"whitespace only child", `<a>  </a>`, `<a/>`},
		{"self closing", `<a b="x"/>`, `<a b="x"/>`},
		{"mixed content", `<p>one <hi rend="sup">two</hi> three</p>`, `<p>one <hi rend="sup">two</hi> three</p>`},
		{"escaping", `<a t="1 &lt; 2">x &amp; y &lt; z</a>`, `<a t="1 &lt; 2">x &amp; y &lt; z</a>`},
		{"prefixed attributes", `<a xml:test="4" b="2"/>`, `<a xml:test="4" b="2"/>`},
		{"comment and cdata", `<TEI><!--c--><p><![CDATA[a<b]]></p></TEI>`, `<TEI><!--c--><p><![CDATA[a<b]]></p></TEI>`},
		{"doctype system", `<!DOCTYPE TEI SYSTEM "tei.dtd"><TEI/>`, `<!DOCTYPE TEI SYSTEM "tei.dtd"><TEI/>`},
		{"doctype public", `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0//EN" "x.dtd"><html/>`, `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0//EN" "x.dtd"><html/>`},
	}

	var tr Transformer
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes, err := tr.Transform(Source{Data: tt.input})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			out, errs := tr.Invert(nodes)
			if len(errs) != 0 {
				t.Fatalf("expected no serialization errors, got %v", errs)
			}
			if out.Data != tt.want {
				t.Errorf("expected %q, got %q", tt.want, out.Data)
			}
		})
	}
}

func TestParse_Doctype(t *testing.T) {
	nodes, err := Parse(`<!DOCTYPE html PUBLIC "pub" "sys"><html/>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dt, ok := nodes[0].(*Doctype)
	if !ok {
		t.Fatalf("expected *Doctype, got %T", nodes[0])
	}
	if dt.Name != "html" || dt.PublicID != "pub" || dt.SystemID != "sys" {
		t.Errorf("unexpected doctype %+v", dt)
	}
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse(`<a b=></a>`)
	if err == nil {
		t.Fatal("expected error for malformed xml")
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Errorf("expected *ParseError, got %T", err)
	}
}

func TestRoundTrip_Idempotent(t *testing.T) {
	inputs := []string{
		`<a>  <b> x </b>  </a>`,
		`<TEI><teiHeader/><!--x--><text><body><p>Hello <persName ref="p1">World</persName></p></body></text></TEI>`,
		`<a>   </a>`,
	}
	var tr Transformer
	for _, in := range inputs {
		once := cycle(t, tr, in)
		twice := cycle(t, tr, once)
		if once != twice {
			t.Errorf("expected idempotent cycle for %q: once=%q twice=%q", in, once, twice)
		}
	}
}

func cycle(t *testing.T, tr Transformer, in string) string {
	t.Helper()
	nodes, err := tr.Transform(Source{Data: in})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, _ := tr.Invert(nodes)
	return out.Data
}

func TestSerialize_InvalidNodeIsReported(t *testing.T) {
	nodes := []Node{
		&Element{Tag: "ok", Children: []Node{
			&Element{Tag: "bad tag"},
			&Text{Text: "kept"},
		}},
	}
	out, errs := Serialize(nodes)
	if out != "<ok>kept</ok>" {
		t.Errorf("expected %q, got %q", "<ok>kept</ok>", out)
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
	if errs[0].Code != diag.CodeTransformation || errs[0].Tag != "bad tag" {
		t.Errorf("unexpected error %+v", errs[0])
	}
}

func TestAttachDetailErrors(t *testing.T) {
	detail := func(xp string) diag.DetailError {
		return diag.DetailError{
			XPath: xp,
			Diagnostics: []diag.Diagnostic{
				{LanguageCode: "de", Message: "Fehler"},
				{LanguageCode: "EN", Message: "error"},
			},
		}
	}

	t.Run("root element", func(t *testing.T) {
		nodes, _ := Parse(`<hello><world/></hello>`)
		AttachDetailErrors(nodes, []diag.DetailError{detail("/*:hello[1]")})
		root := nodes[0].(*Element)
		if len(root.Errors) != 1 {
			t.Fatalf("expected 1 error on root, got %d", len(root.Errors))
		}
		if root.Errors[0]["en"] != "error" || root.Errors[0]["de"] != "Fehler" {
			t.Errorf("unexpected message %v", root.Errors[0])
		}
		if len(root.Children[0].(*Element).Errors) != 0 {
			t.Error("expected child untouched")
		}
	})

	t.Run("same-tag sibling index", func(t *testing.T) {
		nodes, _ := Parse(`<r><b/><c/><b/></r>`)
		AttachDetailErrors(nodes, []diag.DetailError{detail("/*:r[1]/*:b[2]")})
		kids := nodes[0].(*Element).Children
		if len(kids[0].(*Element).Errors) != 0 || len(kids[1].(*Element).Errors) != 0 {
			t.Error("expected only the second b to carry errors")
		}
		if len(kids[2].(*Element).Errors) != 1 {
			t.Errorf("expected 1 error on second b, got %d", len(kids[2].(*Element).Errors))
		}
	})

	t.Run("ignored paths", func(t *testing.T) {
		for _, xp := range []string{"/*:hello[2]", "/*:hello[", "", "/*:nope[1]", "///"} {
			nodes, _ := Parse(`<hello/>`)
			AttachDetailErrors(nodes, []diag.DetailError{detail(xp)})
			if n := len(nodes[0].(*Element).Errors); n != 0 {
				t.Errorf("xpath %q: expected no errors, got %d", xp, n)
			}
		}
	})
}

func TestClone_IsDeep(t *testing.T) {
	orig := &Element{Tag: "a", Attrs: []Attr{{Name: "x", Value: "1"}}, Children: []Node{&Text{Text: "t"}}}
	c := Clone(orig).(*Element)
	c.Attrs[0].Value = "2"
	c.Children[0].(*Text).Text = "changed"
	if orig.Attrs[0].Value != "1" || orig.Children[0].(*Text).Text != "t" {
		t.Error("expected clone to be independent of the original")
	}
}
