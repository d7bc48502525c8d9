// Package teiheader reads identifying metadata out of a TEI document.
package teiheader

import (
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
)

// Namespace is the TEI P5 namespace.
const Namespace = "http://www.tei-c.org/ns/1.0"

// Meta identifies a manuscript description.
type Meta struct {
	IsTEI      bool   `json:"isTEI"`
	Settlement string `json:"settlement,omitempty"`
	Repository string `json:"repository,omitempty"`
	Idno       string `json:"idno,omitempty"`
	Title      string `json:"title,omitempty"`
	Language   string `json:"language,omitempty"`
}

// el builds a namespace-agnostic path: el("a", "b") is
// /*[local-name()='a']/*[local-name()='b'] prefixed with //.
func el(steps ...string) string {
	var sb strings.Builder
	for i, s := range steps {
		if i == 0 {
			sb.WriteString("//")
		} else {
			sb.WriteString("/")
		}
		fmt.Fprintf(&sb, "*[local-name()='%s']", s)
	}
	return sb.String()
}

var (
	msIdentifier = el("msDesc", "msIdentifier")
	titleQueries = []string{
		el("msDesc", "head", "title"),
		el("titleStmt", "title"),
	}
)

// Extract parses data and collects the metadata. Fields that are absent
// stay empty.
func Extract(data string) (Meta, error) {
	doc, err := xmlquery.Parse(strings.NewReader(data))
	if err != nil {
		return Meta{}, fmt.Errorf("parse tei header: %w", err)
	}

	var m Meta
	root := firstElement(doc)
	if root == nil {
		return m, nil
	}
	m.IsTEI = root.Data == "TEI" || root.NamespaceURI == Namespace
	m.Language = root.SelectAttr("xml:lang")
	if m.Language == "" {
		m.Language = root.SelectAttr("lang")
	}

	if ident := xmlquery.FindOne(doc, msIdentifier); ident != nil {
		m.Settlement = childText(ident, "settlement")
		m.Repository = childText(ident, "repository")
		m.Idno = childText(ident, "idno")
	}
	for _, q := range titleQueries {
		if n := xmlquery.FindOne(doc, q); n != nil {
			if t := collapse(n.InnerText()); t != "" {
				m.Title = t
				break
			}
		}
	}
	if lang := xmlquery.FindOne(doc, el("msContents", "textLang")); lang != nil {
		if code := lang.SelectAttr("mainLang"); code != "" {
			m.Language = code
		}
	}
	return m, nil
}

// Label is a short human-readable reference such as "Berlin, SBB, Ms. 1".
func (m Meta) Label() string {
	var parts []string
	for _, p := range []string{m.Settlement, m.Repository, m.Idno} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Map flattens the non-empty fields for the document service.
func (m Meta) Map() map[string]string {
	out := map[string]string{}
	set := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	set("settlement", m.Settlement)
	set("repository", m.Repository)
	set("idno", m.Idno)
	set("title", m.Title)
	set("language", m.Language)
	return out
}

func firstElement(doc *xmlquery.Node) *xmlquery.Node {
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			return c
		}
	}
	return nil
}

func childText(n *xmlquery.Node, name string) string {
	if c := xmlquery.FindOne(n, fmt.Sprintf("*[local-name()='%s']", name)); c != nil {
		return collapse(c.InnerText())
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
