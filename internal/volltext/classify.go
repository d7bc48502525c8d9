// Package volltext classifies inline elements of running text into the
// closed set of volltext kinds and converts them back to plain elements.
package volltext

import (
	"strings"

	"github.com/dgallion1/teiedit/internal/doctree"
)

// subjectAreaType is the ref type that marks a subject-area tag.
const subjectAreaType = "subjectArea"

// notations maps each subject-area kind to the indexName of its index.
var notations = []struct {
	kind      doctree.Kind
	indexName string
}{
	{doctree.KindEinband, "BNDG"},
	{doctree.KindBuchschmuck, "DECO"},
	{doctree.KindMusiknotation, "MUSI"},
	{doctree.KindSchrift, "SCRI"},
}

// IndexName returns the notation constant for a subject-area kind.
func IndexName(k doctree.Kind) (string, bool) {
	for _, n := range notations {
		if n.kind == k {
			return n.indexName, true
		}
	}
	return "", false
}

func kindForIndex(indexName string) (doctree.Kind, bool) {
	for _, n := range notations {
		if n.indexName == indexName {
			return n.kind, true
		}
	}
	return "", false
}

// IsSubjectArea reports whether k is one of the subject-area kinds.
func IsSubjectArea(k doctree.Kind) bool {
	_, ok := IndexName(k)
	return ok
}

// rule is one classification step. ok=false lets the next rule for the
// same tag run; kind "" with ok=true ends classification as box.
type rule struct {
	tag   string
	match func(el *doctree.Element) (doctree.Kind, bool)
}

func has(name string) func(*doctree.Element) bool {
	return func(el *doctree.Element) bool {
		_, ok := el.Attr(name)
		return ok
	}
}

func when(cond func(*doctree.Element) bool, k doctree.Kind) func(*doctree.Element) (doctree.Kind, bool) {
	return func(el *doctree.Element) (doctree.Kind, bool) {
		if cond(el) {
			return k, true
		}
		return "", false
	}
}

// rules are evaluated top to bottom, first match wins.
var rules = []rule{
	{"persName", when(has("ref"), doctree.KindPerson)},
	{"persName", when(func(el *doctree.Element) bool {
		return strings.Contains(el.AttrValue("role"), "author")
	}, doctree.KindAutor)},
	{"orgName", when(has("ref"), doctree.KindKoerperschaft)},
	{"placeName", when(has("ref"), doctree.KindOrt)},
	{"quote", func(el *doctree.Element) (doctree.Kind, bool) {
		switch el.AttrValue("type") {
		case "incipit":
			return doctree.KindIncipit, true
		case "explicit":
			return doctree.KindExplicit, true
		}
		return doctree.KindZitat, true
	}},
	{"ref", func(el *doctree.Element) (doctree.Kind, bool) {
		if el.AttrValue("type") != subjectAreaType {
			return "", false
		}
		if idx := subjectIndex(el); idx != nil {
			if k, ok := kindForIndex(idx.AttrValue("indexName")); ok {
				return k, true
			}
		}
		return doctree.KindBox, true
	}},
	{"ref", when(has("target"), doctree.KindExternerLink)},
	{"title", when(func(*doctree.Element) bool { return true }, doctree.KindTitel)},
	{"hi", func(el *doctree.Element) (doctree.Kind, bool) {
		switch el.AttrValue("rend") {
		case "superscript":
			return doctree.KindSuperskript, true
		case "subscript":
			return doctree.KindSubskript, true
		}
		return "", false
	}},
	{"p", when(func(*doctree.Element) bool { return true }, doctree.KindAbsatz)},
}

// Classify returns the volltext kind of an element inside running text.
// Elements matching no rule are boxes.
func Classify(el *doctree.Element) doctree.Kind {
	for _, r := range rules {
		if r.tag != el.Origin {
			continue
		}
		if k, ok := r.match(el); ok {
			return k
		}
	}
	return doctree.KindBox
}

// subjectIndex returns the first index child carrying a known notation,
// falling back to the first index child.
func subjectIndex(el *doctree.Element) *doctree.Element {
	var first *doctree.Element
	for _, c := range el.Children {
		idx, ok := c.(*doctree.Element)
		if !ok || idx.Origin != "index" {
			continue
		}
		if first == nil {
			first = idx
		}
		if _, ok := kindForIndex(idx.AttrValue("indexName")); ok {
			return idx
		}
	}
	return first
}
