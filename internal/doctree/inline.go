package doctree

import "github.com/dgallion1/teiedit/internal/diag"

// Family groups the volltext kinds.
type Family string

const (
	// FamilyReferenz points at an authority record, a subject area or a URL.
	FamilyReferenz Family = "referenz"
	// FamilyFormatierung is a semantic or typographic span with children.
	FamilyFormatierung Family = "formatierung"
	// FamilyBox wraps an element kept verbatim.
	FamilyBox Family = "box"
	// FamilyBlock is a paragraph-level container.
	FamilyBlock Family = "block"
)

// Kind is the closed set of volltext element kinds.
type Kind string

const (
	KindPerson        Kind = "person"
	KindOrt           Kind = "ort"
	KindKoerperschaft Kind = "koerperschaft"
	KindExternerLink  Kind = "externerLink"
	KindEinband       Kind = "einband"
	KindBuchschmuck   Kind = "buchschmuck"
	KindMusiknotation Kind = "musiknotation"
	KindSchrift       Kind = "schrift"
	KindAutor         Kind = "autor"
	KindTitel         Kind = "titel"
	KindZitat         Kind = "zitat"
	KindIncipit       Kind = "incipit"
	KindExplicit      Kind = "explicit"
	KindSuperskript   Kind = "superskript"
	KindSubskript     Kind = "subskript"
	KindBox           Kind = "box"
	KindAbsatz        Kind = "absatz"
)

var kindFamilies = map[Kind]Family{
	KindPerson:        FamilyReferenz,
	KindOrt:           FamilyReferenz,
	KindKoerperschaft: FamilyReferenz,
	KindExternerLink:  FamilyReferenz,
	KindEinband:       FamilyReferenz,
	KindBuchschmuck:   FamilyReferenz,
	KindMusiknotation: FamilyReferenz,
	KindSchrift:       FamilyReferenz,
	KindAutor:         FamilyFormatierung,
	KindTitel:         FamilyFormatierung,
	KindZitat:         FamilyFormatierung,
	KindIncipit:       FamilyFormatierung,
	KindExplicit:      FamilyFormatierung,
	KindSuperskript:   FamilyFormatierung,
	KindSubskript:     FamilyFormatierung,
	KindBox:           FamilyBox,
	KindAbsatz:        FamilyBlock,
}

// Family returns the family of k, or "" for an unknown kind.
func (k Kind) Family() Family { return kindFamilies[k] }

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	_, ok := kindFamilies[k]
	return ok
}

// Term is a selected subject-area term.
type Term struct {
	ID  string `json:"id"`
	URI string `json:"uri"`
}

// Inline is a volltext element inside running text.
//
// Box keeps the element the node was created from so that inverting can
// reproduce it; it is nil for nodes created in the editor. Referenz and
// Box kinds are void and carry their text in Content; Formatierung and
// Block kinds hold classified Children. Errors are the validation messages
// of the source element; the Box does not repeat them.
type Inline struct {
	ID       string
	Kind     Kind
	Content  string
	Box      *Element
	Auswahl  []Term
	Target   string
	Ref      string
	Children []Node
	Errors   []diag.DiagnosticMessage
}
