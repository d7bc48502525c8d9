package structure

// Tables holds the read-only lookup data that drives the structural
// transform. Build one with DefaultTables or NewTables and share it freely;
// nothing mutates it after construction.
type Tables struct {
	components map[string]string
	regions    map[string]struct{}
	stripSpace map[string]struct{}
	volltext   map[string]struct{}
}

// TableConfig lists the entries for NewTables. Component keys are either a
// tag or tag+type; values are the component names exposed to the editor.
type TableConfig struct {
	Components map[string]string
	Regions    []string
	StripSpace []string
	Volltext   []string
}

// NewTables copies cfg into an immutable Tables.
func NewTables(cfg TableConfig) *Tables {
	t := &Tables{
		components: make(map[string]string, len(cfg.Components)),
		regions:    toSet(cfg.Regions),
		stripSpace: toSet(cfg.StripSpace),
		volltext:   toSet(cfg.Volltext),
	}
	for k, v := range cfg.Components {
		t.components[k] = v
	}
	return t
}

func toSet(items []string) map[string]struct{} {
	s := make(map[string]struct{}, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

// Component returns the component name for tag and its type attribute,
// trying tag+type before tag alone. Unknown elements get "".
func (t *Tables) Component(tag, typ string) string {
	if typ != "" {
		if c, ok := t.components[tag+typ]; ok {
			return c
		}
	}
	return t.components[tag]
}

// EstablishesRegion reports whether tag starts a new region.
func (t *Tables) EstablishesRegion(tag string) bool {
	_, ok := t.regions[tag]
	return ok
}

// StripsSpace reports whether incidental text below tag is discarded.
func (t *Tables) StripsSpace(tag string) bool {
	_, ok := t.stripSpace[tag]
	return ok
}

// IsVolltext reports whether tag holds running text whose inline elements
// are classified into volltext kinds.
func (t *Tables) IsVolltext(tag string) bool {
	_, ok := t.volltext[tag]
	return ok
}

// DefaultTables returns the tables for TEI manuscript descriptions.
func DefaultTables() *Tables {
	return NewTables(TableConfig{
		Components: map[string]string{
			"msDesc":          "msDesc",
			"msIdentifier":    "identifikation",
			"head":            "kopf",
			"msContents":      "inhalt",
			"msItem":          "inhaltsEintrag",
			"physDesc":        "aeussere",
			"objectDesc":      "objekt",
			"supportDesc":     "beschreibstoff",
			"layoutDesc":      "layout",
			"handDesc":        "schrift",
			"decoDesc":        "buchschmuck",
			"musicNotation":   "musiknotation",
			"bindingDesc":     "einband",
			"accMat":          "beigaben",
			"history":         "geschichte",
			"additional":      "literatur",
			"listBibl":        "literaturListe",
			"msPart":          "teil",
			"msPartfragment":  "fragment",
			"msPartbooklet":   "faszikel",
			"msPartaccMat":    "beigabe",
			"msPartother":     "teil",
			"msPartbinding":   "einbandTeil",
			"notetext":        "inhaltText",
			"notemusic":       "musikalienText",
			"notebinding":     "einbandText",
			"noteprovenance":  "provenienzText",
			"summary":         "zusammenfassung",
			"titleStmt":       "titel",
			"publicationStmt": "veroeffentlichung",
			"revisionDesc":    "revisionen",
			"recordHist":      "katalogGeschichte",
			"adminInfo":       "verwaltung",
			"listPerson":      "personen",
			"listPlace":       "orte",
			"listOrg":         "koerperschaften",
		},
		Regions: []string{
			"teiHeader",
			"text",
			"msDesc",
			"msPart",
			"msContents",
			"physDesc",
			"history",
			"additional",
		},
		StripSpace: []string{
			"TEI",
			"teiHeader",
			"fileDesc",
			"titleStmt",
			"publicationStmt",
			"sourceDesc",
			"encodingDesc",
			"profileDesc",
			"revisionDesc",
			"msDesc",
			"msIdentifier",
			"msContents",
			"msItem",
			"msPart",
			"physDesc",
			"objectDesc",
			"supportDesc",
			"layoutDesc",
			"handDesc",
			"decoDesc",
			"musicNotation",
			"bindingDesc",
			"binding",
			"history",
			"additional",
			"adminInfo",
			"recordHist",
			"listBibl",
			"listPerson",
			"listPlace",
			"listOrg",
			"text",
			"body",
		},
		Volltext: []string{
			"p",
			"summary",
			"note",
			"ab",
		},
	})
}
