package transform

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/dgallion1/teiedit/internal/diag"
	"github.com/dgallion1/teiedit/internal/doctree"
	"github.com/dgallion1/teiedit/internal/structure"
	"github.com/dgallion1/teiedit/internal/volltext"
	"github.com/dgallion1/teiedit/internal/xmlnode"
)

// Config wires the stages. Zero values mean DefaultTables, slog.Default
// and random UUIDs.
type Config struct {
	Tables *structure.Tables
	Logger *slog.Logger
	IDFunc func() string
}

// Pipeline is XML text ⇄ document tree as one invertible unit.
type Pipeline struct {
	Invertible[xmlnode.Source, []doctree.Node]

	XML       xmlnode.Transformer
	Structure *structure.Transformer
	Volltext  *volltext.Transformer
}

// NewPipeline builds parse/serialize, structure and volltext stages and
// composes them.
func NewPipeline(cfg Config) *Pipeline {
	if cfg.Tables == nil {
		cfg.Tables = structure.DefaultTables()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.IDFunc == nil {
		cfg.IDFunc = uuid.NewString
	}

	p := &Pipeline{
		Structure: structure.New(cfg.Tables,
			structure.WithIDFunc(cfg.IDFunc),
			structure.WithLogger(cfg.Logger.With("stage", "structure"))),
		Volltext: volltext.New(cfg.Tables,
			volltext.WithIDFunc(cfg.IDFunc),
			volltext.WithLogger(cfg.Logger.With("stage", "volltext"))),
	}
	var xml Invertible[xmlnode.Source, []xmlnode.Node] = p.XML
	var st Invertible[[]xmlnode.Node, []doctree.Node] = p.Structure
	var vt Invertible[[]doctree.Node, []doctree.Node] = p.Volltext
	p.Invertible = Compose(Compose(xml, st), vt)
	return p
}

// FromXML parses data and attaches the validation details before building
// the document tree.
func (p *Pipeline) FromXML(data string, details []diag.DetailError) ([]doctree.Node, error) {
	return p.Transform(xmlnode.Source{Data: data, DetailErrors: details})
}

// ToXML serializes the document tree back to XML text.
func (p *Pipeline) ToXML(doc []doctree.Node) (string, diag.Errors) {
	src, errs := p.Invert(doc)
	return src.Data, errs
}

// FromNodes runs already-built XML nodes, such as imported paragraphs,
// through the structure and volltext stages.
func (p *Pipeline) FromNodes(nodes []xmlnode.Node) ([]doctree.Node, error) {
	doc, err := p.Structure.Transform(nodes)
	if err != nil {
		return nil, err
	}
	return p.Volltext.Transform(doc)
}
