// Command teiconv converts TEI documents to and from the editor's document
// tree without running the server.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/teiedit/internal/diag"
	"github.com/dgallion1/teiedit/internal/doctree"
	"github.com/dgallion1/teiedit/internal/importer"
	"github.com/dgallion1/teiedit/internal/preview"
	"github.com/dgallion1/teiedit/internal/structure"
	"github.com/dgallion1/teiedit/internal/transform"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	verbose bool
	indent  bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:          "teiconv",
		Short:        "Convert TEI XML to and from the editor document tree",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log stage warnings to stderr")
	rootCmd.PersistentFlags().BoolVar(&opts.indent, "indent", false, "indent JSON output")

	rootCmd.AddCommand(transformCmd(opts))
	rootCmd.AddCommand(invertCmd(opts))
	rootCmd.AddCommand(roundtripCmd(opts))
	rootCmd.AddCommand(previewCmd(opts))
	rootCmd.AddCommand(importCmd(opts))
	return rootCmd
}

func (o *options) pipeline(cmd *cobra.Command) *transform.Pipeline {
	return transform.NewPipeline(transform.Config{Logger: o.logger(cmd)})
}

func (o *options) logger(cmd *cobra.Command) *slog.Logger {
	if !o.verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func (o *options) writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if o.indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func transformCmd(opts *options) *cobra.Command {
	var detailsPath string

	cmd := &cobra.Command{
		Use:   "transform [file.xml|-]",
		Short: "Transform TEI XML into a document tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			var details []diag.DetailError
			if detailsPath != "" {
				raw, err := os.ReadFile(detailsPath)
				if err != nil {
					return fmt.Errorf("read details: %w", err)
				}
				if err := json.Unmarshal(raw, &details); err != nil {
					return fmt.Errorf("parse details: %w", err)
				}
			}
			doc, err := opts.pipeline(cmd).FromXML(string(data), details)
			if err != nil {
				return err
			}
			return opts.writeJSON(cmd, doc)
		},
	}
	cmd.Flags().StringVar(&detailsPath, "details", "", "JSON file with validation detail errors to attach")
	return cmd
}

func invertCmd(opts *options) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "invert [file.json|-]",
		Short: "Serialize a document tree back to TEI XML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			doc, err := doctree.Decode(bytes.NewReader(data))
			if err != nil {
				return err
			}
			xml, errs := opts.pipeline(cmd).ToXML(doc)
			fmt.Fprintln(cmd.OutOrStdout(), xml)
			reportErrors(cmd, errs)
			if strict && errs.HasErrors() {
				return fmt.Errorf("%d serialization errors", len(errs.UserFacing()))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when serialization reports errors")
	return cmd
}

// roundtripCmd checks that a document survives transform and invert
// unchanged after its first normalization.
func roundtripCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "roundtrip [file.xml|-]",
		Short: "Check that XML is stable under transform and invert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			p := opts.pipeline(cmd)
			once, errs, err := cycle(p, string(data))
			if err != nil {
				return err
			}
			reportErrors(cmd, errs)
			twice, _, err := cycle(p, once)
			if err != nil {
				return err
			}
			if once != twice {
				fmt.Fprintf(cmd.OutOrStdout(), "unstable\nfirst:  %s\nsecond: %s\n", once, twice)
				return fmt.Errorf("round trip is not stable")
			}
			changed := "unchanged"
			if once != strings.TrimSpace(string(data)) {
				changed = "normalized"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stable (%s)\n", changed)
			return nil
		},
	}
}

func cycle(p *transform.Pipeline, xml string) (string, diag.Errors, error) {
	doc, err := p.FromXML(xml, nil)
	if err != nil {
		return "", nil, err
	}
	out, errs := p.ToXML(doc)
	return out, errs, nil
}

func previewCmd(opts *options) *cobra.Command {
	var lang string

	cmd := &cobra.Command{
		Use:   "preview [file.xml|file.json|-]",
		Short: "Render a document as HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			doc, err := loadTree(opts.pipeline(cmd), data)
			if err != nil {
				return err
			}
			r := preview.New(nil, opts.logger(cmd))
			return r.Render(cmd.Context(), cmd.OutOrStdout(), doc, preview.Options{
				Languages:  []string{lang},
				Containers: structure.DefaultTables(),
			})
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "de", "preferred language for diagnostics")
	return cmd
}

func importCmd(opts *options) *cobra.Command {
	var noPdftotext bool

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import text, Markdown, HTML, DOCX or PDF as volltext paragraphs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filename := filepath.Base(args[0])
			imp, err := importer.ForFile(filename, importer.Options{PDFFallbackPdftotext: !noPdftotext})
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			nodes, err := imp.Import(f, filename)
			if err != nil {
				return err
			}
			doc, err := opts.pipeline(cmd).FromNodes(nodes)
			if err != nil {
				return err
			}
			if doc == nil {
				doc = []doctree.Node{}
			}
			return opts.writeJSON(cmd, doc)
		},
	}
	cmd.Flags().BoolVar(&noPdftotext, "no-pdftotext", false, "do not fall back to pdftotext for PDFs")
	return cmd
}

// loadTree accepts either a JSON document tree or TEI XML.
func loadTree(p *transform.Pipeline, data []byte) ([]doctree.Node, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return doctree.Decode(bytes.NewReader(trimmed))
	}
	return p.FromXML(string(data), nil)
}

func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

func reportErrors(cmd *cobra.Command, errs diag.Errors) {
	for _, e := range errs.UserFacing() {
		fmt.Fprintln(cmd.ErrOrStderr(), e.Error())
	}
}
