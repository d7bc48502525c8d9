package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/teiedit/internal/diag"
	"github.com/dgallion1/teiedit/internal/doctree"
	"github.com/dgallion1/teiedit/internal/importer"
	"github.com/dgallion1/teiedit/internal/preview"
	"github.com/dgallion1/teiedit/internal/teiheader"
	"github.com/dgallion1/teiedit/internal/xmlnode"
)

const maxJSONBody = 32 << 20

type transformRequest struct {
	XML          string             `json:"xml"`
	DetailErrors []diag.DetailError `json:"detailErrors"`
}

// documentRequest carries an edited document tree.
type documentRequest struct {
	Document json.RawMessage `json:"document"`
}

func (s *Server) handleTransform(w http.ResponseWriter, r *http.Request) {
	var req transformRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.XML) == "" {
		jsonError(w, "xml is required", http.StatusBadRequest)
		return
	}

	doc, err := s.deps.Pipeline.FromXML(req.XML, req.DetailErrors)
	if err != nil {
		s.transformError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document": doc,
		"meta":     s.meta(req.XML),
	})
}

func (s *Server) handleSerialize(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.decodeDocument(w, r)
	if !ok {
		return
	}
	xml, errs := s.deps.Pipeline.ToXML(doc)
	writeJSON(w, http.StatusOK, map[string]any{
		"xml":    xml,
		"errors": errs.UserFacing(),
	})
}

// handleValidate serializes the document, validates it and returns a
// fresh tree with the findings attached.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	if s.deps.Validator == nil {
		jsonError(w, "validation is not configured", http.StatusServiceUnavailable)
		return
	}
	doc, ok := s.decodeDocument(w, r)
	if !ok {
		return
	}
	xml, errs := s.deps.Pipeline.ToXML(doc)

	result, err := s.deps.Validator.Validate(r.Context(), xml)
	if err != nil {
		s.log.Error("validation failed", "error", err)
		jsonError(w, "validation failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	validated, err := s.deps.Pipeline.FromXML(xml, result.DetailErrors)
	if err != nil {
		s.transformError(w, err)
		return
	}
	diagnostics := doctree.Diagnostics(validated)
	if diagnostics == nil {
		diagnostics = []doctree.NodeDiagnostic{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":       result.Valid,
		"document":    validated,
		"diagnostics": diagnostics,
		"errors":      errs.UserFacing(),
	})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.decodeDocument(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	opts := preview.Options{Containers: s.deps.Tables}
	if lang := r.Header.Get("Accept-Language"); lang != "" {
		opts.Languages = []string{lang}
	}
	if err := s.deps.Preview.Render(r.Context(), &buf, doc, opts); err != nil {
		s.log.Error("preview failed", "error", err)
		jsonError(w, "preview failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// handleImport turns an uploaded file into volltext paragraphs that the
// editor can paste into a container.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !importer.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	imp, err := importer.ForFile(filename, importer.Options{PDFFallbackPdftotext: s.cfg.PDFFallbackPdftotext})
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	nodes, err := imp.Import(bytes.NewReader(data), filename)
	if err != nil {
		s.log.Warn("import failed", "filename", filename, "error", err)
		jsonError(w, "import failed: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	doc, err := s.deps.Pipeline.FromNodes(nodes)
	if err != nil {
		s.transformError(w, err)
		return
	}
	if doc == nil {
		doc = []doctree.Node{}
	}
	s.log.Info("imported file", "filename", filename, "paragraphs", len(doc))
	writeJSON(w, http.StatusOK, map[string]any{"document": doc})
}

func (s *Server) decodeDocument(w http.ResponseWriter, r *http.Request) ([]doctree.Node, bool) {
	var req documentRequest
	if !decodeBody(w, r, &req) {
		return nil, false
	}
	return decodeTree(w, req.Document)
}

func decodeTree(w http.ResponseWriter, raw json.RawMessage) ([]doctree.Node, bool) {
	if len(raw) == 0 {
		jsonError(w, "document is required", http.StatusBadRequest)
		return nil, false
	}
	doc, err := doctree.Decode(bytes.NewReader(raw))
	if err != nil {
		jsonError(w, "invalid document: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return doc, true
}

func (s *Server) transformError(w http.ResponseWriter, err error) {
	var perr *xmlnode.ParseError
	if errors.As(err, &perr) {
		jsonError(w, "malformed xml: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.log.Error("transform failed", "error", err)
	jsonError(w, "transform failed: "+err.Error(), http.StatusUnprocessableEntity)
}

// meta reads the header fields; documents without a usable header get an
// empty Meta.
func (s *Server) meta(xml string) teiheader.Meta {
	m, err := teiheader.Extract(xml)
	if err != nil {
		s.log.Debug("tei header not readable", "error", err)
	}
	return m
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
