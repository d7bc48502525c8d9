package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/teiedit/internal/pipeline"
	"github.com/dgallion1/teiedit/internal/store"
)

// saveRequest is the body of PUT /api/documents/{docID}. Revision and Hash
// are echoed from the load response.
type saveRequest struct {
	Document json.RawMessage `json:"document"`
	Revision string          `json:"revision"`
	Hash     string          `json:"hash"`
	Force    bool            `json:"force"`
	UserID   string          `json:"user_id"`
}

// handleGetDocument loads a document and transforms it for the editor.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	if s.deps.Documents == nil {
		jsonError(w, "document service is not configured", http.StatusServiceUnavailable)
		return
	}
	docID := chi.URLParam(r, "docID")

	stored, err := s.deps.Documents.Load(r.Context(), docID)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("load failed", "doc_id", docID, "error", err)
		jsonError(w, "failed to load document: "+err.Error(), http.StatusBadGateway)
		return
	}

	doc, err := s.deps.Pipeline.FromXML(stored.XML, nil)
	if err != nil {
		s.transformError(w, err)
		return
	}
	// Hash what saving the untouched tree would write, so an unedited
	// document is recognized on save.
	xml, _ := s.deps.Pipeline.ToXML(doc)

	writeJSON(w, http.StatusOK, map[string]any{
		"doc_id":   docID,
		"document": doc,
		"meta":     s.meta(stored.XML),
		"revision": stored.Revision,
		"hash":     pipeline.RevisionHash(xml),
	})
}

// handleSaveDocument serializes the edited tree and queues the save.
func (s *Server) handleSaveDocument(w http.ResponseWriter, r *http.Request) {
	if s.deps.Orchestrator == nil {
		jsonError(w, "saving is not configured", http.StatusServiceUnavailable)
		return
	}
	docID := chi.URLParam(r, "docID")

	var req saveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	doc, ok := decodeTree(w, req.Document)
	if !ok {
		return
	}

	xml, errs := s.deps.Pipeline.ToXML(doc)
	if s.cfg.BlockSaveOnErrors && !req.Force && errs.HasErrors() {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "document has serialization errors",
			"errors": errs.UserFacing(),
		})
		return
	}

	userID := req.UserID
	if userID == "" {
		userID = "anonymous"
	}
	base := pipeline.Base{Revision: req.Revision, Hash: req.Hash}
	if req.Force {
		base.Hash = ""
	}
	job := pipeline.NewJob(docID, userID, xml, base, s.meta(xml).Map(), errs)
	job.Force = req.Force

	if err := s.deps.Orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	snap := job.Snapshot()
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   snap.ID,
		"doc_id":   snap.DocID,
		"status":   snap.Status,
		"revision": snap.Revision,
		"errors":   snap.SerializationErrors,
		"poll_url": fmt.Sprintf("/api/save/%s/status", snap.ID),
	})
}

func (s *Server) handleSaveStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.Orchestrator == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	jobID := chi.URLParam(r, "jobID")
	job := s.deps.Orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}
