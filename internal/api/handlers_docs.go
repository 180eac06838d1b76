package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/rfpgest/internal/pipeline"
	"github.com/dgallion1/rfpgest/internal/requirements"
	"github.com/dgallion1/rfpgest/internal/store"
)

type documentSummary struct {
	DocID     string    `json:"doc_id"`
	Filename  string    `json:"filename,omitempty"`
	Status    string    `json:"status,omitempty"`
	Phase     string    `json:"phase,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	InFlight  bool      `json:"in_progress"`
	UpdatedAt time.Time `json:"updated_at"`
}

// handleListDocuments lists stored documents with their latest status.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ids, err := s.store.Documents(ctx)
	if err != nil {
		jsonError(w, "failed to list documents: "+err.Error(), http.StatusInternalServerError)
		return
	}

	docs := make([]documentSummary, 0, len(ids))
	for _, id := range ids {
		sum := documentSummary{DocID: id, InFlight: len(s.orchestrator.ActiveJobs(id)) > 0}
		rec, err := s.store.Get(ctx, id, store.StatusRecordID)
		switch {
		case err == nil:
			sum.Filename = rec.Filename
			sum.Status = rec.Status
			sum.Phase = rec.Phase
			sum.Reason = rec.Reason
			sum.UpdatedAt = rec.UpdatedAt
		case !errors.Is(err, store.ErrNotFound):
			s.log.Warn("read status record failed", "doc_id", id, "error", err)
		}
		docs = append(docs, sum)
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (s *Server) handleDocumentStatus(w http.ResponseWriter, r *http.Request) {
	docID := urlParam(r, "docID")
	rec, err := s.store.Get(r.Context(), docID, store.StatusRecordID)
	if err != nil {
		s.storeError(w, err, "status")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleSections(w http.ResponseWriter, r *http.Request) {
	docID := urlParam(r, "docID")
	recs, err := store.Sections(r.Context(), s.store, docID)
	if err != nil {
		s.storeError(w, err, "sections")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"doc_id": docID, "sections": recs})
}

func (s *Server) handleTOC(w http.ResponseWriter, r *http.Request) {
	docID := urlParam(r, "docID")
	rec, err := s.store.Get(r.Context(), docID, store.TOCRecordID)
	if err != nil {
		s.storeError(w, err, "table of contents")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"doc_id":            docID,
		"table_of_contents": rec.TableOfContents,
		"entries":           rec.TOCEntries,
	})
}

// handleStartExtraction queues requirement extraction for a stored document.
func (s *Server) handleStartExtraction(w http.ResponseWriter, r *http.Request) {
	docID := urlParam(r, "docID")
	if _, err := s.store.Query(r.Context(), docID); err != nil {
		s.storeError(w, err, "document")
		return
	}
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
	job := pipeline.NewJob(pipeline.KindExtraction, docID)
	job.SetForce(force)
	if err := s.orchestrator.Submit(r.Context(), job); err != nil {
		submitError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"doc_id":   docID,
		"status":   job.Snapshot().Status,
		"poll_url": "/api/jobs/" + job.ID,
	})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	docID := urlParam(r, "docID")
	report, err := requirements.Progress(r.Context(), s.store, docID)
	if err != nil {
		s.storeError(w, err, "progress")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleRequirements(w http.ResponseWriter, r *http.Request) {
	docID := urlParam(r, "docID")
	reqs, err := requirements.Flagged(r.Context(), s.store, docID)
	if err != nil {
		s.storeError(w, err, "requirements")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"doc_id": docID, "requirements": reqs})
}

// handleReviewRequirements replaces a section's requirements with the
// reviewer's edit and marks it reviewed.
func (s *Server) handleReviewRequirements(w http.ResponseWriter, r *http.Request) {
	docID := urlParam(r, "docID")
	sectionID := urlParam(r, "sectionID")

	var body struct {
		Requirements []requirements.Record `json:"requirements"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<20)).Decode(&body); err != nil {
		jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if body.Requirements == nil {
		body.Requirements = []requirements.Record{}
	}
	if err := store.MarkReviewed(r.Context(), s.store, docID, sectionID, body.Requirements); err != nil {
		s.storeError(w, err, "section")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"doc_id":       docID,
		"id":           sectionID,
		"reviewed":     true,
		"requirements": len(body.Requirements),
	})
}

// handleDeleteDocument deletes every record of a document.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := urlParam(r, "docID")
	if len(s.orchestrator.ActiveJobs(docID)) > 0 {
		jsonError(w, "document is being processed", http.StatusConflict)
		return
	}
	if err := s.store.DeleteDocument(r.Context(), docID); err != nil {
		s.storeError(w, err, "document")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"doc_id": docID, "deleted": true})
}

func (s *Server) storeError(w http.ResponseWriter, err error, what string) {
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, what+" not found", http.StatusNotFound)
		return
	}
	s.log.Error("store request failed", "what", what, "error", err)
	jsonError(w, "failed to load "+what+": "+err.Error(), http.StatusInternalServerError)
}

// urlParam returns a decoded route parameter. chi leaves parameters escaped
// when the request path carried encoded separators.
func urlParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v
	}
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

func escapePath(s string) string {
	return url.PathEscape(s)
}
