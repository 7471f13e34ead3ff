package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JakeFAU/web-snapshot/internal/snapshot"
)

type submitJobRequest struct {
	URLs []string `json:"urls"`
}

type submitJobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type jobResponse struct {
	JobID     string                   `json:"job_id"`
	Status    string                   `json:"status"`
	URLs      []string                 `json:"urls"`
	Submitted string                   `json:"submitted"`
	Updated   string                   `json:"updated"`
	Results   []snapshot.CaptureResult `json:"results,omitempty"`
	Error     string                   `json:"error,omitempty"`
}

func (s *Server) submitJob(w http.ResponseWriter, r *http.Request) {
	var req submitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.URLs) == 0 {
		s.writeError(w, http.StatusBadRequest, "urls required")
		return
	}
	for _, u := range req.URLs {
		if strings.TrimSpace(u) == "" {
			s.writeError(w, http.StatusBadRequest, "urls must not contain blank entries")
			return
		}
	}

	jobID, err := s.enqueueJob(r.Context(), req.URLs)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, submitJobResponse{
		JobID:  jobID,
		Status: string(snapshot.JobStatusQueued),
	})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.jobStore.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "job not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "job lookup failed")
		return
	}

	resp := jobResponse{
		JobID:     job.ID,
		Status:    string(job.Status),
		URLs:      job.URLs,
		Submitted: job.Submitted.Format(time.RFC3339),
		Updated:   job.Updated.Format(time.RFC3339),
	}
	// Results and error text only become visible in their terminal states.
	switch job.Status {
	case snapshot.JobStatusDone:
		resp.Results = job.Results
	case snapshot.JobStatusError:
		resp.Error = job.ErrorText
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) resolveSitemaps(w http.ResponseWriter, r *http.Request) {
	base := r.URL.Query().Get("base")
	if strings.TrimSpace(base) == "" {
		s.writeError(w, http.StatusBadRequest, "base query parameter required")
		return
	}
	res, err := s.resolver.Resolve(r.Context(), base)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}
