package api

import (
	"errors"
	"net/http"

	"github.com/clipsmith/cut-engine/internal/database"
)

// JobsHandler serves job status queries.
type JobsHandler struct {
	db *database.DB
}

func NewJobsHandler(db *database.DB) *JobsHandler {
	return &JobsHandler{db: db}
}

// jobResponse is a job row plus its transcript, when one exists.
type jobResponse struct {
	database.JobRow
	Transcript *database.TranscriptRow `json:"transcript,omitempty"`
}

// Get handles GET /api/v1/media/{id}.
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	jobID, err := PathUUID(r, "id")
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := h.db.GetJob(r.Context(), jobID)
	if errors.Is(err, database.ErrNotFound) {
		WriteError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := jobResponse{JobRow: *job}
	if t, err := h.db.GetTranscript(r.Context(), jobID); err == nil {
		resp.Transcript = t
	}

	WriteJSON(w, http.StatusOK, resp)
}

// List handles GET /api/v1/media.
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	p, err := ParsePagination(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	jobs, err := h.db.ListJobs(r.Context(), p.Limit, p.Offset)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if jobs == nil {
		jobs = []database.JobRow{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}
