package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clipsmith/cut-engine/internal/assemble"
	"github.com/clipsmith/cut-engine/internal/cutplan"
	"github.com/clipsmith/cut-engine/internal/interval"
	"github.com/clipsmith/cut-engine/internal/silence"
	"github.com/clipsmith/cut-engine/internal/transcribe"
)

// Service contract errors. The pipeline returns these so handlers can map
// them to HTTP statuses without importing the pipeline package.
var (
	ErrJobNotFound        = errors.New("job not found")
	ErrJobNotAwaitingCuts = errors.New("job is not awaiting cut selection")
	ErrBusy               = errors.New("service is at capacity, retry later")
)

// MediaSubmission is an uploaded media file plus detection tuning.
type MediaSubmission struct {
	SourceName string
	Data       []byte
	Detect     silence.Config
}

// MediaAnalysis is the response to an upload: the transcript plus proposed
// silence intervals for the client to review.
type MediaAnalysis struct {
	JobID    uuid.UUID            `json:"job_id"`
	Text     string               `json:"text"`
	Language string               `json:"language"`
	Duration float64              `json:"duration"`
	Strategy silence.Strategy     `json:"strategy"`
	Segments []transcribe.Segment `json:"segments"`
	Silences []silence.Interval   `json:"silence_intervals"`
}

// CutResult is the response to an approved cut list.
type CutResult struct {
	JobID        uuid.UUID `json:"job_id"`
	OutputName   string    `json:"output_file"`
	SegmentsKept int       `json:"segments_kept"`
	KeepDuration float64   `json:"keep_duration"`
	DownloadURL  string    `json:"download_url"`
}

// MediaService runs the cut pipeline. The pipeline package implements this;
// api owns the interface, so there are no circular imports.
type MediaService interface {
	SubmitMedia(ctx context.Context, sub MediaSubmission) (*MediaAnalysis, error)
	ApplyCuts(ctx context.Context, jobID uuid.UUID, cuts []interval.Interval) (*CutResult, error)
}

// supportedExtensions is what the transcription endpoint accepts directly,
// plus container formats the transcoder converts first.
var supportedExtensions = map[string]bool{
	".flac": true, ".m4a": true, ".mp3": true, ".mp4": true, ".mpeg": true,
	".mpga": true, ".oga": true, ".ogg": true, ".wav": true, ".webm": true,
	".avi": true, ".mov": true,
}

// MediaHandler handles media upload and cut submission.
type MediaHandler struct {
	svc       MediaService
	maxUpload int64
	log       zerolog.Logger
}

// NewMediaHandler creates a media handler. maxUpload bounds the request body
// size in bytes.
func NewMediaHandler(svc MediaService, maxUpload int64, log zerolog.Logger) *MediaHandler {
	return &MediaHandler{
		svc:       svc,
		maxUpload: maxUpload,
		log:       log.With().Str("handler", "media").Logger(),
	}
}

// Submit handles POST /api/v1/media: multipart upload with a "file" field.
// Detection tuning comes from query params so simple clients can skip them.
func (h *MediaHandler) Submit(w http.ResponseWriter, r *http.Request) {
	// Bound the whole request body, not just the in-memory multipart buffer.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, "upload exceeds the size limit")
			return
		}
		WriteError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !supportedExtensions[ext] {
		WriteErrorDetail(w, http.StatusBadRequest,
			"unsupported file type: "+ext,
			"supported: "+strings.Join(sortedExtensions(), ", "))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	detect := silence.Config{}
	if v, ok := QueryString(r, "strategy"); ok {
		detect.Strategy = silence.Strategy(v)
	}
	if v, ok := QueryFloat(r, "min_duration"); ok {
		detect.MinDuration = v
	}
	if v, ok := QueryFloat(r, "threshold"); ok {
		detect.Threshold = v
	}

	analysis, err := h.svc.SubmitMedia(r.Context(), MediaSubmission{
		SourceName: filepath.Base(header.Filename),
		Data:       data,
		Detect:     detect,
	})
	if err != nil {
		h.log.Error().Err(err).Str("file", header.Filename).Msg("media submission failed")
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, analysis)
}

// cutsRequest is the body of POST /api/v1/media/{id}/cuts.
type cutsRequest struct {
	Cuts []interval.Interval `json:"cuts"`
}

// ApplyCuts handles POST /api/v1/media/{id}/cuts: plans the keep intervals
// and assembles the output.
func (h *MediaHandler) ApplyCuts(w http.ResponseWriter, r *http.Request) {
	jobID, err := PathUUID(r, "id")
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req cutsRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := h.svc.ApplyCuts(r.Context(), jobID, req.Cuts)
	if err != nil {
		h.log.Error().Err(err).Stringer("job_id", jobID).Msg("cut application failed")
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// writeServiceError maps pipeline errors onto HTTP statuses. Client-correctable
// input problems get 4xx; everything else is a server failure.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cutplan.ErrInvalidInterval):
		WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrJobNotFound):
		WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrJobNotAwaitingCuts):
		WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrBusy):
		WriteError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, silence.ErrInsufficientInput),
		errors.Is(err, assemble.ErrNothingToKeep):
		WriteError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

func sortedExtensions() []string {
	exts := make([]string, 0, len(supportedExtensions))
	for e := range supportedExtensions {
		exts = append(exts, e)
	}
	sort.Strings(exts)
	return exts
}
