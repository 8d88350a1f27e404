package api

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
)

// ArtifactSource is the read side of the output artifact store.
type ArtifactSource interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	URL(ctx context.Context, key string) (string, error)
	Exists(ctx context.Context, key string) bool
}

// DownloadHandler streams completed output artifacts to clients.
type DownloadHandler struct {
	store ArtifactSource
}

func NewDownloadHandler(store ArtifactSource) *DownloadHandler {
	return &DownloadHandler{store: store}
}

// Get handles GET /api/v1/downloads/{name}. When the store can presign a URL
// (S3 backend) the client is redirected there; otherwise the file is streamed.
func (h *DownloadHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	// Keys are flat file names; anything path-like is hostile.
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		WriteError(w, http.StatusBadRequest, "invalid artifact name")
		return
	}

	if !h.store.Exists(r.Context(), name) {
		WriteError(w, http.StatusNotFound, "file not found")
		return
	}

	if url, err := h.store.URL(r.Context(), name); err == nil && url != "" {
		http.Redirect(w, r, url, http.StatusTemporaryRedirect)
		return
	}

	f, err := h.store.Open(r.Context(), name)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("key", name).Msg("artifact open failed")
		WriteError(w, http.StatusInternalServerError, "failed to open artifact")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if _, err := io.Copy(w, f); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("key", name).Msg("artifact stream interrupted")
	}
}
