package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

// fakeArtifacts is an in-memory ArtifactSource.
type fakeArtifacts struct {
	files map[string]string
	urls  map[string]string
}

func (f *fakeArtifacts) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	content, ok := f.files[key]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func (f *fakeArtifacts) URL(ctx context.Context, key string) (string, error) {
	return f.urls[key], nil
}

func (f *fakeArtifacts) Exists(ctx context.Context, key string) bool {
	_, ok := f.files[key]
	return ok
}

func downloadRequest(t *testing.T, store ArtifactSource, name string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/api/v1/downloads/{name}", NewDownloadHandler(store).Get)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/downloads/"+name, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestDownload_Streams(t *testing.T) {
	store := &fakeArtifacts{files: map[string]string{"cut_talk.mp4": "joined media"}}
	rec := downloadRequest(t, store, "cut_talk.mp4")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "joined media" {
		t.Errorf("body = %q", got)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "cut_talk.mp4") {
		t.Errorf("Content-Disposition = %q", cd)
	}
}

func TestDownload_PresignedRedirect(t *testing.T) {
	store := &fakeArtifacts{
		files: map[string]string{"cut_talk.mp4": "x"},
		urls:  map[string]string{"cut_talk.mp4": "https://bucket.example/cut_talk.mp4?sig=abc"},
	}
	rec := downloadRequest(t, store, "cut_talk.mp4")

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.HasPrefix(loc, "https://bucket.example/") {
		t.Errorf("Location = %q", loc)
	}
}

func TestDownload_NotFound(t *testing.T) {
	rec := downloadRequest(t, &fakeArtifacts{files: map[string]string{}}, "missing.mp4")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestDownload_PathTraversalRejected(t *testing.T) {
	store := &fakeArtifacts{files: map[string]string{"../secret": "x"}}
	rec := downloadRequest(t, store, "..%2Fsecret")
	if rec.Code != http.StatusBadRequest && rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want rejection", rec.Code)
	}
}
