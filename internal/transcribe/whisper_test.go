package transcribe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempMedia(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp3")
	if err := os.WriteFile(path, []byte("fake-audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWhisperClient_Transcribe(t *testing.T) {
	var gotModel, gotFormat string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		gotModel = r.FormValue("model")
		gotFormat = r.FormValue("response_format")
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file field: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"text": "hello world",
			"language": "en",
			"duration": 12.5,
			"segments": [
				{"id": 1, "start": 4.0, "end": 6.0, "text": "world", "no_speech_prob": 0.1},
				{"id": 0, "start": 0.0, "end": 2.0, "text": "hello"}
			]
		}`))
	}))
	defer srv.Close()

	wc := NewWhisperClient(srv.URL, "", "whisper-1", 5*time.Second)
	res, err := wc.Transcribe(context.Background(), writeTempMedia(t), Opts{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	if gotModel != "whisper-1" {
		t.Errorf("model = %q, want whisper-1", gotModel)
	}
	if gotFormat != "verbose_json" {
		t.Errorf("response_format = %q, want verbose_json", gotFormat)
	}
	if res.Text != "hello world" || res.Language != "en" || res.Duration != 12.5 {
		t.Errorf("unexpected result: %+v", res)
	}
	if len(res.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(res.Segments))
	}
	// Provider output order is preserved as-is; sorting is the consumer's job.
	if res.Segments[0].Start != 4.0 {
		t.Errorf("segment order changed at the boundary: %+v", res.Segments)
	}
	if res.Segments[1].NoSpeechProb != 0.0 {
		t.Errorf("missing no_speech_prob should default to 0.0, got %v", res.Segments[1].NoSpeechProb)
	}
}

func TestWhisperClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	wc := NewWhisperClient(srv.URL, "", "whisper-1", 5*time.Second)
	_, err := wc.Transcribe(context.Background(), writeTempMedia(t), Opts{})
	if err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ProviderConfig
		wantErr bool
	}{
		{"default_whisper", ProviderConfig{URL: "http://localhost:8000/v1/audio/transcriptions"}, false},
		{"whisper_no_url", ProviderConfig{Provider: "whisper"}, true},
		{"deepinfra", ProviderConfig{Provider: "deepinfra", APIKey: "k", Model: "openai/whisper-large-v3"}, false},
		{"deepinfra_no_key", ProviderConfig{Provider: "deepinfra"}, true},
		{"unknown", ProviderConfig{Provider: "parakeet"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewProvider(%+v) error = %v, wantErr %v", tt.cfg, err, tt.wantErr)
			}
		})
	}
}
