package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// UploadReconciler scans the local output directory for artifacts missing
// from S3 and re-uploads them. Handles failed backup writes and crash
// recovery.
type UploadReconciler struct {
	outputDir string
	s3        *S3Store
	interval  time.Duration
	window    time.Duration
	log       zerolog.Logger
	stop      chan struct{}
}

// NewUploadReconciler creates a reconciler that checks for missing S3 uploads.
func NewUploadReconciler(outputDir string, s3 *S3Store, log zerolog.Logger) *UploadReconciler {
	return &UploadReconciler{
		outputDir: outputDir,
		s3:        s3,
		interval:  5 * time.Minute,
		window:    24 * time.Hour,
		log:       log.With().Str("component", "upload-reconciler").Logger(),
		stop:      make(chan struct{}),
	}
}

func (r *UploadReconciler) Start() { go r.loop() }
func (r *UploadReconciler) Stop()  { close(r.stop) }

func (r *UploadReconciler) loop() {
	// Delay first run to let startup uploads settle
	select {
	case <-time.After(2 * time.Minute):
	case <-r.stop:
		return
	}

	r.reconcile()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.reconcile()
		case <-r.stop:
			return
		}
	}
}

func (r *UploadReconciler) reconcile() {
	var uploaded, failed, checked int

	cutoff := time.Now().Add(-r.window)

	entries, _ := os.ReadDir(r.outputDir)
	for _, e := range entries {
		if e.IsDir() || isTempArtifact(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		// Only recent artifacts; older ones either made it to S3 long ago
		// or were pruned.
		if info.ModTime().Before(cutoff) {
			continue
		}

		checked++
		key := e.Name()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		exists := r.s3.Exists(ctx, key)
		cancel()
		if exists {
			continue
		}

		ctx, cancel = context.WithTimeout(context.Background(), 2*time.Minute)
		err = r.s3.uploadFrom(ctx, key, filepath.Join(r.outputDir, key))
		cancel()
		if err != nil {
			r.log.Warn().Err(err).Str("key", key).Msg("reconcile upload failed")
			failed++
		} else {
			uploaded++
		}
	}

	if uploaded > 0 || failed > 0 {
		r.log.Info().
			Int("uploaded", uploaded).
			Int("failed", failed).
			Int("checked", checked).
			Msg("reconcile complete")
	}
}

// ContentTypeForExt returns the MIME type for a media file extension.
func ContentTypeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".mp4":
		return "video/mp4"
	case ".m4a":
		return "audio/mp4"
	case ".webm":
		return "video/webm"
	case ".mov":
		return "video/quicktime"
	case ".mp3", ".mpga":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".ogg", ".oga":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	default:
		return "application/octet-stream"
	}
}
