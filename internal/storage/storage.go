package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/clipsmith/cut-engine/internal/config"
)

// ArtifactStore abstracts storage backends for assembled output files.
// Keys are flat file names, e.g. "cut_lecture.mp4".
type ArtifactStore interface {
	// Save stores an assembled output under key.
	Save(ctx context.Context, key string, data []byte, contentType string) error

	// SaveFile stores the file at path under key. Backends that live on the
	// local filesystem may move rather than copy.
	SaveFile(ctx context.Context, key, path string) error

	// LocalPath returns the local filesystem path if the artifact exists on
	// disk. Returns "" if not available locally.
	LocalPath(key string) string

	// URL returns a presigned URL for the artifact.
	// Returns "" for local-only backends.
	URL(ctx context.Context, key string) (string, error)

	// Open returns a reader for the artifact.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks if an artifact exists in any backend.
	Exists(ctx context.Context, key string) bool

	// Type returns "local", "s3", or "tiered".
	Type() string
}

// New creates an ArtifactStore based on config. Returns the store and
// optional background services (retention pruner, upload reconciler) that
// the caller must Start/Stop. Returns an error if S3 is configured but
// unreachable.
func New(cfg config.S3Config, outputDir string, log zerolog.Logger) (ArtifactStore, []BackgroundService, error) {
	if !cfg.Enabled() {
		return NewLocalStore(outputDir), nil, nil
	}

	s3store, err := NewS3Store(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("S3 init failed: %w", err)
	}

	// Startup validation: verify credentials and bucket access
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s3store.HeadBucket(ctx); err != nil {
		return nil, nil, fmt.Errorf("S3 startup check failed (bucket=%q endpoint=%q): %w",
			cfg.Bucket, cfg.Endpoint, err)
	}
	log.Info().Str("bucket", cfg.Bucket).Str("endpoint", cfg.Endpoint).Msg("S3 connection verified")

	if !cfg.LocalCache {
		return s3store, nil, nil
	}

	// Tiered mode: local primary + S3 backup
	local := NewLocalStore(outputDir)
	tiered := NewTieredStore(s3store, local, log)

	var services []BackgroundService

	if cfg.CacheRetention > 0 || cfg.CacheMaxGB > 0 {
		services = append(services, NewRetentionPruner(outputDir, cfg.CacheRetention, cfg.CacheMaxGB, s3store, log))
	}
	services = append(services, NewUploadReconciler(outputDir, s3store, log))

	return tiered, services, nil
}

// BackgroundService is a stoppable background goroutine.
type BackgroundService interface {
	Start()
	Stop()
}
