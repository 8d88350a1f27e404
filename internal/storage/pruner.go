package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RetentionPruner evicts old artifacts from the local output directory.
// S3 retains everything permanently, so the pruner only touches local disk,
// and it verifies the artifact exists in S3 before deleting.
type RetentionPruner struct {
	outputDir string
	retention time.Duration
	maxBytes  int64
	interval  time.Duration
	s3        *S3Store
	log       zerolog.Logger
	stop      chan struct{}
	stopOnce  sync.Once
}

// NewRetentionPruner creates a pruner that evicts artifacts by age and/or
// total size.
func NewRetentionPruner(outputDir string, retention time.Duration, maxGB int, s3 *S3Store, log zerolog.Logger) *RetentionPruner {
	return &RetentionPruner{
		outputDir: outputDir,
		retention: retention,
		maxBytes:  int64(maxGB) * 1024 * 1024 * 1024,
		interval:  1 * time.Hour,
		s3:        s3,
		log:       log.With().Str("component", "retention-pruner").Logger(),
		stop:      make(chan struct{}),
	}
}

func (p *RetentionPruner) Start() {
	go p.loop()
}

func (p *RetentionPruner) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

func (p *RetentionPruner) loop() {
	// Run once on startup to clear any backlog from downtime
	p.prune()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.prune()
		case <-p.stop:
			return
		}
	}
}

func (p *RetentionPruner) prune() {
	if p.retention == 0 && p.maxBytes == 0 {
		return
	}

	cutoff := time.Now().Add(-p.retention)
	var totalSize int64
	var prunedCount int
	var prunedBytes int64
	var skippedNotInS3 int

	type fileEntry struct {
		key     string
		modTime time.Time
		size    int64
	}
	var files []fileEntry

	entries, _ := os.ReadDir(p.outputDir)
	for _, e := range entries {
		if e.IsDir() || isTempArtifact(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fileEntry{
			key:     e.Name(),
			modTime: info.ModTime(),
			size:    info.Size(),
		})
		totalSize += info.Size()
	}

	// Evict oldest first when over the size cap
	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.Before(files[j].modTime)
	})

	for _, f := range files {
		shouldPrune := false

		if p.retention > 0 && f.modTime.Before(cutoff) {
			shouldPrune = true
		}
		if p.maxBytes > 0 && totalSize > p.maxBytes {
			shouldPrune = true
		}
		if !shouldPrune {
			continue
		}

		if p.s3 != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			inS3 := p.s3.Exists(ctx, f.key)
			cancel()
			if !inS3 {
				skippedNotInS3++
				p.log.Warn().Str("key", f.key).Msg("skipping prune: artifact not in S3")
				continue
			}
		}
		if err := os.Remove(filepath.Join(p.outputDir, f.key)); err == nil {
			prunedCount++
			prunedBytes += f.size
			totalSize -= f.size
		}
	}

	if prunedCount > 0 || skippedNotInS3 > 0 {
		p.log.Info().
			Int("pruned", prunedCount).
			Str("freed", humanizeBytes(prunedBytes)).
			Str("remaining", humanizeBytes(totalSize)).
			Int("skipped_not_in_s3", skippedNotInS3).
			Msg("retention prune complete")
	}
}

// isTempArtifact reports whether name is an in-flight atomic write.
func isTempArtifact(name string) bool {
	return strings.HasPrefix(name, ".artifact-") && strings.HasSuffix(name, ".tmp")
}

func humanizeBytes(b int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case b >= GB:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
