// Package media wraps ffmpeg and ffprobe behind a narrow transcoder surface:
// duration probing, sub-range extraction, and same-codec concatenation.
// Codec decisions stay inside this package; everything is stream copy unless
// a format conversion is explicitly requested.
package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrDurationUnavailable is returned when ffprobe cannot determine the total
// duration of a media file.
var ErrDurationUnavailable = errors.New("media: duration unavailable")

// FFmpeg is a transcoder backed by the ffmpeg and ffprobe binaries.
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
	runner      Runner
}

// Option configures an FFmpeg transcoder.
type Option func(*FFmpeg)

// WithFFmpegPath overrides the ffmpeg executable path.
func WithFFmpegPath(path string) Option {
	return func(f *FFmpeg) { f.ffmpegPath = path }
}

// WithFFprobePath overrides the ffprobe executable path.
func WithFFprobePath(path string) Option {
	return func(f *FFmpeg) { f.ffprobePath = path }
}

// WithRunner overrides the command runner (for testing).
func WithRunner(r Runner) Option {
	return func(f *FFmpeg) { f.runner = r }
}

// NewFFmpeg creates a transcoder using binaries from PATH unless overridden.
func NewFFmpeg(opts ...Option) *FFmpeg {
	f := &FFmpeg{
		ffmpegPath:  "ffmpeg",
		ffprobePath: "ffprobe",
		runner:      ExecRunner{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ProbeDuration returns the total duration of the media file in seconds.
func (f *FFmpeg) ProbeDuration(ctx context.Context, path string) (float64, error) {
	out, err := f.runner.Output(ctx, f.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: ffprobe: %v", ErrDurationUnavailable, err)
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: unparseable ffprobe output %q", ErrDurationUnavailable, strings.TrimSpace(string(out)))
	}
	return d, nil
}

// Extract copies the sub-range [start, start+duration) of src into dst using
// stream copy, so boundaries land on the nearest keyframes without re-encode.
func (f *FFmpeg) Extract(ctx context.Context, src string, start, duration float64, dst string) error {
	err := f.runner.Run(ctx, f.ffmpegPath,
		"-ss", formatSeconds(start),
		"-t", formatSeconds(duration),
		"-i", src,
		"-c", "copy",
		"-y",
		dst,
	)
	if err != nil {
		return fmt.Errorf("extract [%s +%s] from %s: %w", formatSeconds(start), formatSeconds(duration), filepath.Base(src), err)
	}
	return nil
}

// Concat joins the fragments, in the given order, into dst via the concat
// demuxer with stream copy. All fragments must share a codec family, which
// holds by construction since they were extracted from one source. The list
// file is written beside the first fragment (the caller's scoped work dir)
// and removed before returning.
func (f *FFmpeg) Concat(ctx context.Context, fragments []string, dst string) error {
	if len(fragments) == 0 {
		return errors.New("media: no fragments to concatenate")
	}

	listPath := filepath.Join(filepath.Dir(fragments[0]), "concat.txt")
	var list strings.Builder
	for _, frag := range fragments {
		fmt.Fprintf(&list, "file '%s'\n", frag)
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	defer os.Remove(listPath)

	err := f.runner.Run(ctx, f.ffmpegPath,
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-y",
		dst,
	)
	if err != nil {
		return fmt.Errorf("concat %d fragments: %w", len(fragments), err)
	}
	return nil
}

// ConvertToMP4 re-encodes src (e.g. .avi, .mov) into an H.264/AAC MP4 that
// transcription endpoints accept.
func (f *FFmpeg) ConvertToMP4(ctx context.Context, src, dst string) error {
	err := f.runner.Run(ctx, f.ffmpegPath,
		"-i", src,
		"-vcodec", "libx264",
		"-acodec", "aac",
		"-y",
		dst,
	)
	if err != nil {
		return fmt.Errorf("convert %s to mp4: %w", filepath.Base(src), err)
	}
	return nil
}

// formatSeconds renders a seconds value the way ffmpeg likes it: plain
// decimal, no exponent, millisecond precision.
func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
