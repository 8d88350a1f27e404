// Package assemble extracts each keep interval from a source file and joins
// the fragments, in chronological order, into one output. It is the only
// component that owns disk state: a scoped working directory per assembly,
// torn down on every exit path.
package assemble

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/clipsmith/cut-engine/internal/interval"
)

// ErrNothingToKeep is returned for an empty keep plan. The caller decides
// whether that means passing the original through or rejecting the request;
// the assembler never silently copies the source.
var ErrNothingToKeep = errors.New("assemble: keep plan is empty")

// ExtractionError reports a failed fragment extraction. Any single failure
// aborts the whole assembly; there is no partial output.
type ExtractionError struct {
	Interval interval.Interval
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("assemble: extraction of [%.3f, %.3f) failed: %v", e.Interval.Start, e.Interval.End, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ConcatError reports a failed final concatenation.
type ConcatError struct {
	Err error
}

func (e *ConcatError) Error() string { return "assemble: concatenation failed: " + e.Err.Error() }

func (e *ConcatError) Unwrap() error { return e.Err }

// Transcoder is the narrow view of the media engine the assembler needs.
type Transcoder interface {
	Extract(ctx context.Context, src string, start, duration float64, dst string) error
	Concat(ctx context.Context, fragments []string, dst string) error
}

// Result summarizes a completed assembly.
type Result struct {
	OutputPath    string
	SegmentsKept  int
	TotalDuration float64 // summed duration of kept intervals, seconds
}

// Options configures an Assembler.
type Options struct {
	// WorkRoot is the directory under which per-assembly scoped directories
	// are created. Defaults to os.TempDir().
	WorkRoot string

	// Parallelism bounds concurrent fragment extractions. Defaults to 1.
	Parallelism int

	Log zerolog.Logger
}

// Assembler runs cut assemblies against a Transcoder.
type Assembler struct {
	tc   Transcoder
	opts Options
}

// New creates an Assembler.
func New(tc Transcoder, opts Options) *Assembler {
	if opts.WorkRoot == "" {
		opts.WorkRoot = os.TempDir()
	}
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}
	return &Assembler{tc: tc, opts: opts}
}

// Assemble extracts every interval of plan from sourceMedia and concatenates
// the fragments, in plan order, into outputPath.
//
// Contract: the plan must be ascending and disjoint (the planner guarantees
// this). Extractions may run in parallel but concatenation always consumes
// fragments in plan order. The scoped working directory is removed whether
// Assemble succeeds, fails, or is cancelled, and a partial output file never
// survives an error.
func (a *Assembler) Assemble(ctx context.Context, sourceMedia string, plan []interval.Interval, outputPath string) (*Result, error) {
	if len(plan) == 0 {
		return nil, ErrNothingToKeep
	}

	result := &Result{OutputPath: outputPath, SegmentsKept: len(plan)}
	for _, iv := range plan {
		result.TotalDuration += iv.Duration()
	}

	// Single interval: one direct extraction, no fragments, no concat.
	if len(plan) == 1 {
		iv := plan[0]
		if err := a.tc.Extract(ctx, sourceMedia, iv.Start, iv.Duration(), outputPath); err != nil {
			os.Remove(outputPath)
			return nil, &ExtractionError{Interval: iv, Err: err}
		}
		return result, nil
	}

	workDir := filepath.Join(a.opts.WorkRoot, "assemble-"+uuid.NewString())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("assemble: create work dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			a.opts.Log.Warn().Err(err).Str("dir", workDir).Msg("failed to remove work dir")
		}
	}()

	ext := filepath.Ext(sourceMedia)
	fragments := make([]string, len(plan))
	for i := range plan {
		fragments[i] = filepath.Join(workDir, fmt.Sprintf("fragment_%04d%s", i, ext))
	}

	// Extract in parallel; fragment paths are indexed by plan position, so
	// completion order never affects concatenation order.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Parallelism)
	for i, iv := range plan {
		i, iv := i, iv
		g.Go(func() error {
			if err := a.tc.Extract(gctx, sourceMedia, iv.Start, iv.Duration(), fragments[i]); err != nil {
				return &ExtractionError{Interval: iv, Err: err}
			}
			a.opts.Log.Debug().
				Int("fragment", i).
				Float64("start", iv.Start).
				Float64("duration", iv.Duration()).
				Msg("fragment extracted")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := a.tc.Concat(ctx, fragments, outputPath); err != nil {
		os.Remove(outputPath)
		return nil, &ConcatError{Err: err}
	}

	a.opts.Log.Info().
		Int("segments", len(plan)).
		Float64("duration", result.TotalDuration).
		Str("output", outputPath).
		Msg("assembly complete")
	return result, nil
}
