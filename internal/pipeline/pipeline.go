package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clipsmith/cut-engine/internal/api"
	"github.com/clipsmith/cut-engine/internal/assemble"
	"github.com/clipsmith/cut-engine/internal/cutplan"
	"github.com/clipsmith/cut-engine/internal/database"
	"github.com/clipsmith/cut-engine/internal/interval"
	"github.com/clipsmith/cut-engine/internal/metrics"
	"github.com/clipsmith/cut-engine/internal/silence"
	"github.com/clipsmith/cut-engine/internal/storage"
	"github.com/clipsmith/cut-engine/internal/transcribe"
)

// Job states, in pipeline order. Failed is terminal and carries the stage
// that broke plus its cause in the job row.
const (
	StateUploaded        = "uploaded"
	StateTranscribing    = "transcribing"
	StateSilenceDetected = "silence_detected"
	StateAwaitingCuts    = "awaiting_cut_selection"
	StatePlanning        = "planning"
	StateAssembling      = "assembling"
	StateComplete        = "complete"
	StateFailed          = "failed"
)

// StageError wraps a failure with the pipeline stage it happened in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Stage + ": " + e.Err.Error() }
func (e *StageError) Unwrap() error { return e.Err }

// MediaProcessor is the subset of ffmpeg operations the pipeline calls
// directly. The assembler holds its own Transcoder.
type MediaProcessor interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
	ConvertToMP4(ctx context.Context, src, dst string) error
}

// JobStore is the persistence surface the pipeline needs. *database.DB
// implements it.
type JobStore interface {
	InsertJob(ctx context.Context, id uuid.UUID, state, sourceName, mediaPath string) error
	UpdateJobState(ctx context.Context, id uuid.UUID, state string) error
	SetJobDuration(ctx context.Context, id uuid.UUID, duration float64) error
	MarkJobFailed(ctx context.Context, id uuid.UUID, state, stage, cause string) error
	SetJobOutput(ctx context.Context, id uuid.UUID, state, outputKey string, segmentsKept int) error
	GetJob(ctx context.Context, id uuid.UUID) (*database.JobRow, error)
	InsertTranscript(ctx context.Context, row *database.TranscriptRow) (int, error)
}

// Options configures a pipeline Service.
type Options struct {
	UploadDir         string
	TranscribeTimeout time.Duration
	AssembleTimeout   time.Duration
	MaxConcurrent     int
	Log               zerolog.Logger
}

// Service runs the cut pipeline: transcription, silence detection, cut
// planning and assembly. It implements api.MediaService.
type Service struct {
	db        JobStore
	provider  transcribe.Provider
	proc      MediaProcessor
	assembler *assemble.Assembler
	store     storage.ArtifactStore
	bus       *EventBus
	gate      *Gate
	opts      Options
	log       zerolog.Logger

	mu      sync.Mutex
	cutting map[uuid.UUID]struct{}
}

// New creates the pipeline service.
func New(db JobStore, provider transcribe.Provider, proc MediaProcessor,
	assembler *assemble.Assembler, store storage.ArtifactStore, bus *EventBus, opts Options) *Service {
	if opts.TranscribeTimeout <= 0 {
		opts.TranscribeTimeout = 5 * time.Minute
	}
	if opts.AssembleTimeout <= 0 {
		opts.AssembleTimeout = 10 * time.Minute
	}
	return &Service{
		db:        db,
		provider:  provider,
		proc:      proc,
		assembler: assembler,
		store:     store,
		bus:       bus,
		gate:      NewGate(opts.MaxConcurrent),
		opts:      opts,
		log:       opts.Log.With().Str("component", "pipeline").Logger(),
		cutting:   make(map[uuid.UUID]struct{}),
	}
}

// Gate exposes the concurrency gate for stats collection.
func (s *Service) Gate() *Gate { return s.gate }

// ActiveJobs implements metrics.PipelineStats.
func (s *Service) ActiveJobs() int { return s.gate.ActiveJobs() }

// SSESubscriberCount implements metrics.PipelineStats.
func (s *Service) SSESubscriberCount() int { return s.bus.SubscriberCount() }

// convertBeforeTranscribe lists container formats the transcription API
// rejects; they get remuxed to mp4 first. Assembly still cuts the original.
var convertBeforeTranscribe = map[string]bool{
	".avi": true,
	".mov": true,
}

// SubmitMedia stores the upload, transcribes it, derives silence intervals
// and parks the job awaiting cut selection.
func (s *Service) SubmitMedia(ctx context.Context, sub api.MediaSubmission) (*api.MediaAnalysis, error) {
	release, ok := s.gate.Acquire()
	if !ok {
		return nil, api.ErrBusy
	}
	failed := true
	defer func() { release(failed) }()

	jobID := uuid.New()
	jobDir := filepath.Join(s.opts.UploadDir, jobID.String())
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return nil, fmt.Errorf("create job dir: %w", err)
	}
	mediaPath := filepath.Join(jobDir, sub.SourceName)
	if err := os.WriteFile(mediaPath, sub.Data, 0o644); err != nil {
		os.RemoveAll(jobDir)
		return nil, fmt.Errorf("store upload: %w", err)
	}

	log := s.log.With().Stringer("job_id", jobID).Str("source", sub.SourceName).Logger()

	if err := s.db.InsertJob(ctx, jobID, StateUploaded, sub.SourceName, mediaPath); err != nil {
		os.RemoveAll(jobDir)
		return nil, fmt.Errorf("insert job: %w", err)
	}
	s.bus.Publish(jobID.String(), StateUploaded, map[string]any{"source": sub.SourceName})

	// Transcribe
	s.setState(ctx, jobID, StateTranscribing, nil)
	res, err := s.transcribeMedia(ctx, jobDir, mediaPath)
	if err != nil {
		return nil, s.fail(ctx, jobID, jobDir, "transcribe", err)
	}

	duration := res.Duration
	if duration <= 0 {
		duration, err = s.proc.ProbeDuration(ctx, mediaPath)
		if err != nil {
			return nil, s.fail(ctx, jobID, jobDir, "probe", err)
		}
	}
	if err := s.db.SetJobDuration(ctx, jobID, duration); err != nil {
		return nil, s.fail(ctx, jobID, jobDir, "transcribe", err)
	}

	segJSON, _ := json.Marshal(res.Segments)
	_, err = s.db.InsertTranscript(ctx, &database.TranscriptRow{
		JobID:    jobID,
		Text:     res.Text,
		Language: res.Language,
		Duration: duration,
		Provider: s.provider.Name(),
		Model:    s.provider.Model(),
		Segments: segJSON,
	})
	if err != nil {
		return nil, s.fail(ctx, jobID, jobDir, "transcribe", err)
	}

	// Detect silences. Without an explicit strategy, transcripts that look
	// like non-speech content fall back to uniform windows.
	cfg := sub.Detect
	if cfg.Strategy == "" {
		cfg.Strategy = silence.StrategyGap
		if silence.MeanNoSpeechProb(res.Segments) > silence.SpeechAbsentThreshold {
			cfg.Strategy = silence.StrategyUniform
			log.Info().Msg("transcript looks non-speech, falling back to uniform windows")
		}
	}
	silences, err := silence.Detect(res.Segments, duration, cfg)
	if err != nil {
		return nil, s.fail(ctx, jobID, jobDir, "detect", err)
	}
	metrics.SilenceIntervalsDetected.WithLabelValues(string(cfg.Strategy)).Add(float64(len(silences)))

	s.setState(ctx, jobID, StateSilenceDetected, map[string]any{"silences": len(silences)})
	s.setState(ctx, jobID, StateAwaitingCuts, nil)

	log.Info().
		Float64("duration", duration).
		Int("segments", len(res.Segments)).
		Int("silences", len(silences)).
		Str("strategy", string(cfg.Strategy)).
		Msg("media analyzed, awaiting cut selection")

	failed = false
	return &api.MediaAnalysis{
		JobID:    jobID,
		Text:     res.Text,
		Language: res.Language,
		Duration: duration,
		Strategy: cfg.Strategy,
		Segments: res.Segments,
		Silences: silences,
	}, nil
}

// ApplyCuts validates the cut list against the job, assembles the kept
// intervals and stores the output artifact. Jobs can be re-cut after
// completion; the source media is retained until the job is pruned.
func (s *Service) ApplyCuts(ctx context.Context, jobID uuid.UUID, cuts []interval.Interval) (*api.CutResult, error) {
	// One cut at a time per job. Concurrent re-cuts would race on the same
	// output path inside the job dir.
	if !s.beginCut(jobID) {
		return nil, fmt.Errorf("%w (cut already in progress)", api.ErrJobNotAwaitingCuts)
	}
	defer s.endCut(jobID)

	job, err := s.db.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, api.ErrJobNotFound
		}
		return nil, fmt.Errorf("load job: %w", err)
	}
	if job.State != StateAwaitingCuts && job.State != StateComplete {
		return nil, fmt.Errorf("%w (state %s)", api.ErrJobNotAwaitingCuts, job.State)
	}
	if job.Duration == nil {
		return nil, cutplan.ErrUnknownDuration
	}

	// An invalid cut list rejects the whole request and leaves the job
	// untouched, so the client can correct and resubmit.
	plan, err := cutplan.Plan(cuts, *job.Duration)
	if err != nil {
		return nil, err
	}
	if len(plan) == 0 {
		return nil, assemble.ErrNothingToKeep
	}

	release, ok := s.gate.Acquire()
	if !ok {
		return nil, api.ErrBusy
	}
	failed := true
	defer func() { release(failed) }()

	jobDir := filepath.Dir(job.MediaPath)
	outputName := "cut_" + job.SourceName
	outputPath := filepath.Join(jobDir, outputName)

	log := s.log.With().Stringer("job_id", jobID).Logger()
	log.Info().Int("cuts", len(cuts)).Int("keep_intervals", len(plan)).Msg("assembling cut output")

	s.setState(ctx, jobID, StatePlanning, map[string]any{"cuts": len(cuts), "keep_intervals": len(plan)})
	s.setState(ctx, jobID, StateAssembling, nil)

	actx, cancel := context.WithTimeout(ctx, s.opts.AssembleTimeout)
	defer cancel()

	start := time.Now()
	result, err := s.assembler.Assemble(actx, job.MediaPath, plan, outputPath)
	if err != nil {
		return nil, s.fail(ctx, jobID, jobDir, "assemble", err)
	}
	metrics.AssemblyDuration.Observe(time.Since(start).Seconds())

	if err := s.store.SaveFile(ctx, outputName, result.OutputPath); err != nil {
		os.Remove(result.OutputPath)
		return nil, s.fail(ctx, jobID, jobDir, "store", err)
	}

	if err := s.db.SetJobOutput(ctx, jobID, StateComplete, outputName, result.SegmentsKept); err != nil {
		return nil, s.fail(ctx, jobID, jobDir, "store", err)
	}
	s.bus.Publish(jobID.String(), StateComplete, map[string]any{
		"output":        outputName,
		"segments_kept": result.SegmentsKept,
		"keep_duration": result.TotalDuration,
	})
	metrics.JobsTotal.WithLabelValues(StateComplete).Inc()

	log.Info().
		Str("output", outputName).
		Int("segments_kept", result.SegmentsKept).
		Float64("keep_duration", result.TotalDuration).
		Msg("cut output stored")

	failed = false
	return &api.CutResult{
		JobID:        jobID,
		OutputName:   outputName,
		SegmentsKept: result.SegmentsKept,
		KeepDuration: result.TotalDuration,
		DownloadURL:  "/api/v1/downloads/" + outputName,
	}, nil
}

// beginCut reserves exclusive cut rights on a job.
func (s *Service) beginCut(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.cutting[id]; busy {
		return false
	}
	s.cutting[id] = struct{}{}
	return true
}

func (s *Service) endCut(id uuid.UUID) {
	s.mu.Lock()
	delete(s.cutting, id)
	s.mu.Unlock()
}

// transcribeMedia sends the media to the provider, remuxing containers the
// transcription API refuses.
func (s *Service) transcribeMedia(ctx context.Context, jobDir, mediaPath string) (*transcribe.Result, error) {
	transcribePath := mediaPath
	if convertBeforeTranscribe[strings.ToLower(filepath.Ext(mediaPath))] {
		converted := filepath.Join(jobDir, "transcribe_source.mp4")
		if err := s.proc.ConvertToMP4(ctx, mediaPath, converted); err != nil {
			return nil, fmt.Errorf("convert for transcription: %w", err)
		}
		defer os.Remove(converted)
		transcribePath = converted
	}

	tctx, cancel := context.WithTimeout(ctx, s.opts.TranscribeTimeout)
	defer cancel()

	start := time.Now()
	res, err := s.provider.Transcribe(tctx, transcribePath, transcribe.Opts{})
	if err != nil {
		return nil, err
	}
	metrics.TranscriptionDuration.Observe(time.Since(start).Seconds())
	return res, nil
}

// setState persists a state transition and publishes it. Bookkeeping runs on
// a detached context so a dropped client doesn't strand the row mid-state.
func (s *Service) setState(ctx context.Context, jobID uuid.UUID, state string, payload map[string]any) {
	bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.db.UpdateJobState(bctx, jobID, state); err != nil {
		s.log.Error().Err(err).Stringer("job_id", jobID).Str("state", state).Msg("state update failed")
	}
	s.bus.Publish(jobID.String(), state, payload)
}

// fail marks the job failed at the given stage and returns the wrapped
// error. A non-empty jobDir is removed: failed jobs cannot be resumed, so
// their uploads are dead weight.
func (s *Service) fail(ctx context.Context, jobID uuid.UUID, jobDir, stage string, err error) error {
	bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if dberr := s.db.MarkJobFailed(bctx, jobID, StateFailed, stage, err.Error()); dberr != nil {
		s.log.Error().Err(dberr).Stringer("job_id", jobID).Msg("failed to record job failure")
	}
	s.bus.Publish(jobID.String(), StateFailed, map[string]any{"stage": stage, "cause": err.Error()})
	metrics.JobsTotal.WithLabelValues(StateFailed).Inc()
	metrics.StageFailuresTotal.WithLabelValues(stage).Inc()

	if jobDir != "" {
		os.RemoveAll(jobDir)
	}

	s.log.Warn().Err(err).Stringer("job_id", jobID).Str("stage", stage).Msg("pipeline stage failed")
	return &StageError{Stage: stage, Err: err}
}
