// Package silence derives candidate non-speech intervals from a transcript's
// speech segments. The output is advisory: callers present it to a user who
// accepts, rejects, or edits the intervals before anything is cut.
package silence

import (
	"errors"
	"sort"

	"github.com/clipsmith/cut-engine/internal/interval"
	"github.com/clipsmith/cut-engine/internal/transcribe"
)

// ErrInsufficientInput is returned when there are no segments to analyze.
var ErrInsufficientInput = errors.New("silence: no transcript segments to analyze")

// Strategy selects the detection heuristic.
type Strategy string

const (
	// StrategyGap finds gaps between adjacent segments. Default, most robust.
	StrategyGap Strategy = "gap"

	// StrategyLikelihood emits segments whose own no-speech probability
	// exceeds a threshold. Blind to silence inside low-probability segments.
	StrategyLikelihood Strategy = "likelihood"

	// StrategyUniform partitions the whole duration into fixed windows.
	// A placeholder for music-like input where the likelihood signal is
	// meaningless; its confidence values are synthetic, not measured.
	StrategyUniform Strategy = "uniform"
)

const (
	// DefaultMinDuration is the minimum silence length worth proposing.
	DefaultMinDuration = 1.0

	// DefaultThreshold is the no-speech probability cutoff for
	// StrategyLikelihood.
	DefaultThreshold = 0.3

	// SpeechAbsentThreshold is the mean no-speech probability above which
	// the transcript likely describes non-speech content (music, ambience)
	// and StrategyUniform is the sane fallback.
	SpeechAbsentThreshold = 0.4

	// uniformWindow is the fixed window width for StrategyUniform.
	uniformWindow = 3.0

	// uniformConfidence is the synthetic confidence attached to uniform
	// windows. It is a marker value, not a measurement.
	uniformConfidence = 0.5

	// maxConfidenceGap is the gap length in seconds at which gap-derived
	// confidence saturates at 1.0.
	maxConfidenceGap = 5.0
)

// Config tunes a Detect call. Zero values fall back to defaults.
type Config struct {
	Strategy    Strategy
	MinDuration float64
	Threshold   float64
}

// Interval is a proposed silence range with a confidence in [0,1] encoding
// how strongly the range is believed to be non-speech.
type Interval struct {
	interval.Interval
	Confidence float64 `json:"confidence"`
	Synthetic  bool    `json:"synthetic,omitempty"`
}

// Detect runs the configured strategy over the segments. totalDuration bounds
// leading/trailing gaps and the uniform partition. Results are ascending by
// start. Detect is a pure function: no I/O, no retained state.
func Detect(segments []transcribe.Segment, totalDuration float64, cfg Config) ([]Interval, error) {
	if len(segments) == 0 {
		return nil, ErrInsufficientInput
	}
	if cfg.MinDuration <= 0 {
		cfg.MinDuration = DefaultMinDuration
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}

	switch cfg.Strategy {
	case StrategyLikelihood:
		return detectLikelihood(segments, cfg), nil
	case StrategyUniform:
		return detectUniform(totalDuration, cfg), nil
	default:
		return detectGaps(segments, totalDuration, cfg), nil
	}
}

// MeanNoSpeechProb returns the mean no-speech probability across segments,
// or 0 for an empty slice. Callers use it with SpeechAbsentThreshold to
// decide whether to fall back to StrategyUniform.
func MeanNoSpeechProb(segments []transcribe.Segment) float64 {
	if len(segments) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range segments {
		sum += s.NoSpeechProb
	}
	return sum / float64(len(segments))
}

func detectGaps(segments []transcribe.Segment, totalDuration float64, cfg Config) []Interval {
	sorted := make([]transcribe.Segment, len(segments))
	copy(sorted, segments)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var out []Interval

	if lead := sorted[0].Start; lead >= cfg.MinDuration {
		out = append(out, gapInterval(0, sorted[0].Start))
	}

	// Sweep with a running end so overlapping segments don't fabricate
	// negative or bogus gaps.
	end := sorted[0].End
	for _, s := range sorted[1:] {
		if gap := s.Start - end; gap >= cfg.MinDuration {
			out = append(out, gapInterval(end, s.Start))
		}
		if s.End > end {
			end = s.End
		}
	}

	if trail := totalDuration - end; trail >= cfg.MinDuration {
		out = append(out, gapInterval(end, totalDuration))
	}
	return out
}

func gapInterval(start, end float64) Interval {
	confidence := (end - start) / maxConfidenceGap
	if confidence > 1.0 {
		confidence = 1.0
	}
	return Interval{
		Interval:   interval.Interval{Start: start, End: end},
		Confidence: confidence,
	}
}

func detectLikelihood(segments []transcribe.Segment, cfg Config) []Interval {
	sorted := make([]transcribe.Segment, len(segments))
	copy(sorted, segments)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var out []Interval
	for _, s := range sorted {
		if s.NoSpeechProb > cfg.Threshold && s.End-s.Start >= cfg.MinDuration {
			out = append(out, Interval{
				Interval:   interval.Interval{Start: s.Start, End: s.End},
				Confidence: s.NoSpeechProb,
			})
		}
	}
	return out
}

func detectUniform(totalDuration float64, cfg Config) []Interval {
	var out []Interval
	for start := 0.0; start < totalDuration; start += uniformWindow {
		end := start + uniformWindow
		if end > totalDuration {
			end = totalDuration
		}
		if end-start < cfg.MinDuration {
			break
		}
		out = append(out, Interval{
			Interval:   interval.Interval{Start: start, End: end},
			Confidence: uniformConfidence,
			Synthetic:  true,
		})
	}
	return out
}
