package transcribe

import "context"

// Provider is the interface for speech-to-text backends.
type Provider interface {
	Transcribe(ctx context.Context, mediaPath string, opts Opts) (*Result, error)
	Name() string  // "whisper", "deepinfra"
	Model() string // model identifier for DB/logs
}

// Opts are per-request options for the transcription API.
type Opts struct {
	Temperature float64
	Language    string
	Prompt      string // initial_prompt / domain vocabulary
}

// Result is the common transcription result from any provider.
type Result struct {
	Text     string
	Language string
	Duration float64 // total media duration in seconds
	Segments []Segment
}

// Segment is one timestamped speech segment, normalized from whatever record
// shape the provider returned. Providers do not guarantee ordering by start,
// and pathological transcripts may contain overlapping segments; consumers
// must sort before use and must not assume disjointness.
type Segment struct {
	Index        int     `json:"id"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	Text         string  `json:"text"`
	NoSpeechProb float64 `json:"no_speech_prob"`
}
