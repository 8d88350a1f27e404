package transcribe

import (
	"encoding/json"
	"testing"
)

func rawSegments(t *testing.T, jsonArr string) []json.RawMessage {
	t.Helper()
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(jsonArr), &raw); err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestNormalizeSegments_FieldStyle(t *testing.T) {
	raw := rawSegments(t, `[
		{"id": 3, "start": 1.5, "end": 2.5, "text": "hello", "no_speech_prob": 0.12},
		{"id": 4, "start": 3.0, "end": 4.0, "text": "world", "no_speech_prob": 0.88}
	]`)

	segs := NormalizeSegments(raw)
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segs))
	}
	if segs[0].Index != 3 || segs[0].Start != 1.5 || segs[0].End != 2.5 || segs[0].Text != "hello" {
		t.Errorf("segment 0 mismatch: %+v", segs[0])
	}
	if segs[1].NoSpeechProb != 0.88 {
		t.Errorf("no_speech_prob = %v, want 0.88", segs[1].NoSpeechProb)
	}
}

func TestNormalizeSegments_MappingStyleKeys(t *testing.T) {
	raw := rawSegments(t, `[
		{"index": 1, "startTime": 0.5, "endTime": 1.0, "text": "hi", "noSpeechProb": 0.3}
	]`)

	segs := NormalizeSegments(raw)
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	s := segs[0]
	if s.Index != 1 || s.Start != 0.5 || s.End != 1.0 || s.NoSpeechProb != 0.3 {
		t.Errorf("mapping-style segment not normalized: %+v", s)
	}
}

func TestNormalizeSegments_MissingFieldsDefaultZero(t *testing.T) {
	raw := rawSegments(t, `[{"text": "bare"}]`)

	segs := NormalizeSegments(raw)
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	s := segs[0]
	if s.Start != 0.0 || s.End != 0.0 || s.NoSpeechProb != 0.0 {
		t.Errorf("missing numeric fields should default to 0.0: %+v", s)
	}
}

func TestNormalizeSegments_NumericStrings(t *testing.T) {
	raw := rawSegments(t, `[
		{"start": "2.25", "end": "4.75", "text": "quoted", "no_speech_prob": "0.6"}
	]`)

	segs := NormalizeSegments(raw)
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	s := segs[0]
	if s.Start != 2.25 || s.End != 4.75 || s.NoSpeechProb != 0.6 {
		t.Errorf("numeric strings not parsed: %+v", s)
	}
}

func TestNormalizeSegments_FallbackIndexFromPosition(t *testing.T) {
	raw := rawSegments(t, `[{"text": "a"}, {"text": "b"}, {"text": "c"}]`)

	segs := NormalizeSegments(raw)
	for i, s := range segs {
		if s.Index != i {
			t.Errorf("segment %d: Index = %d, want %d", i, s.Index, i)
		}
	}
}

func TestNormalizeSegments_SkipsUndecodable(t *testing.T) {
	raw := rawSegments(t, `[{"text": "ok"}, 42, "nope"]`)

	segs := NormalizeSegments(raw)
	if len(segs) != 1 {
		t.Fatalf("expected undecodable elements skipped, got %d segments", len(segs))
	}
}
