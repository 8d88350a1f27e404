package transcribe

import (
	"encoding/json"
	"strconv"
)

// Observed Whisper-compatible servers disagree on segment record shape: some
// emit snake_case field records, others camelCase mappings, and some encode
// numerics as strings. NormalizeSegments flattens all of them into []Segment
// at the boundary so nothing downstream branches on shape. Missing optional
// numeric fields default to 0.0.
func NormalizeSegments(raw []json.RawMessage) []Segment {
	segments := make([]Segment, 0, len(raw))
	for i, r := range raw {
		var m map[string]json.RawMessage
		if err := json.Unmarshal(r, &m); err != nil {
			continue
		}
		seg := Segment{
			Index:        int(pickFloat(m, "id", "index")),
			Start:        pickFloat(m, "start", "start_time", "startTime"),
			End:          pickFloat(m, "end", "end_time", "endTime"),
			Text:         pickString(m, "text"),
			NoSpeechProb: pickFloat(m, "no_speech_prob", "noSpeechProb", "no_speech_probability"),
		}
		if seg.Index == 0 {
			seg.Index = i
		}
		segments = append(segments, seg)
	}
	return segments
}

// pickFloat returns the first present key decoded as a float. Accepts JSON
// numbers and numeric strings; anything else counts as absent.
func pickFloat(m map[string]json.RawMessage, keys ...string) float64 {
	for _, k := range keys {
		r, ok := m[k]
		if !ok {
			continue
		}
		var f float64
		if err := json.Unmarshal(r, &f); err == nil {
			return f
		}
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f
			}
		}
	}
	return 0.0
}

func pickString(m map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		r, ok := m[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			return s
		}
	}
	return ""
}
