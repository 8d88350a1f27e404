package database

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TranscriptRow stores the transcription result for one job. Segments are
// kept as JSON so the cut-selection client can re-fetch them unchanged.
type TranscriptRow struct {
	ID        int             `json:"id"`
	JobID     uuid.UUID       `json:"job_id"`
	Text      string          `json:"text"`
	Language  string          `json:"language"`
	Duration  float64         `json:"duration"`
	Provider  string          `json:"provider"`
	Model     string          `json:"model"`
	Segments  json.RawMessage `json:"segments"`
	CreatedAt time.Time       `json:"created_at"`
}

// InsertTranscript stores a transcript, replacing any previous one for the job.
func (db *DB) InsertTranscript(ctx context.Context, row *TranscriptRow) (int, error) {
	var id int
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO transcripts (job_id, text, language, duration, provider, model, segments)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (job_id) DO UPDATE SET
		   text = EXCLUDED.text, language = EXCLUDED.language, duration = EXCLUDED.duration,
		   provider = EXCLUDED.provider, model = EXCLUDED.model, segments = EXCLUDED.segments
		 RETURNING id`,
		row.JobID, row.Text, row.Language, row.Duration, row.Provider, row.Model, row.Segments,
	).Scan(&id)
	return id, err
}

// GetTranscript fetches the transcript for a job.
func (db *DB) GetTranscript(ctx context.Context, jobID uuid.UUID) (*TranscriptRow, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT id, job_id, text, language, duration, provider, model, segments, created_at
		 FROM transcripts WHERE job_id = $1`, jobID)

	var t TranscriptRow
	err := row.Scan(&t.ID, &t.JobID, &t.Text, &t.Language, &t.Duration,
		&t.Provider, &t.Model, &t.Segments, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
