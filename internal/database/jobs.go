package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("database: not found")

// JobRow is one cut request tracked through the pipeline.
type JobRow struct {
	ID           uuid.UUID  `json:"id"`
	State        string     `json:"state"`
	SourceName   string     `json:"source_name"`
	MediaPath    string     `json:"-"`
	Duration     *float64   `json:"duration,omitempty"`
	FailedStage  *string    `json:"failed_stage,omitempty"`
	FailedCause  *string    `json:"failed_cause,omitempty"`
	OutputKey    *string    `json:"output_key,omitempty"`
	SegmentsKept *int       `json:"segments_kept,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// InsertJob creates a new job row in the given state.
func (db *DB) InsertJob(ctx context.Context, id uuid.UUID, state, sourceName, mediaPath string) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO jobs (id, state, source_name, media_path) VALUES ($1, $2, $3, $4)`,
		id, state, sourceName, mediaPath)
	return err
}

// UpdateJobState moves a job to a new state and clears any failure fields.
func (db *DB) UpdateJobState(ctx context.Context, id uuid.UUID, state string) error {
	_, err := db.Pool.Exec(ctx,
		`UPDATE jobs SET state = $2, failed_stage = NULL, failed_cause = NULL, updated_at = now() WHERE id = $1`,
		id, state)
	return err
}

// SetJobDuration records the probed total media duration.
func (db *DB) SetJobDuration(ctx context.Context, id uuid.UUID, duration float64) error {
	_, err := db.Pool.Exec(ctx,
		`UPDATE jobs SET duration = $2, updated_at = now() WHERE id = $1`,
		id, duration)
	return err
}

// MarkJobFailed moves a job to the failed state with the stage and cause.
// Any previously recorded output is cleared so a failed row never advertises
// a downloadable artifact.
func (db *DB) MarkJobFailed(ctx context.Context, id uuid.UUID, state, stage, cause string) error {
	_, err := db.Pool.Exec(ctx,
		`UPDATE jobs SET state = $2, failed_stage = $3, failed_cause = $4,
		   output_key = NULL, segments_kept = NULL, updated_at = now()
		 WHERE id = $1`,
		id, state, stage, cause)
	return err
}

// SetJobOutput records the completed output artifact and segment count.
func (db *DB) SetJobOutput(ctx context.Context, id uuid.UUID, state, outputKey string, segmentsKept int) error {
	_, err := db.Pool.Exec(ctx,
		`UPDATE jobs SET state = $2, output_key = $3, segments_kept = $4, updated_at = now() WHERE id = $1`,
		id, state, outputKey, segmentsKept)
	return err
}

// GetJob fetches a job by id.
func (db *DB) GetJob(ctx context.Context, id uuid.UUID) (*JobRow, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT id, state, source_name, media_path, duration, failed_stage, failed_cause,
		        output_key, segments_kept, created_at, updated_at
		 FROM jobs WHERE id = $1`, id)

	var j JobRow
	err := row.Scan(&j.ID, &j.State, &j.SourceName, &j.MediaPath, &j.Duration,
		&j.FailedStage, &j.FailedCause, &j.OutputKey, &j.SegmentsKept,
		&j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// ListJobs returns the most recent jobs, newest first.
func (db *DB) ListJobs(ctx context.Context, limit, offset int) ([]JobRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, state, source_name, media_path, duration, failed_stage, failed_cause,
		        output_key, segments_kept, created_at, updated_at
		 FROM jobs ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []JobRow
	for rows.Next() {
		var j JobRow
		if err := rows.Scan(&j.ID, &j.State, &j.SourceName, &j.MediaPath, &j.Duration,
			&j.FailedStage, &j.FailedCause, &j.OutputKey, &j.SegmentsKept,
			&j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
