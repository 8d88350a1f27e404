package database

import "context"

// schemaSQL is the full schema applied to a fresh database.
const schemaSQL = `
CREATE TABLE jobs (
	id uuid PRIMARY KEY,
	state text NOT NULL,
	source_name text NOT NULL,
	media_path text NOT NULL DEFAULT '',
	duration double precision,
	failed_stage text,
	failed_cause text,
	output_key text,
	segments_kept int,
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX jobs_state_idx ON jobs (state);
CREATE INDEX jobs_created_at_idx ON jobs (created_at DESC);

CREATE TABLE transcripts (
	id serial PRIMARY KEY,
	job_id uuid NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
	text text NOT NULL,
	language text NOT NULL DEFAULT '',
	duration double precision NOT NULL DEFAULT 0,
	provider text NOT NULL DEFAULT '',
	model text NOT NULL DEFAULT '',
	segments jsonb NOT NULL DEFAULT '[]',
	created_at timestamptz NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX transcripts_job_idx ON transcripts (job_id);
`

// InitSchema applies the full schema on a fresh database. It checks whether
// the "jobs" table exists as a proxy for whether the schema has been loaded.
// If present, it's a no-op.
func (db *DB) InitSchema(ctx context.Context) error {
	var exists bool
	err := db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT FROM pg_tables WHERE schemaname = 'public' AND tablename = 'jobs')`,
	).Scan(&exists)
	if err != nil {
		return err
	}

	if exists {
		db.log.Debug().Msg("schema already initialized, skipping")
		return nil
	}

	db.log.Info().Msg("fresh database detected, applying schema")
	if _, err := db.Pool.Exec(ctx, schemaSQL); err != nil {
		return err
	}
	db.log.Info().Msg("schema applied successfully")
	return nil
}
