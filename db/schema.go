// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB, dialect string) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	if dialect == DialectPostgres {
		if _, err := db.Exec(notifyTriggers); err != nil {
			return fmt.Errorf("failed to create notify triggers: %w", err)
		}
	}

	return nil
}

const schema = `
-- Voters
CREATE TABLE IF NOT EXISTS voters (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    nik TEXT NOT NULL DEFAULT '',
    address TEXT NOT NULL DEFAULT '',
    invitation_code TEXT NOT NULL UNIQUE,
    gender TEXT NOT NULL DEFAULT '',
    is_present BOOLEAN NOT NULL DEFAULT FALSE,
    has_voted BOOLEAN NOT NULL DEFAULT FALSE,
    status TEXT NOT NULL DEFAULT 'registered' CHECK (status IN ('registered', 'checked_in', 'called', 'voted')),
    queue_timestamp TIMESTAMP,
    called_at TIMESTAMP,
    skip_count INTEGER NOT NULL DEFAULT 0 CHECK (skip_count >= 0),
    checked_in_at TIMESTAMP,
    voted_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_voters_status ON voters(status);
CREATE INDEX IF NOT EXISTS idx_voters_queue ON voters(status, queue_timestamp);

-- Candidates
CREATE TABLE IF NOT EXISTS candidates (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    photo_url TEXT NOT NULL DEFAULT '',
    display_order INTEGER NOT NULL UNIQUE
);

-- Votes (ballots carry no voter reference)
CREATE TABLE IF NOT EXISTS votes (
    id TEXT PRIMARY KEY,
    candidate_id TEXT REFERENCES candidates(id),
    is_valid BOOLEAN NOT NULL,
    recorded_by TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_votes_created_at ON votes(created_at);

-- Settings singleton
CREATE TABLE IF NOT EXISTS settings (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    is_voting_open BOOLEAN NOT NULL DEFAULT FALSE,
    is_registration_open BOOLEAN NOT NULL DEFAULT FALSE,
    election_name TEXT NOT NULL DEFAULT '',
    location TEXT NOT NULL DEFAULT '',
    starts_at TIMESTAMP,
    ends_at TIMESTAMP,
    updated_at TIMESTAMP NOT NULL
);

-- Audit side channel
CREATE TABLE IF NOT EXISTS voting_audits (
    id TEXT PRIMARY KEY,
    voter_id TEXT NOT NULL REFERENCES voters(id) ON DELETE CASCADE,
    terminal_id TEXT NOT NULL DEFAULT '',
    snapshot_url TEXT NOT NULL DEFAULT '',
    video_url TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_voting_audits_voter ON voting_audits(voter_id);
`

// notifyTriggers publishes {table, op, id} on the pilrt_changes channel for
// every row change, feeding feed.PGListener.
const notifyTriggers = `
CREATE OR REPLACE FUNCTION pilrt_notify_change() RETURNS trigger AS $$
DECLARE
    row_id TEXT;
BEGIN
    IF TG_OP = 'DELETE' THEN
        row_id := OLD.id::text;
    ELSE
        row_id := NEW.id::text;
    END IF;
    PERFORM pg_notify('pilrt_changes', json_build_object('table', TG_TABLE_NAME, 'op', TG_OP, 'id', row_id)::text);
    RETURN NULL;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS voters_notify ON voters;
CREATE TRIGGER voters_notify AFTER INSERT OR UPDATE OR DELETE ON voters
    FOR EACH ROW EXECUTE FUNCTION pilrt_notify_change();

DROP TRIGGER IF EXISTS votes_notify ON votes;
CREATE TRIGGER votes_notify AFTER INSERT OR UPDATE OR DELETE ON votes
    FOR EACH ROW EXECUTE FUNCTION pilrt_notify_change();

DROP TRIGGER IF EXISTS settings_notify ON settings;
CREATE TRIGGER settings_notify AFTER INSERT OR UPDATE OR DELETE ON settings
    FOR EACH ROW EXECUTE FUNCTION pilrt_notify_change();

DROP TRIGGER IF EXISTS candidates_notify ON candidates;
CREATE TRIGGER candidates_notify AFTER INSERT OR UPDATE OR DELETE ON candidates
    FOR EACH ROW EXECUTE FUNCTION pilrt_notify_change();
`
