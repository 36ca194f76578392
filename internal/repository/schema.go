package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// ApplySchema creates tables and indexes. Safe to run repeatedly.
func ApplySchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Schema DDL for the voter store.
const Schema = `
CREATE TABLE IF NOT EXISTS voters (
    voter_id          UUID PRIMARY KEY,
    state             TEXT NOT NULL,
    lga               TEXT NOT NULL,
    ward              TEXT NOT NULL,
    polling_unit      TEXT NOT NULL,
    polling_unit_code TEXT NOT NULL DEFAULT '',
    territory_key     VARCHAR(32) NOT NULL,
    phone_number      VARCHAR(20) NOT NULL,
    full_name         TEXT,
    email_address     TEXT,
    gender            TEXT,
    age_group         TEXT,
    called_recently   BOOLEAN NOT NULL DEFAULT FALSE,
    last_called_at    TIMESTAMPTZ,
    confirmed_to_vote BOOLEAN,
    demands           TEXT,
    notes             TEXT,
    call_count        INTEGER NOT NULL DEFAULT 0,
    imported_by       TEXT NOT NULL,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT voters_phone_pu_code_key UNIQUE (phone_number, polling_unit_code)
);

CREATE INDEX IF NOT EXISTS idx_voters_territory_queue
    ON voters (territory_key, called_recently, last_called_at DESC);
CREATE INDEX IF NOT EXISTS idx_voters_area
    ON voters (state, lga, ward, polling_unit);

CREATE TABLE IF NOT EXISTS assignments (
    assignment_id     UUID PRIMARY KEY,
    user_id           TEXT NOT NULL,
    state             TEXT NOT NULL,
    lga               TEXT NOT NULL,
    ward              TEXT NOT NULL,
    polling_unit      TEXT NOT NULL,
    polling_unit_code TEXT NOT NULL DEFAULT '',
    territory_key     VARCHAR(32) NOT NULL,
    assigned_by       TEXT NOT NULL,
    assigned_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    is_active         BOOLEAN NOT NULL DEFAULT TRUE,
    deactivated_at    TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_assignments_active_user
    ON assignments (user_id) WHERE is_active;
CREATE UNIQUE INDEX IF NOT EXISTS uq_assignments_active_territory
    ON assignments (territory_key) WHERE is_active;
CREATE UNIQUE INDEX IF NOT EXISTS uq_assignments_active_pu_code
    ON assignments (polling_unit_code) WHERE is_active AND polling_unit_code <> '';
CREATE INDEX IF NOT EXISTS idx_assignments_user ON assignments (user_id, assigned_at DESC);

CREATE TABLE IF NOT EXISTS call_logs (
    call_log_id    UUID PRIMARY KEY,
    voter_id       UUID NOT NULL REFERENCES voters (voter_id),
    volunteer_id   TEXT NOT NULL,
    call_date      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    call_outcome   TEXT NOT NULL CHECK (call_outcome IN ('answered', 'confirmed', 'declined', 'no_answer', 'wrong_number')),
    notes          TEXT,
    data_collected JSONB NOT NULL DEFAULT '{}'::jsonb
);

CREATE INDEX IF NOT EXISTS idx_call_logs_voter ON call_logs (voter_id, call_date DESC);
CREATE INDEX IF NOT EXISTS idx_call_logs_volunteer ON call_logs (volunteer_id, call_date DESC);

CREATE OR REPLACE FUNCTION call_logs_append_only() RETURNS trigger AS $$
BEGIN
    RAISE EXCEPTION 'call_logs is append-only';
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_call_logs_append_only ON call_logs;
CREATE TRIGGER trg_call_logs_append_only
    BEFORE UPDATE OR DELETE ON call_logs
    FOR EACH ROW EXECUTE FUNCTION call_logs_append_only();
`
