package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"voter-outreach/internal/domain"
)

// PostgresCallLogsRepository voters + call_logs
type PostgresCallLogsRepository struct {
	db *sql.DB
}

// NewPostgresCallLogsRepository creates the repository.
func NewPostgresCallLogsRepository(db *sql.DB) *PostgresCallLogsRepository {
	return &PostgresCallLogsRepository{db: db}
}

var _ CallLogsRepository = (*PostgresCallLogsRepository)(nil)

// RecordCall see CallLogsRepository.
func (r *PostgresCallLogsRepository) RecordCall(ctx context.Context, rec CallRecord) (*domain.VoterRecord, *domain.CallLog, error) {
	if !rec.Outcome.Valid() {
		return nil, nil, fmt.Errorf("%w: %q", domain.ErrInvalidOutcome, rec.Outcome)
	}
	if !isUUID(rec.VoterID) {
		return nil, nil, domain.ErrVoterNotFound
	}
	data, err := json.Marshal(rec.Update.Snapshot())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode collected data: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	u := rec.Update
	row := tx.QueryRowContext(ctx, `
		UPDATE voters SET
			confirmed_to_vote = COALESCE($3, confirmed_to_vote),
			notes             = COALESCE($4, notes),
			demands           = COALESCE($5, demands),
			full_name         = COALESCE($6, full_name),
			email_address     = COALESCE($7, email_address),
			gender            = COALESCE($8, gender),
			age_group         = COALESCE($9, age_group),
			called_recently   = TRUE,
			last_called_at    = $10,
			call_count        = call_count + 1,
			updated_at        = $10
		WHERE voter_id = $1 AND territory_key = $2
		RETURNING `+voterSelectColumns,
		rec.VoterID, rec.TerritoryKey,
		nullBool(u.ConfirmedToVote), nullString(u.Notes), nullString(u.Demands),
		nullString(u.FullName), nullString(u.EmailAddress), nullString(u.Gender), nullString(u.AgeGroup),
		rec.At,
	)
	voter, err := scanVoter(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, domain.ErrUnauthorizedTerritory
		}
		return nil, nil, fmt.Errorf("failed to update voter: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO call_logs (call_log_id, voter_id, volunteer_id, call_date, call_outcome, notes, data_collected)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.CallLogID, rec.VoterID, rec.VolunteerID, rec.At, string(rec.Outcome), nullString(u.Notes), string(data),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to append call log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit call: %w", err)
	}

	log := &domain.CallLog{
		CallLogID:     rec.CallLogID,
		VoterID:       rec.VoterID,
		VolunteerID:   rec.VolunteerID,
		CallDate:      rec.At,
		CallOutcome:   rec.Outcome,
		Notes:         u.Notes,
		DataCollected: data,
	}
	return voter, log, nil
}

// ListCallLogs see CallLogsRepository.
func (r *PostgresCallLogsRepository) ListCallLogs(ctx context.Context, voterID string, limit int) ([]*domain.CallLog, error) {
	if limit <= 0 {
		limit = 50
	}
	if !isUUID(voterID) {
		return []*domain.CallLog{}, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT call_log_id::text, voter_id::text, volunteer_id, call_date, call_outcome, notes, data_collected
		FROM call_logs
		WHERE voter_id = $1
		ORDER BY call_date DESC
		LIMIT $2`, voterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list call logs: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.CallLog, 0)
	for rows.Next() {
		var (
			c       domain.CallLog
			outcome string
			notes   sql.NullString
			data    []byte
		)
		if err := rows.Scan(&c.CallLogID, &c.VoterID, &c.VolunteerID, &c.CallDate, &outcome, &notes, &data); err != nil {
			return nil, fmt.Errorf("failed to scan call log: %w", err)
		}
		c.CallOutcome = domain.CallOutcome(outcome)
		c.Notes = stringPtr(notes)
		c.DataCollected = json.RawMessage(data)
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list call logs: %w", err)
	}
	return out, nil
}
