package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"voter-outreach/internal/domain"
)

// PostgresVotersRepository voters table
type PostgresVotersRepository struct {
	db *sql.DB
}

// NewPostgresVotersRepository creates the repository.
func NewPostgresVotersRepository(db *sql.DB) *PostgresVotersRepository {
	return &PostgresVotersRepository{db: db}
}

var _ VotersRepository = (*PostgresVotersRepository)(nil)

const voterInsertColumns = 13

const voterSelectColumns = `
	voter_id::text, state, lga, ward, polling_unit, polling_unit_code, territory_key,
	phone_number, full_name, email_address, gender, age_group,
	called_recently, last_called_at, confirmed_to_vote, demands, notes,
	call_count, imported_by, created_at, updated_at`

// InsertVoterBatch ON CONFLICT DO NOTHING also absorbs duplicates inside the batch itself.
func (r *PostgresVotersRepository) InsertVoterBatch(ctx context.Context, voters []*domain.VoterRecord) (int64, error) {
	if len(voters) == 0 {
		return 0, nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO voters (
		voter_id, state, lga, ward, polling_unit, polling_unit_code, territory_key,
		phone_number, full_name, email_address, gender, age_group, imported_by
	) VALUES `)
	args := make([]any, 0, len(voters)*voterInsertColumns)
	for i, v := range voters {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * voterInsertColumns
		sb.WriteString("(")
		for c := 1; c <= voterInsertColumns; c++ {
			if c > 1 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", base+c)
		}
		sb.WriteString(")")
		args = append(args,
			v.VoterID, v.State, v.LGA, v.Ward, v.PollingUnit, v.PollingUnitCode, v.TerritoryKey,
			v.PhoneNumber, nullString(v.FullName), nullString(v.EmailAddress),
			nullString(v.Gender), nullString(v.AgeGroup), v.ImportedBy,
		)
	}
	sb.WriteString(" ON CONFLICT (phone_number, polling_unit_code) DO NOTHING")

	res, err := r.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert voter batch: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted count: %w", err)
	}
	return n, nil
}

// GetVoter by id.
func (r *PostgresVotersRepository) GetVoter(ctx context.Context, voterID string) (*domain.VoterRecord, error) {
	if !isUUID(voterID) {
		return nil, domain.ErrVoterNotFound
	}
	query := `SELECT ` + voterSelectColumns + ` FROM voters WHERE voter_id = $1`
	v, err := scanVoter(r.db.QueryRowContext(ctx, query, voterID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrVoterNotFound
		}
		return nil, fmt.Errorf("failed to get voter: %w", err)
	}
	return v, nil
}

// CountVotersInTerritory number of voters carrying territoryKey.
func (r *PostgresVotersRepository) CountVotersInTerritory(ctx context.Context, territoryKey string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM voters WHERE territory_key = $1`, territoryKey).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count voters: %w", err)
	}
	return n, nil
}

// PollingUnitCode see VotersRepository.
func (r *PostgresVotersRepository) PollingUnitCode(ctx context.Context, territoryKey string) (string, error) {
	var code sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT MIN(polling_unit_code) FROM voters WHERE territory_key = $1 AND polling_unit_code <> ''`,
		territoryKey).Scan(&code)
	if err != nil {
		return "", fmt.Errorf("failed to read polling unit code: %w", err)
	}
	return code.String, nil
}

// ListVotersByTerritory paginated; page is 1-based.
func (r *PostgresVotersRepository) ListVotersByTerritory(ctx context.Context, territoryKey string, filter domain.VoterFilter, page, size int) ([]*domain.VoterRecord, int, error) {
	where := "territory_key = $1"
	if clause := filterClause(filter); clause != "" {
		where += " AND " + clause
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM voters WHERE `+where, territoryKey).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count voters: %w", err)
	}
	if total == 0 {
		return []*domain.VoterRecord{}, 0, nil
	}

	query := `SELECT ` + voterSelectColumns + ` FROM voters WHERE ` + where + `
		ORDER BY called_recently ASC, last_called_at DESC NULLS LAST, full_name ASC NULLS LAST, voter_id ASC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, territoryKey, size, (page-1)*size)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list voters: %w", err)
	}
	defer rows.Close()

	items := make([]*domain.VoterRecord, 0, size)
	for rows.Next() {
		v, err := scanVoter(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan voter: %w", err)
		}
		items = append(items, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list voters: %w", err)
	}
	return items, total, nil
}

func filterClause(f domain.VoterFilter) string {
	switch f {
	case domain.VoterFilterNotCalled:
		return "called_recently = FALSE"
	case domain.VoterFilterCalledRecently:
		return "called_recently = TRUE"
	case domain.VoterFilterConfirmed:
		return "confirmed_to_vote = TRUE"
	case domain.VoterFilterNeedsFollowUp:
		return "called_recently = TRUE AND confirmed_to_vote IS DISTINCT FROM TRUE"
	}
	return ""
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVoter(row rowScanner) (*domain.VoterRecord, error) {
	var (
		v                                 domain.VoterRecord
		fullName, email, gender, ageGroup sql.NullString
		demands, notes                    sql.NullString
		lastCalledAt                      sql.NullTime
		confirmed                         sql.NullBool
	)
	err := row.Scan(
		&v.VoterID, &v.State, &v.LGA, &v.Ward, &v.PollingUnit, &v.PollingUnitCode, &v.TerritoryKey,
		&v.PhoneNumber, &fullName, &email, &gender, &ageGroup,
		&v.CalledRecently, &lastCalledAt, &confirmed, &demands, &notes,
		&v.CallCount, &v.ImportedBy, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	v.FullName = stringPtr(fullName)
	v.EmailAddress = stringPtr(email)
	v.Gender = stringPtr(gender)
	v.AgeGroup = stringPtr(ageGroup)
	v.Demands = stringPtr(demands)
	v.Notes = stringPtr(notes)
	if lastCalledAt.Valid {
		t := lastCalledAt.Time
		v.LastCalledAt = &t
	}
	if confirmed.Valid {
		b := confirmed.Bool
		v.ConfirmedToVote = &b
	}
	return &v, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
