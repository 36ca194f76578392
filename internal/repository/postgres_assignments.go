package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"voter-outreach/internal/domain"

	"github.com/lib/pq"
)

// PostgresAssignmentsRepository assignments table
type PostgresAssignmentsRepository struct {
	db *sql.DB
}

// NewPostgresAssignmentsRepository creates the repository.
func NewPostgresAssignmentsRepository(db *sql.DB) *PostgresAssignmentsRepository {
	return &PostgresAssignmentsRepository{db: db}
}

var _ AssignmentsRepository = (*PostgresAssignmentsRepository)(nil)

const assignmentColumns = `
	assignment_id::text, user_id, state, lga, ward, polling_unit, polling_unit_code,
	territory_key, assigned_by, assigned_at, is_active, deactivated_at`

// AssignExclusive row locks on the current holders serialize competing assigns;
// the partial unique indexes catch the case where neither side had a row to lock.
func (r *PostgresAssignmentsRepository) AssignExclusive(ctx context.Context, a *domain.Assignment) ([]*domain.Assignment, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT `+assignmentColumns+` FROM assignments
		 WHERE is_active AND (user_id = $1 OR territory_key = $2 OR ($3 <> '' AND polling_unit_code = $3))
		 FOR UPDATE`,
		a.UserID, a.TerritoryKey, a.PollingUnitCode)
	if err != nil {
		return nil, wrapAssignErr("failed to lock active assignments", err)
	}
	displaced := make([]*domain.Assignment, 0, 2)
	for rows.Next() {
		d, err := scanAssignment(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		displaced = append(displaced, d)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, wrapAssignErr("failed to lock active assignments", err)
	}
	rows.Close()

	if len(displaced) > 0 {
		ids := make([]string, len(displaced))
		for i, d := range displaced {
			ids[i] = d.AssignmentID
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE assignments SET is_active = FALSE, deactivated_at = $2
			 WHERE assignment_id = ANY($1::uuid[])`,
			pq.Array(ids), a.AssignedAt); err != nil {
			return nil, wrapAssignErr("failed to deactivate assignments", err)
		}
		for _, d := range displaced {
			at := a.AssignedAt
			d.IsActive = false
			d.DeactivatedAt = &at
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO assignments (
			assignment_id, user_id, state, lga, ward, polling_unit, polling_unit_code,
			territory_key, assigned_by, assigned_at, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE)`,
		a.AssignmentID, a.UserID, a.State, a.LGA, a.Ward, a.PollingUnit, a.PollingUnitCode,
		a.TerritoryKey, a.AssignedBy, a.AssignedAt)
	if err != nil {
		return nil, wrapAssignErr("failed to insert assignment", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapAssignErr("failed to commit assignment", err)
	}
	a.IsActive = true
	return displaced, nil
}

func wrapAssignErr(msg string, err error) error {
	if isConflict(err) {
		return fmt.Errorf("%w: %v", domain.ErrAssignmentConflict, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// DeactivateByUser see AssignmentsRepository.
func (r *PostgresAssignmentsRepository) DeactivateByUser(ctx context.Context, userID string, at time.Time) (*domain.Assignment, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE assignments SET is_active = FALSE, deactivated_at = $2
		 WHERE user_id = $1 AND is_active
		 RETURNING `+assignmentColumns,
		userID, at)
	a, err := scanAssignment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to deactivate assignment: %w", err)
	}
	return a, nil
}

// GetActiveByUser see AssignmentsRepository.
func (r *PostgresAssignmentsRepository) GetActiveByUser(ctx context.Context, userID string) (*domain.Assignment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE user_id = $1 AND is_active`,
		userID)
	a, err := scanAssignment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active assignment: %w", err)
	}
	return a, nil
}

// ListAssignments see AssignmentsRepository.
func (r *PostgresAssignmentsRepository) ListAssignments(ctx context.Context, filter AssignmentsFilter, page, size int) ([]*domain.VolunteerSummary, int, error) {
	where := []string{"1=1"}
	args := []any{}
	argN := 1

	if !filter.IncludeInactive {
		where = append(where, "a.is_active")
	}
	if len(filter.UserIDs) > 0 {
		where = append(where, fmt.Sprintf("a.user_id = ANY($%d)", argN))
		args = append(args, pq.Array(filter.UserIDs))
		argN++
	}
	if filter.State != "" {
		where = append(where, fmt.Sprintf("lower(a.state) = lower($%d)", argN))
		args = append(args, filter.State)
		argN++
	}
	if filter.LGA != "" {
		where = append(where, fmt.Sprintf("lower(a.lga) = lower($%d)", argN))
		args = append(args, filter.LGA)
		argN++
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM assignments a WHERE `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count assignments: %w", err)
	}
	if total == 0 {
		return []*domain.VolunteerSummary{}, 0, nil
	}

	query := fmt.Sprintf(`
		SELECT
			a.assignment_id::text, a.user_id, a.state, a.lga, a.ward, a.polling_unit, a.polling_unit_code,
			a.territory_key, a.assigned_by, a.assigned_at, a.is_active, a.deactivated_at,
			(SELECT COUNT(*) FROM voters v WHERE v.territory_key = a.territory_key) AS voter_count,
			(SELECT COUNT(*) FROM call_logs c
			   WHERE c.volunteer_id = a.user_id AND c.call_date >= a.assigned_at
			     AND (a.deactivated_at IS NULL OR c.call_date <= a.deactivated_at)) AS calls_made,
			(SELECT COUNT(*) FROM voters v WHERE v.territory_key = a.territory_key AND v.confirmed_to_vote) AS confirmed_count,
			(SELECT MAX(c.call_date) FROM call_logs c WHERE c.volunteer_id = a.user_id) AS last_call_at
		FROM assignments a
		WHERE %s
		ORDER BY a.assigned_at DESC, a.assignment_id
		LIMIT $%d OFFSET $%d`, whereClause, argN, argN+1)
	args = append(args, size, (page-1)*size)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	items := make([]*domain.VolunteerSummary, 0, size)
	for rows.Next() {
		var (
			s             domain.VolunteerSummary
			deactivatedAt sql.NullTime
			lastCallAt    sql.NullTime
		)
		if err := rows.Scan(
			&s.AssignmentID, &s.UserID, &s.State, &s.LGA, &s.Ward, &s.PollingUnit, &s.PollingUnitCode,
			&s.TerritoryKey, &s.AssignedBy, &s.AssignedAt, &s.IsActive, &deactivatedAt,
			&s.VoterCount, &s.CallsMade, &s.ConfirmedCount, &lastCallAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan assignment: %w", err)
		}
		if deactivatedAt.Valid {
			t := deactivatedAt.Time
			s.DeactivatedAt = &t
		}
		if lastCallAt.Valid {
			t := lastCallAt.Time
			s.LastCallAt = &t
		}
		items = append(items, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list assignments: %w", err)
	}
	return items, total, nil
}

func scanAssignment(row rowScanner) (*domain.Assignment, error) {
	var (
		a             domain.Assignment
		deactivatedAt sql.NullTime
	)
	if err := row.Scan(
		&a.AssignmentID, &a.UserID, &a.State, &a.LGA, &a.Ward, &a.PollingUnit, &a.PollingUnitCode,
		&a.TerritoryKey, &a.AssignedBy, &a.AssignedAt, &a.IsActive, &deactivatedAt,
	); err != nil {
		return nil, err
	}
	if deactivatedAt.Valid {
		t := deactivatedAt.Time
		a.DeactivatedAt = &t
	}
	return &a, nil
}
