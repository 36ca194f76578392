package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"voter-outreach/internal/domain"

	"github.com/lib/pq"
)

// PostgresTerritoriesRepository read-only aggregates over voters and assignments
type PostgresTerritoriesRepository struct {
	db *sql.DB
}

// NewPostgresTerritoriesRepository creates the repository.
func NewPostgresTerritoriesRepository(db *sql.DB) *PostgresTerritoriesRepository {
	return &PostgresTerritoriesRepository{db: db}
}

var _ TerritoriesRepository = (*PostgresTerritoriesRepository)(nil)

// ListTerritories one row per territory_key, ordered by path.
func (r *PostgresTerritoriesRepository) ListTerritories(ctx context.Context, filter TerritoryFilter, page, size int) ([]*domain.TerritorySummary, int, error) {
	where := []string{"1=1"}
	args := []any{}
	argN := 1
	add := func(cond string, v any) {
		where = append(where, fmt.Sprintf(cond, argN))
		args = append(args, v)
		argN++
	}
	if filter.State != "" {
		add("lower(v.state) = lower($%d)", domain.CollapseSpace(filter.State))
	}
	if filter.LGA != "" {
		add("lower(v.lga) = lower($%d)", domain.CollapseSpace(filter.LGA))
	}
	if filter.Ward != "" {
		add("lower(v.ward) = lower($%d)", domain.CollapseSpace(filter.Ward))
	}
	if len(filter.Keys) > 0 {
		add("v.territory_key = ANY($%d)", pq.Array(filter.Keys))
	}
	having := ""
	if filter.UnassignedOnly {
		having = "HAVING MAX(a.user_id) IS NULL"
	}

	base := fmt.Sprintf(`
		SELECT
			v.territory_key,
			MIN(v.state) AS state, MIN(v.lga) AS lga, MIN(v.ward) AS ward, MIN(v.polling_unit) AS polling_unit,
			COALESCE(MIN(NULLIF(v.polling_unit_code, '')), '') AS polling_unit_code,
			COUNT(*) AS voter_count,
			COUNT(*) FILTER (WHERE v.called_recently) AS called_count,
			COUNT(*) FILTER (WHERE v.confirmed_to_vote) AS confirmed_count,
			MAX(a.user_id) AS assigned_user_id
		FROM voters v
		LEFT JOIN assignments a ON a.territory_key = v.territory_key AND a.is_active
		WHERE %s
		GROUP BY v.territory_key
		%s`, strings.Join(where, " AND "), having)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM (`+base+`) t`, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count territories: %w", err)
	}
	if total == 0 {
		return []*domain.TerritorySummary{}, 0, nil
	}

	query := base + fmt.Sprintf(` ORDER BY state, lga, ward, polling_unit, v.territory_key LIMIT $%d OFFSET $%d`, argN, argN+1)
	args = append(args, size, (page-1)*size)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list territories: %w", err)
	}
	defer rows.Close()

	items := make([]*domain.TerritorySummary, 0, size)
	for rows.Next() {
		var (
			t        domain.TerritorySummary
			assigned sql.NullString
		)
		if err := rows.Scan(
			&t.TerritoryKey, &t.State, &t.LGA, &t.Ward, &t.PollingUnit, &t.PollingUnitCode,
			&t.VoterCount, &t.CalledCount, &t.ConfirmedCount, &assigned,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan territory: %w", err)
		}
		t.AssignedUserID = stringPtr(assigned)
		items = append(items, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list territories: %w", err)
	}
	return items, total, nil
}

// ListStates distinct states with voter counts.
func (r *PostgresTerritoriesRepository) ListStates(ctx context.Context) ([]domain.AreaCount, error) {
	return r.listAreas(ctx, "state", nil)
}

// ListLGAs LGAs of one state.
func (r *PostgresTerritoriesRepository) ListLGAs(ctx context.Context, state string) ([]domain.AreaCount, error) {
	return r.listAreas(ctx, "lga", []string{state})
}

// ListWards wards of one LGA.
func (r *PostgresTerritoriesRepository) ListWards(ctx context.Context, state, lga string) ([]domain.AreaCount, error) {
	return r.listAreas(ctx, "ward", []string{state, lga})
}

// ListPollingUnits leaf level: one entry per territory, with its key and code.
func (r *PostgresTerritoriesRepository) ListPollingUnits(ctx context.Context, state, lga, ward string) ([]domain.AreaCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT MIN(polling_unit), COALESCE(MIN(NULLIF(polling_unit_code, '')), ''), territory_key, COUNT(*)
		FROM voters
		WHERE lower(state) = lower($1) AND lower(lga) = lower($2) AND lower(ward) = lower($3)
		GROUP BY territory_key
		ORDER BY 1`,
		domain.CollapseSpace(state), domain.CollapseSpace(lga), domain.CollapseSpace(ward))
	if err != nil {
		return nil, fmt.Errorf("failed to list polling units: %w", err)
	}
	defer rows.Close()

	out := make([]domain.AreaCount, 0)
	for rows.Next() {
		var a domain.AreaCount
		if err := rows.Scan(&a.Name, &a.PollingUnitCode, &a.TerritoryKey, &a.VoterCount); err != nil {
			return nil, fmt.Errorf("failed to scan polling unit: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list polling units: %w", err)
	}
	return out, nil
}

var areaParents = []string{"state", "lga", "ward"}

// listAreas groups case-insensitively on column, constrained by its parents in order.
func (r *PostgresTerritoriesRepository) listAreas(ctx context.Context, column string, parents []string) ([]domain.AreaCount, error) {
	where := []string{"1=1"}
	args := make([]any, 0, len(parents))
	for i, p := range parents {
		where = append(where, fmt.Sprintf("lower(%s) = lower($%d)", areaParents[i], i+1))
		args = append(args, domain.CollapseSpace(p))
	}
	query := fmt.Sprintf(`
		SELECT MIN(%[1]s), COUNT(*)
		FROM voters
		WHERE %[2]s
		GROUP BY lower(%[1]s)
		ORDER BY 1`, column, strings.Join(where, " AND "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s values: %w", column, err)
	}
	defer rows.Close()

	out := make([]domain.AreaCount, 0)
	for rows.Next() {
		var a domain.AreaCount
		if err := rows.Scan(&a.Name, &a.VoterCount); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", column, err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list %s values: %w", column, err)
	}
	return out, nil
}
