package repository

import (
	"context"
	"testing"
	"time"

	"voter-outreach/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var assignmentRowColumns = []string{
	"assignment_id", "user_id", "state", "lga", "ward", "polling_unit", "polling_unit_code",
	"territory_key", "assigned_by", "assigned_at", "is_active", "deactivated_at",
}

func newAssignment(id, user, key string, at time.Time) *domain.Assignment {
	return &domain.Assignment{
		AssignmentID: id,
		UserID:       user,
		State:        "Lagos",
		LGA:          "Ikeja",
		Ward:         "Ward 1",
		PollingUnit:  "PU 001",
		TerritoryKey: key,
		AssignedBy:   "admin-1",
		AssignedAt:   at,
	}
}

func TestPostgresAssignmentsRepository_AssignExclusive_DisplacesHolder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	earlier := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	now := earlier.Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM assignments WHERE is_active AND \(user_id = \$1 OR territory_key = \$2 OR \(\$3 <> '' AND polling_unit_code = \$3\)\) FOR UPDATE`).
		WithArgs("u2", "key1", "").
		WillReturnRows(sqlmock.NewRows(assignmentRowColumns).
			AddRow("a1", "u1", "Lagos", "Ikeja", "Ward 1", "PU 001", "", "key1", "admin-1", earlier, true, nil))
	mock.ExpectExec(`UPDATE assignments SET is_active = FALSE, deactivated_at = \$2 WHERE assignment_id = ANY\(\$1::uuid\[\]\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO assignments`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	a := newAssignment("a2", "u2", "key1", now)
	displaced, err := NewPostgresAssignmentsRepository(db).AssignExclusive(context.Background(), a)
	require.NoError(t, err)
	require.Len(t, displaced, 1)
	assert.Equal(t, "u1", displaced[0].UserID)
	assert.False(t, displaced[0].IsActive)
	require.NotNil(t, displaced[0].DeactivatedAt)
	assert.Equal(t, now, *displaced[0].DeactivatedAt)
	assert.True(t, a.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAssignmentsRepository_AssignExclusive_LocksByPollingUnitCode(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	earlier := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	now := earlier.Add(time.Hour)

	// same code, ward spelled differently, so a different territory key
	mock.ExpectBegin()
	mock.ExpectQuery(`polling_unit_code = \$3\) FOR UPDATE`).
		WithArgs("u2", "key-ward-a-dash", "PU1-01").
		WillReturnRows(sqlmock.NewRows(assignmentRowColumns).
			AddRow("a1", "u1", "Lagos", "Ikeja", "WardA", "PU1", "PU1-01", "key-ward-a", "admin-1", earlier, true, nil))
	mock.ExpectExec(`UPDATE assignments SET is_active = FALSE`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO assignments`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	a := newAssignment("a2", "u2", "key-ward-a-dash", now)
	a.PollingUnitCode = "PU1-01"
	displaced, err := NewPostgresAssignmentsRepository(db).AssignExclusive(context.Background(), a)
	require.NoError(t, err)
	require.Len(t, displaced, 1)
	assert.Equal(t, "u1", displaced[0].UserID)
	assert.False(t, displaced[0].IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAssignmentsRepository_AssignExclusive_UniqueViolationIsConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(assignmentRowColumns))
	mock.ExpectExec(`INSERT INTO assignments`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint \"uq_assignments_active_territory\""})
	mock.ExpectRollback()

	_, err = NewPostgresAssignmentsRepository(db).AssignExclusive(context.Background(), newAssignment("a3", "u3", "key1", time.Now()))
	assert.ErrorIs(t, err, domain.ErrAssignmentConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAssignmentsRepository_AssignExclusive_SerializationFailureIsConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WillReturnError(&pq.Error{Code: "40001"})
	mock.ExpectRollback()

	_, err = NewPostgresAssignmentsRepository(db).AssignExclusive(context.Background(), newAssignment("a4", "u4", "key2", time.Now()))
	assert.ErrorIs(t, err, domain.ErrAssignmentConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAssignmentsRepository_GetActiveByUser_None(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM assignments WHERE user_id = \$1 AND is_active`).
		WithArgs("u9").
		WillReturnRows(sqlmock.NewRows(assignmentRowColumns))

	a, err := NewPostgresAssignmentsRepository(db).GetActiveByUser(context.Background(), "u9")
	require.NoError(t, err)
	assert.Nil(t, a)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAssignmentsRepository_DeactivateByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`UPDATE assignments SET is_active = FALSE, deactivated_at = \$2 WHERE user_id = \$1 AND is_active RETURNING`).
		WithArgs("u1", at).
		WillReturnRows(sqlmock.NewRows(assignmentRowColumns).
			AddRow("a1", "u1", "Lagos", "Ikeja", "Ward 1", "PU 001", "", "key1", "admin-1", at.Add(-time.Hour), false, at))

	a, err := NewPostgresAssignmentsRepository(db).DeactivateByUser(context.Background(), "u1", at)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.False(t, a.IsActive)
	assert.Equal(t, at, *a.DeactivatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAssignmentsRepository_ListAssignments(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM assignments a WHERE 1=1 AND a.is_active AND lower\(a.state\) = lower\(\$1\)`).
		WithArgs("lagos").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`AS calls_made.*LIMIT \$2 OFFSET \$3`).
		WithArgs("lagos", 20, 0).
		WillReturnRows(sqlmock.NewRows(append(append([]string{}, assignmentRowColumns...),
			"voter_count", "calls_made", "confirmed_count", "last_call_at")).
			AddRow("a1", "u1", "Lagos", "Ikeja", "Ward 1", "PU 001", "", "key1", "admin-1", at, true, nil,
				int64(40), int64(12), int64(5), at.Add(time.Hour)))

	items, total, err := NewPostgresAssignmentsRepository(db).ListAssignments(context.Background(),
		AssignmentsFilter{State: "lagos"}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, 40, items[0].VoterCount)
	assert.Equal(t, 12, items[0].CallsMade)
	assert.Equal(t, 5, items[0].ConfirmedCount)
	require.NotNil(t, items[0].LastCallAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
